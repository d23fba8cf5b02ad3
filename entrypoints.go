package refract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Cell key prefixes used for filesystem-derived dependencies. The scanner
// records a dependency per directory listing and per file read; the
// filesystem watcher invalidates the same keys when paths change.
const (
	dirKeyPrefix  = "dir:"
	fileKeyPrefix = "file:"
)

// scanEntrypoints computes one Entrypoints snapshot from the project tree.
//
// Files under pages/ become PageRoute (or PageAPIRoute under pages/api/),
// app/**/page.<ext> becomes AppPageRoute, app/**/route.<ext> becomes
// AppRoute, each matched against the ordered page extension set. Two source
// files mapping to the same pathname produce a ConflictRoute. A
// middleware.<ext> at the project root becomes the Middleware entry.
//
// The scan registers every directory it lists, every source file it
// matches, and every file it reads as a dependency of the evaluating root,
// so watch-mode edits invalidate it.
func scanEntrypoints(ctx context.Context, engine *MemoryEngine, fsys FS, projectDir string, options EntrypointsOptions) (*Entrypoints, error) {
	s := &entrypointScan{
		engine:     engine,
		fs:         fsys,
		extensions: options.PageExtensions,
		routes:     make(map[string]Route),
		sources:    make(map[string]string),
	}

	pagesDir := path.Join(projectDir, "pages")
	if err := s.walk(ctx, pagesDir, func(filePath string, name string) {
		base, ok := s.matchExtension(name)
		if !ok {
			return
		}
		s.engine.Depend(ctx, fileKeyPrefix+filePath)
		rel := strings.TrimPrefix(filePath, pagesDir+"/")
		rel = strings.TrimSuffix(rel, name) + base
		if rel == "api" || strings.HasPrefix(rel, "api/") {
			s.add(pagePathname(rel), filePath, PageAPIRoute{
				Endpoint: newEndpoint(filePath + "#handler"),
			})
			return
		}
		s.add(pagePathname(rel), filePath, PageRoute{
			HTMLEndpoint: newEndpoint(filePath + "#html"),
			DataEndpoint: newEndpoint(filePath + "#data"),
		})
	}); err != nil {
		return nil, err
	}

	appDir := path.Join(projectDir, "app")
	if err := s.walk(ctx, appDir, func(filePath string, name string) {
		base, ok := s.matchExtension(name)
		if !ok {
			return
		}
		s.engine.Depend(ctx, fileKeyPrefix+filePath)
		segments := strings.TrimSuffix(strings.TrimPrefix(path.Dir(filePath), appDir), "/")
		segments = strings.TrimPrefix(segments, "/")
		pathname := "/" + segments
		switch base {
		case "page":
			s.add(pathname, filePath, AppPageRoute{
				HTMLEndpoint: newEndpoint(filePath + "#html"),
				RSCEndpoint:  newEndpoint(filePath + "#rsc"),
			})
		case "route":
			s.add(pathname, filePath, AppRoute{
				Endpoint: newEndpoint(filePath + "#handler"),
			})
		}
	}); err != nil {
		return nil, err
	}

	middleware, err := s.findMiddleware(ctx, projectDir)
	if err != nil {
		return nil, err
	}

	return &Entrypoints{Routes: s.routes, Middleware: middleware}, nil
}

type entrypointScan struct {
	engine     *MemoryEngine
	fs         FS
	extensions []string
	routes     map[string]Route
	sources    map[string]string
}

// add records a route for pathname. A second source file for the same
// pathname collapses the entry into a ConflictRoute.
func (s *entrypointScan) add(pathname, source string, route Route) {
	if prev, ok := s.sources[pathname]; ok {
		if prev != source {
			s.routes[pathname] = ConflictRoute{}
		}
		return
	}
	s.sources[pathname] = source
	s.routes[pathname] = route
}

// walk lists dir recursively, invoking fn for each regular file. Each
// directory listing is registered as a dependency; a missing directory is
// not an error, but its key is still depended on so creating it later
// invalidates the scan.
func (s *entrypointScan) walk(ctx context.Context, dir string, fn func(filePath, name string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.engine.Depend(ctx, dirKeyPrefix+dir)

	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, entry := range entries {
		child := path.Join(dir, entry.Name())
		if entry.IsDir() {
			if err := s.walk(ctx, child, fn); err != nil {
				return err
			}
			continue
		}
		if entry.Type()&fs.ModeType == 0 {
			fn(child, entry.Name())
		}
	}
	return nil
}

// matchExtension strips the first matching page extension from name,
// returning the base name. Extensions are tried in their configured order.
func (s *entrypointScan) matchExtension(name string) (string, bool) {
	for _, ext := range s.extensions {
		if base, ok := strings.CutSuffix(name, "."+ext); ok && base != "" {
			return base, true
		}
	}
	return "", false
}

// findMiddleware looks for middleware.<ext> at the project root. Its
// configuration is read from an adjacent middleware.config.json when
// present; the runtime identifier stays raw until conversion.
func (s *entrypointScan) findMiddleware(ctx context.Context, projectDir string) (*Middleware, error) {
	s.engine.Depend(ctx, dirKeyPrefix+projectDir)
	entries, err := s.fs.ReadDir(projectDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", projectDir, err)
	}

	var source string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := s.matchExtension(entry.Name()); ok && base == "middleware" {
			source = path.Join(projectDir, entry.Name())
			break
		}
	}
	if source == "" {
		return nil, nil
	}
	s.engine.Depend(ctx, fileKeyPrefix+source)

	config := MiddlewareConfig{Runtime: RuntimeEdge.String()}
	configPath := path.Join(projectDir, "middleware.config.json")
	s.engine.Depend(ctx, fileKeyPrefix+configPath)
	raw, err := s.fs.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No config file; edge runtime, no matcher.
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
	default:
		if err := (JSONCodec{}).Unmarshal(raw, &config); err != nil {
			return nil, fmt.Errorf("invalid middleware config %s: %w", configPath, err)
		}
	}

	return &Middleware{
		Endpoint: newEndpoint(source + "#middleware"),
		Config:   config,
	}, nil
}

// pagePathname maps a pages-relative source path (extension stripped) to
// its route pathname: foo/bar -> /foo/bar, with trailing index segments
// collapsed so foo/index -> /foo and index -> /.
func pagePathname(rel string) string {
	if rel == "index" {
		return "/"
	}
	rel = strings.TrimSuffix(rel, "/index")
	return "/" + rel
}
