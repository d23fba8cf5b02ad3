package refract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/zoobzio/capitan"
)

// ErrProjectClosed is returned when a project-scoped resource is used after
// the project was closed.
var ErrProjectClosed = errors.New("project closed")

// validate is the shared validator instance.
var validate = validator.New()

// ProjectOptions configures a build session root.
type ProjectOptions struct {
	// RootPath is an absolute path all accessed files must be nested
	// under. Trying to access a file outside this root fails. Think of
	// this as a chroot.
	RootPath string `json:"root_path" yaml:"root_path" validate:"required"`

	// ProjectPath is a path inside RootPath containing the routable
	// source (the app and pages directories).
	ProjectPath string `json:"project_path" yaml:"project_path" validate:"required"`

	// Watch enables filesystem watching so file changes invalidate
	// derived computations. It does not change subscription semantics,
	// only whether filesystem invalidation sources are active.
	Watch bool `json:"watch" yaml:"watch"`

	// MemoryLimit is a soft upper bound, in bytes, the engine should try
	// to stay under. Zero means unbounded. Advisory only.
	MemoryLimit uint64 `json:"memory_limit" yaml:"memory_limit"`
}

// EntrypointsOptions configures one entrypoints subscription. Distinct
// subscriptions against the same project may use distinct options.
type EntrypointsOptions struct {
	// PageExtensions is the ordered set of file extensions recognized as
	// page sources, without the leading dot.
	PageExtensions []string `json:"page_extensions" yaml:"page_extensions"`
}

// defaultPageExtensions is used when EntrypointsOptions leaves the set empty.
var defaultPageExtensions = []string{"tsx", "ts", "jsx", "js"}

// Project is the stable root from which all per-session computations are
// derived. It owns the computation engine for its session, the confined
// filesystem, and the registry behind endpoint handles. A Project is
// immutable after construction and safe for concurrent use; Close ends the
// session, cancels its subscriptions, and invalidates its handles.
type Project struct {
	options    ProjectOptions
	engine     *MemoryEngine
	fs         *RootFS
	projectDir string

	watcher *fsWatcher

	mu        sync.Mutex
	closed    bool
	endpoints map[string]*Endpoint
	cancels   []func()
}

// NewProject validates the options and creates a build session.
//
// Construction fails with a configuration error when the project path is
// not nested under the root path; the boundary is never silently
// corrected. With Watch enabled, a filesystem watcher over the project
// path feeds invalidations into the engine until Close.
func NewProject(ctx context.Context, options ProjectOptions) (*Project, error) {
	if err := validate.Struct(options); err != nil {
		return nil, fmt.Errorf("invalid project options: %w", err)
	}
	if !filepath.IsAbs(options.RootPath) {
		return nil, fmt.Errorf("root path must be absolute, got %q", options.RootPath)
	}
	if !filepath.IsAbs(options.ProjectPath) {
		return nil, fmt.Errorf("project path must be absolute, got %q", options.ProjectPath)
	}
	if !nested(options.RootPath, options.ProjectPath) {
		return nil, fmt.Errorf("project path %q is not nested under root path %q: %w",
			options.ProjectPath, options.RootPath, ErrOutsideRoot)
	}

	fsys, err := NewRootFS(options.RootPath)
	if err != nil {
		return nil, err
	}
	projectDir, err := filepath.Rel(fsys.Root(), filepath.Clean(options.ProjectPath))
	if err != nil {
		return nil, fmt.Errorf("project path %q: %w", options.ProjectPath, err)
	}

	p := &Project{
		options:    options,
		engine:     NewMemoryEngine().MemoryLimit(options.MemoryLimit),
		fs:         fsys,
		projectDir: filepath.ToSlash(projectDir),
		endpoints:  make(map[string]*Endpoint),
	}

	if options.Watch {
		watcher, err := newFSWatcher(options.ProjectPath, p.projectDir, p.engine)
		if err != nil {
			return nil, fmt.Errorf("failed to start filesystem watcher: %w", err)
		}
		p.watcher = watcher
	}

	capitan.Emit(ctx, ProjectCreated,
		KeyRootPath.Field(options.RootPath),
		KeyProjectPath.Field(options.ProjectPath),
		KeyWatch.Field(strconv.FormatBool(options.Watch)),
	)

	return p, nil
}

// Options returns the project's configuration.
func (p *Project) Options() ProjectOptions {
	return p.options
}

// Engine returns the session's computation engine.
func (p *Project) Engine() Engine {
	return p.engine
}

// EntrypointsSubscribe opens a subscription delivering the project's
// entrypoints to the consumer: one strongly consistent EntrypointsRecord
// per delivery cycle, re-delivered whenever a source file affecting the
// routable surface changes. It blocks until the first cycle completes and
// reports that cycle's error, if any, alongside the running subscription.
func (p *Project) EntrypointsSubscribe(
	ctx context.Context,
	options EntrypointsOptions,
	consumer Consumer[EntrypointsRecord],
	opts ...Option[EntrypointsRecord],
) (*Subscription[*Entrypoints, EntrypointsRecord], error) {
	sub, err := p.NewEntrypointsSubscription(options, consumer, opts...)
	if err != nil {
		return nil, err
	}
	return sub, sub.Start(ctx)
}

// NewEntrypointsSubscription builds the entrypoints subscription without
// starting it, so instance configuration (SyncMode, Clock, Debounce) can be
// chained before Start.
func (p *Project) NewEntrypointsSubscription(
	options EntrypointsOptions,
	consumer Consumer[EntrypointsRecord],
	opts ...Option[EntrypointsRecord],
) (*Subscription[*Entrypoints, EntrypointsRecord], error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrProjectClosed
	}
	p.mu.Unlock()

	if len(options.PageExtensions) == 0 {
		options.PageExtensions = defaultPageExtensions
	}

	compute := func(ctx context.Context) (*Entrypoints, error) {
		return scanEntrypoints(ctx, p.engine, p.fs, p.projectDir, options)
	}
	convert := func(e *Entrypoints) ([]EntrypointsRecord, error) {
		record, err := p.convertEntrypoints(e)
		if err != nil {
			return nil, err
		}
		return []EntrypointsRecord{record}, nil
	}

	sub := NewSubscription(p.engine, compute, convert, consumer, opts...)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrProjectClosed
	}
	p.cancels = append(p.cancels, sub.Cancel)
	return sub, nil
}

// Close ends the session: every subscription opened through the project is
// canceled, the filesystem watcher stops, and endpoint handles stop
// resolving. Close is idempotent.
func (p *Project) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	cancels := p.cancels
	p.cancels = nil
	p.endpoints = nil
	p.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if p.watcher != nil {
		p.watcher.stop()
	}

	capitan.Emit(ctx, ProjectClosed,
		KeyProjectPath.Field(p.options.ProjectPath),
	)
	return nil
}

// handle registers an endpoint in the project's registry and returns a
// capability handle for it. Registering the same endpoint key twice reuses
// the registration.
func (p *Project) handle(e *Endpoint) *EndpointHandle {
	if e == nil {
		return nil
	}
	p.mu.Lock()
	if !p.closed {
		if _, ok := p.endpoints[e.key]; !ok {
			p.endpoints[e.key] = e
		}
	}
	p.mu.Unlock()
	return &EndpointHandle{id: e.key, project: p}
}

// endpoint resolves a handle identifier through the registry.
func (p *Project) endpoint(id string) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrProjectClosed
	}
	e, ok := p.endpoints[id]
	if !ok {
		return nil, fmt.Errorf("unknown endpoint %q", id)
	}
	return e, nil
}
