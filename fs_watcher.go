package refract

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// fsWatcher translates filesystem change events under the project path into
// engine key invalidations, using the same key scheme the entrypoints scan
// depends on. It is only active when the project was created with Watch.
type fsWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// newFSWatcher watches dir recursively. absDir is the host path of the
// watched tree, relDir its root-relative form used in cell keys.
func newFSWatcher(absDir, relDir string, engine Invalidator) (*fsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	err = filepath.WalkDir(absDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", absDir, err)
	}

	w := &fsWatcher{
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go w.run(absDir, relDir, engine)
	return w, nil
}

func (w *fsWatcher) run(absDir, relDir string, engine Invalidator) {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			hostRel, err := filepath.Rel(absDir, event.Name)
			if err != nil {
				continue
			}
			rel := path.Join(relDir, filepath.ToSlash(hostRel))

			if event.Op&fsnotify.Write != 0 {
				engine.InvalidateKey(fileKeyPrefix + rel)
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				// Structural changes alter the parent listing as
				// well as the path itself.
				engine.InvalidateKey(fileKeyPrefix + rel)
				engine.InvalidateKey(dirKeyPrefix + rel)
				engine.InvalidateKey(dirKeyPrefix + path.Dir(rel))
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// New subtree; watch it too. Failures here
					// leave the subtree unwatched rather than
					// killing the watcher.
					_ = w.watcher.Add(event.Name) //nolint:errcheck
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Continue watching despite errors.
		}
	}
}

// stop closes the watcher and waits for the event loop to exit.
func (w *fsWatcher) stop() {
	w.watcher.Close()
	<-w.done
}
