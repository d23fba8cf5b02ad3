package refract

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path resolves outside the filesystem
// root. The root is a chroot-style boundary: no access escapes above it.
var ErrOutsideRoot = errors.New("path outside root")

// FS is the filesystem boundary consumed by project computations. Paths are
// slash-separated and relative to the filesystem's root. Implementations
// enforce root confinement; a path escaping the root never resolves.
type FS interface {
	// ReadDir lists the directory at the given root-relative path.
	ReadDir(path string) ([]fs.DirEntry, error)

	// ReadFile returns the contents of the file at the given
	// root-relative path.
	ReadFile(path string) ([]byte, error)
}

// RootFS is an FS over the host filesystem, confined to a root directory.
type RootFS struct {
	root string
}

// NewRootFS creates a RootFS confined to root, which must be an absolute
// path.
func NewRootFS(root string) (*RootFS, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("root must be absolute, got %q", root)
	}
	return &RootFS{root: filepath.Clean(root)}, nil
}

// Root returns the confinement root.
func (f *RootFS) Root() string {
	return f.root
}

// ReadDir lists a directory under the root.
func (f *RootFS) ReadDir(path string) ([]fs.DirEntry, error) {
	resolved, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadDir(resolved)
}

// ReadFile reads a file under the root.
func (f *RootFS) ReadFile(path string) ([]byte, error) {
	resolved, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(resolved)
}

// resolve maps a root-relative path to a host path, rejecting any path that
// escapes the root.
func (f *RootFS) resolve(path string) (string, error) {
	joined := filepath.Join(f.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(f.root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, path)
	}
	return joined, nil
}

// nested reports whether child is equal to or nested under parent. Both
// must be absolute paths.
func nested(parent, child string) bool {
	parent = filepath.Clean(parent)
	child = filepath.Clean(child)
	if parent == child {
		return true
	}
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
