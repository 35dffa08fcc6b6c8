package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// InvalidPathError reports a bundle directory that does not exist or is not
// a directory.
type InvalidPathError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid bundle directory %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *InvalidPathError) Unwrap() error {
	return e.Err
}

// errNotDirectory is the cause used when the path exists but is a file.
var errNotDirectory = errors.New("not a directory")

// ResolveBase returns the absolute, canonical form of dir. An empty dir
// means the current working directory.
func ResolveBase(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", &InvalidPathError{Path: dir, Err: err}
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &InvalidPathError{Path: dir, Err: err}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", &InvalidPathError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return "", &InvalidPathError{Path: dir, Err: errNotDirectory}
	}

	return filepath.Clean(resolved), nil
}

// TitleStem returns the directory name the archive is titled after. An
// explicit dir keeps the name the caller used, even when it is a symlink to
// a differently named directory. The current directory uses base.
func TitleStem(dir, base string) string {
	if dir == "" || filepath.Clean(dir) == "." {
		return filepath.Base(base)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Base(base)
	}
	return filepath.Base(abs)
}

// memberName converts an absolute path under base into a slash-separated
// archive member name.
func memberName(base, path string) (string, error) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
