package bundle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// IgnoreFileName is the file listing paths to leave out, read from the bundle root.
const IgnoreFileName = ".mbbignore"

const byteOrderMark = "\ufeff"

// ErrIgnoreNotFound is matched when the bundle root has no ignore file.
var ErrIgnoreNotFound = errors.New("no " + IgnoreFileName + " found")

// IgnoreErrorKind classifies ignore-file load failures.
type IgnoreErrorKind int

// Ignore-file failure kinds. Only IgnoreNotFound is an expected condition.
const (
	IgnoreNotFound IgnoreErrorKind = iota
	IgnorePermissionDenied
	IgnoreOtherIO
)

// String returns a short name for the kind.
func (k IgnoreErrorKind) String() string {
	switch k {
	case IgnoreNotFound:
		return "not found"
	case IgnorePermissionDenied:
		return "permission denied"
	default:
		return "I/O error"
	}
}

// IgnoreLoadError describes why the ignore file could not be used.
type IgnoreLoadError struct {
	Path string
	Kind IgnoreErrorKind
	Err  error
}

// Error implements the error interface.
func (e *IgnoreLoadError) Error() string {
	return fmt.Sprintf("reading %s: %s: %v", e.Path, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IgnoreLoadError) Unwrap() error {
	return e.Err
}

// Is matches ErrIgnoreNotFound for IgnoreNotFound errors.
func (e *IgnoreLoadError) Is(target error) bool {
	return target == ErrIgnoreNotFound && e.Kind == IgnoreNotFound
}

// IgnoreSet is a set of absolute paths excluded from a bundle.
// Membership is an exact match on the cleaned absolute path.
type IgnoreSet struct {
	base  string
	paths map[string]struct{}
}

// NewIgnoreSet creates an empty set resolving relative entries against base.
func NewIgnoreSet(base string) *IgnoreSet {
	return &IgnoreSet{base: base, paths: make(map[string]struct{})}
}

// Add records entry. Relative entries, with or without a leading "./" or a
// trailing "/", are resolved against the set's base; absolute entries are
// kept as they are. Blank entries are ignored.
func (s *IgnoreSet) Add(entry string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return
	}
	entry = filepath.FromSlash(entry)
	if !filepath.IsAbs(entry) {
		entry = filepath.Join(s.base, entry)
	}
	s.paths[filepath.Clean(entry)] = struct{}{}
}

// Contains reports whether path is in the set.
func (s *IgnoreSet) Contains(path string) bool {
	if s == nil {
		return false
	}
	_, ok := s.paths[filepath.Clean(path)]
	return ok
}

// Len returns the number of entries.
func (s *IgnoreSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.paths)
}

// Paths returns the entries in sorted order.
func (s *IgnoreSet) Paths() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// LoadIgnore reads <base>/.mbbignore. On any failure it returns an empty set
// together with an *IgnoreLoadError; a missing file matches
// ErrIgnoreNotFound and should be treated as "no rules".
func LoadIgnore(base string) (*IgnoreSet, error) {
	path := filepath.Join(base, IgnoreFileName)

	f, err := os.Open(path)
	if err != nil {
		return NewIgnoreSet(base), classifyIgnoreError(path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	set, err := ParseIgnore(base, f)
	if err != nil {
		return NewIgnoreSet(base), classifyIgnoreError(path, err)
	}
	return set, nil
}

// ParseIgnore parses ignore-file content. Lines are trimmed; blank lines and
// lines starting with '#' are skipped. A leading UTF-8 byte order mark is
// dropped and lines may be of any length.
func ParseIgnore(base string, r io.Reader) (*IgnoreSet, error) {
	set := NewIgnoreSet(base)

	br := bufio.NewReader(r)
	for first := true; ; first = false {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}

		// Editors on Windows like to save with a BOM
		if first {
			line = strings.TrimPrefix(line, byteOrderMark)
		}
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			set.Add(line)
		}

		if err != nil {
			return set, nil
		}
	}
}

func classifyIgnoreError(path string, err error) *IgnoreLoadError {
	kind := IgnoreOtherIO
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = IgnoreNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = IgnorePermissionDenied
	}
	return &IgnoreLoadError{Path: path, Kind: kind, Err: err}
}
