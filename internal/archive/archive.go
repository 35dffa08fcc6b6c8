package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Extension is appended to the archive title to form the file name.
const Extension = ".tar.gz"

// Compression levels accepted by ParseLevel.
const (
	LevelFast    = "fast"
	LevelDefault = "default"
	LevelBest    = "best"
)

// Member is one file to store in the archive.
type Member struct {
	// Path is the absolute path of the source file.
	Path string `json:"path"`
	// Name is the slash-separated name stored in the archive.
	Name string `json:"name"`
}

// Options controls archive creation.
type Options struct {
	// Level is a gzip compression level. Zero means gzip.DefaultCompression.
	Level int
}

// Result describes a written archive.
type Result struct {
	Path    string `json:"path"`
	Members int    `json:"members"`
	// Bytes is the total uncompressed size of the stored files.
	Bytes int64 `json:"bytes"`
	// Size is the size of the archive file on disk.
	Size int64 `json:"size"`
}

// MemberError reports which member could not be added.
type MemberError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *MemberError) Error() string {
	return fmt.Sprintf("adding %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying cause.
func (e *MemberError) Unwrap() error {
	return e.Err
}

// ParseLevel maps a compression name to a gzip level.
// The empty string selects the default level.
func ParseLevel(name string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LevelDefault:
		return gzip.DefaultCompression, nil
	case LevelFast:
		return gzip.BestSpeed, nil
	case LevelBest:
		return gzip.BestCompression, nil
	default:
		return 0, fmt.Errorf("unknown compression %q: want %s, %s or %s", name, LevelFast, LevelDefault, LevelBest)
	}
}

// WriteTarGz writes members into a gzip-compressed tar archive at dest,
// replacing any existing file. Any failure aborts the whole archive and
// removes the partial output.
func WriteTarGz(ctx context.Context, dest string, members []Member, opts Options) (res Result, err error) {
	level := opts.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}

	// Same directory as dest so the final rename stays on one filesystem
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return Result{}, fmt.Errorf("creating archive: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	gz, err := gzip.NewWriterLevel(tmp, level)
	if err != nil {
		return Result{}, fmt.Errorf("creating gzip writer: %w", err)
	}
	tw := tar.NewWriter(gz)

	// Stream each member; the first failure aborts the archive
	var total int64
	for _, m := range members {
		if err = ctx.Err(); err != nil {
			return Result{}, err
		}
		n, addErr := addMember(tw, m)
		if addErr != nil {
			err = &MemberError{Name: m.Name, Err: addErr}
			return Result{}, err
		}
		total += n
	}

	// Flush tar then gzip trailers before the file hits disk
	if err = tw.Close(); err != nil {
		return Result{}, fmt.Errorf("finishing tar stream: %w", err)
	}
	if err = gz.Close(); err != nil {
		return Result{}, fmt.Errorf("finishing gzip stream: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return Result{}, fmt.Errorf("syncing archive: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("inspecting archive: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("closing archive: %w", err)
	}
	// CreateTemp uses 0600
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return Result{}, fmt.Errorf("setting archive permissions: %w", err)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return Result{}, fmt.Errorf("moving archive into place: %w", err)
	}

	return Result{
		Path:    dest,
		Members: len(members),
		Bytes:   total,
		Size:    info.Size(),
	}, nil
}

// addMember stores one regular file and returns the number of content
// bytes written.
func addMember(tw *tar.Writer, m Member) (int64, error) {
	if err := validName(m.Name); err != nil {
		return 0, err
	}

	f, err := os.Open(m.Path)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck // read-only file

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("not a regular file: %s", m.Path)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return 0, err
	}
	hdr.Name = m.Name
	// Ownership is not recorded
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "", ""

	if err := tw.WriteHeader(hdr); err != nil {
		return 0, err
	}
	n, err := io.CopyN(tw, f, hdr.Size)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, fmt.Errorf("file shrank while archiving: %s", m.Path)
		}
		return n, err
	}
	return n, nil
}

// validName rejects names that would extract outside the archive root.
func validName(name string) error {
	switch {
	case name == "" || name == ".":
		return errors.New("empty member name")
	case strings.HasPrefix(name, "/"):
		return fmt.Errorf("absolute member name %q", name)
	case strings.HasPrefix(name, "./"):
		return fmt.Errorf("member name %q has a leading ./", name)
	}
	if cleaned := path.Clean(name); cleaned != name || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("member name %q is not a clean relative path", name)
	}
	return nil
}
