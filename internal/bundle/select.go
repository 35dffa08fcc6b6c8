package bundle

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"splatte.dev/mbb/internal/git"
	"splatte.dev/mbb/internal/notice"
)

// Strategy names the selection strategy that produced a FileList.
type Strategy string

// Selection strategies.
const (
	StrategyWalk    Strategy = "walk"
	StrategyTracked Strategy = "git"
)

// TrackedLister lists the repository-relative, slash-separated paths of the
// files tracked in the repository rooted at dir.
type TrackedLister interface {
	ListTrackedFiles(ctx context.Context, dir string) ([]string, error)
}

// RevisionSource returns the short revision of the repository rooted at dir.
type RevisionSource interface {
	ShortRevision(ctx context.Context, dir string) (string, error)
}

// SCM is the source-control collaborator. *git.Client implements it.
type SCM interface {
	TrackedLister
	RevisionSource
}

// Selector produces the sorted list of absolute regular-file paths to
// bundle. No returned path is a member of the ignore set and none repeats.
type Selector interface {
	Select(ctx context.Context) ([]string, error)
	Strategy() Strategy
}

// WalkSelector walks the bundle root, pruning ignored directories before
// descending into them.
type WalkSelector struct {
	Base     string
	Ignore   *IgnoreSet
	Notifier notice.Notifier
}

// Strategy implements Selector.
func (s *WalkSelector) Strategy() Strategy { return StrategyWalk }

// Select implements Selector. Entries that cannot be read are skipped with a
// notice; symlinks and other non-regular files are skipped as well.
func (s *WalkSelector) Select(ctx context.Context) ([]string, error) {
	n := notifierOrDiscard(s.Notifier)
	var files []string

	err := filepath.WalkDir(s.Base, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Unreadable entries are skipped, never fatal
		if walkErr != nil {
			n.Notice("skipping unreadable path", "path", path, "err", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Prune ignored directories before descending
		if d.IsDir() {
			if s.Ignore.Contains(path) {
				n.Notice("pruning ignored directory", "path", path)
				return filepath.SkipDir
			}
			return nil
		}

		if s.Ignore.Contains(path) {
			return nil
		}
		// Symlinks, sockets, devices
		if !d.Type().IsRegular() {
			n.Notice("skipping non-regular file", "path", path, "type", d.Type().String())
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

// TrackedSelector selects the files git tracks under the bundle root and
// subtracts the ignore set by exact path. Ignored directories do not prune
// tracked files beneath them.
type TrackedSelector struct {
	Base     string
	Ignore   *IgnoreSet
	Lister   TrackedLister
	Notifier notice.Notifier
}

// Strategy implements Selector.
func (s *TrackedSelector) Strategy() Strategy { return StrategyTracked }

// Select implements Selector. Tracked paths missing from disk (deleted but
// not yet committed) or not regular files are skipped with a notice.
func (s *TrackedSelector) Select(ctx context.Context) ([]string, error) {
	n := notifierOrDiscard(s.Notifier)

	tracked, err := s.Lister.ListTrackedFiles(ctx, s.Base)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(tracked))
	files := make([]string, 0, len(tracked))
	for _, rel := range tracked {
		path := filepath.Join(s.Base, filepath.FromSlash(rel))
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}

		// Exact match only; ignored directories do not hide tracked files
		if s.Ignore.Contains(path) {
			continue
		}

		// Tracked but deleted in the working tree
		info, err := os.Lstat(path)
		if err != nil {
			n.Notice("skipping tracked file missing from disk", "path", path, "err", err)
			continue
		}
		if !info.Mode().IsRegular() {
			n.Notice("skipping non-regular tracked entry", "path", path, "type", info.Mode().Type().String())
			continue
		}

		files = append(files, path)
	}

	slices.Sort(files)
	return files, nil
}

// SelectorConfig holds the inputs to ChooseSelector.
type SelectorConfig struct {
	Base     string
	Ignore   *IgnoreSet
	UseSCM   bool
	SCM      TrackedLister
	Notifier notice.Notifier
}

// ChooseSelector returns a TrackedSelector when source-control mode is on, a
// client is available and the bundle root carries a repository marker.
// Otherwise it returns a WalkSelector, emitting a notice when source-control
// mode was asked for but cannot be honored.
func ChooseSelector(cfg SelectorConfig) Selector {
	n := notifierOrDiscard(cfg.Notifier)
	walk := &WalkSelector{Base: cfg.Base, Ignore: cfg.Ignore, Notifier: n}

	if !cfg.UseSCM {
		return walk
	}
	if cfg.SCM == nil {
		n.Notice("source control unavailable, walking the whole directory")
		return walk
	}
	if !git.HasMarker(cfg.Base) {
		n.Notice("git is not initialized within directory, walking the whole directory", "path", cfg.Base)
		return walk
	}

	return &TrackedSelector{Base: cfg.Base, Ignore: cfg.Ignore, Lister: cfg.SCM, Notifier: n}
}

func notifierOrDiscard(n notice.Notifier) notice.Notifier {
	if n == nil {
		return notice.Discard
	}
	return n
}
