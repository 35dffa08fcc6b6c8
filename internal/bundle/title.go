package bundle

import (
	"context"
	"path/filepath"

	"splatte.dev/mbb/internal/git"
	"splatte.dev/mbb/internal/notice"
)

// ComposeTitle derives the archive title from stem, or from the bundle
// root's directory name when stem is empty. When useSCM is set and base carries a repository marker, the short
// revision is appended as "-<rev>". A failed revision lookup leaves the
// title unsuffixed and emits a notice.
func ComposeTitle(ctx context.Context, base, stem string, rev RevisionSource, useSCM bool, n notice.Notifier) string {
	n = notifierOrDiscard(n)
	title := stem
	if title == "" {
		title = filepath.Base(base)
	}

	if !useSCM || rev == nil {
		return title
	}
	if !git.HasMarker(base) {
		n.Notice("git is not initialized within directory, using directory's name", "title", title)
		return title
	}

	short, err := rev.ShortRevision(ctx, base)
	if err != nil {
		n.Notice("could not read current revision, using directory's name", "title", title, "err", err)
		return title
	}
	if short == "" {
		return title
	}
	return title + "-" + short
}
