// Package git provides the read-only git queries mbb needs, via exec.
//
// Commands run by shelling out to the git executable with -C pointing at
// the bundle root, capturing stdout/stderr:
//
//	client := git.NewClient(10 * time.Second)
//	files, err := client.ListTrackedFiles(ctx, "/path/to/project")
//	short, err := client.ShortRevision(ctx, "/path/to/project")
//
// HasMarker reports whether a directory carries a .git marker and is
// therefore worth querying.
//
// # Error Handling
//
// Every failure (git missing from PATH, non-zero exit, timeout) is returned
// as a *CommandError that matches ErrUnavailable:
//
//	if errors.Is(err, git.ErrUnavailable) {
//	    // fall back to a plain directory walk
//	}
package git
