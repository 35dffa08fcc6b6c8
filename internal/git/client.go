package git

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultTimeout bounds each git invocation when none is configured.
const DefaultTimeout = 10 * time.Second

// Client runs the two read-only queries the bundler relies on.
// A zero Client uses DefaultTimeout.
type Client struct {
	// Timeout bounds each invocation. Negative disables the bound.
	Timeout time.Duration
}

// NewClient creates a Client with the given per-call timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{Timeout: timeout}
}

// ListTrackedFiles returns the repository-relative, slash-separated paths of
// every file in the index of the repository rooted at dir. Untracked files
// and files ignored by git are never included.
func (c *Client) ListTrackedFiles(ctx context.Context, dir string) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := runRaw(ctx, dir, "ls-files", "-z", "--cached")
	if err != nil {
		return nil, err
	}
	return splitNUL(string(out)), nil
}

// ShortRevision returns the abbreviated hash of HEAD. It fails when the
// repository has no commits yet.
func (c *Client) ShortRevision(ctx context.Context, dir string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	short, err := RunContext(ctx, dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	if short == "" {
		return "", &CommandError{
			Args: []string{"rev-parse", "--short", "HEAD"},
			Err:  errors.New("empty revision"),
		}
	}
	return short, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout < 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// splitNUL splits NUL-terminated ls-files output, dropping empty records.
func splitNUL(out string) []string {
	var paths []string
	for rec := range strings.SplitSeq(out, "\x00") {
		if rec != "" {
			paths = append(paths, rec)
		}
	}
	return paths
}
