package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// MarkerName is the repository marker looked for at the bundle root.
const MarkerName = ".git"

// ErrUnavailable is matched by every error returned from this package.
var ErrUnavailable = errors.New("source control unavailable")

// CommandError describes a failed git invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	cmd := "git " + strings.Join(e.Args, " ")
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", cmd, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", cmd, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// Is makes every CommandError match ErrUnavailable.
func (e *CommandError) Is(target error) bool {
	return target == ErrUnavailable
}

// RunContext executes git in dir with the given context and returns
// trimmed stdout.
func RunContext(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := runRaw(ctx, dir, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// runRaw executes git in dir and returns stdout untouched.
func runRaw(ctx context.Context, dir string, args ...string) ([]byte, error) {
	fullArgs := args
	if dir != "" {
		fullArgs = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", fullArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Timeout or cancellation wins over whatever git printed
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &CommandError{Args: args, Err: ctxErr}
		}

		// Check if git is not found
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, &CommandError{Args: args, Err: fmt.Errorf("git not found: ensure git is installed and in PATH: %w", err)}
		}

		// Git command failed - include stderr in message
		return nil, &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	return stdout.Bytes(), nil
}

// HasMarker reports whether dir contains a .git directory, or a .git file
// as left by worktrees and submodules.
func HasMarker(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, MarkerName))
	return err == nil
}
