package bundle

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"splatte.dev/mbb/internal/notice"
)

// fakeSCM is an in-memory source-control collaborator.
type fakeSCM struct {
	tracked   []string
	listErr   error
	rev       string
	revErr    error
	listCalls int
	revCalls  int
}

func (f *fakeSCM) ListTrackedFiles(context.Context, string) ([]string, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tracked, nil
}

func (f *fakeSCM) ShortRevision(context.Context, string) (string, error) {
	f.revCalls++
	if f.revErr != nil {
		return "", f.revErr
	}
	return f.rev, nil
}

// makeTree creates a temporary bundle root holding the given files and
// returns its canonical path. Keys are slash-separated relative paths.
func makeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	base, err := ResolveBase(t.TempDir())
	if err != nil {
		t.Fatalf("ResolveBase: %v", err)
	}
	for name, content := range files {
		writeFile(t, filepath.Join(base, filepath.FromSlash(name)), content)
	}
	return base
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

// relNames converts absolute selected paths back to member names.
func relNames(t *testing.T, base string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		name, err := memberName(base, p)
		if err != nil {
			t.Fatalf("memberName(%s): %v", p, err)
		}
		out = append(out, name)
	}
	return out
}

func assertNames(t *testing.T, got, want []string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	if got == nil {
		got = []string{}
	}
	if !slices.Equal(got, want) {
		t.Errorf("selected = %q, want %q", got, want)
	}
}

func hasNotice(rec *notice.Recorder, substr string) bool {
	for _, msg := range rec.Messages() {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
