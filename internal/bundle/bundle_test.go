package bundle

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/klauspost/compress/gzip"

	"splatte.dev/mbb/internal/archive"
	"splatte.dev/mbb/internal/git"
	"splatte.dev/mbb/internal/notice"
)

// extract reads a tar.gz archive into a name -> content map.
func extract(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	tr := tar.NewReader(gz)

	out := make(map[string]string)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("tar: %v", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("read %s: %v", hdr.Name, err)
		}
		out[hdr.Name] = string(data)
	}
}

func TestBundler_PlanWalk(t *testing.T) {
	base := makeTree(t, map[string]string{
		"a.txt":        "a",
		"b.txt":        "b",
		"sub/c.txt":    "c",
		IgnoreFileName: "# release bundle\nb.txt\n",
	})
	out := t.TempDir()

	var rec notice.Recorder
	b := &Bundler{Notifier: &rec}
	plan, err := b.Plan(context.Background(), Options{Dir: base, OutputDir: out})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if plan.Base != base {
		t.Errorf("Base = %q, want %q", plan.Base, base)
	}
	if plan.Strategy != StrategyWalk {
		t.Errorf("Strategy = %q", plan.Strategy)
	}
	if plan.Title != filepath.Base(base) {
		t.Errorf("Title = %q", plan.Title)
	}
	resolvedOut, err := filepath.EvalSymlinks(out)
	if err != nil {
		t.Fatal(err)
	}
	wantArchive := filepath.Join(resolvedOut, filepath.Base(base)+archive.Extension)
	if plan.ArchivePath != wantArchive {
		t.Errorf("ArchivePath = %q, want %q", plan.ArchivePath, wantArchive)
	}
	assertNames(t, plan.Names(), []string{"a.txt", "sub/c.txt"})
	for _, want := range []string{filepath.Join(base, "b.txt"), filepath.Join(base, IgnoreFileName)} {
		if !slices.Contains(plan.Ignored, want) {
			t.Errorf("Ignored = %q, missing %q", plan.Ignored, want)
		}
	}
	if len(plan.Warnings) != 0 {
		t.Errorf("Warnings = %q", plan.Warnings)
	}
	if !hasNotice(&rec, "found path") || !hasNotice(&rec, "loaded ignore rules") {
		t.Errorf("notices = %q", rec.Messages())
	}
}

func TestBundler_PlanMissingIgnoreFileNotice(t *testing.T) {
	base := makeTree(t, map[string]string{"a.txt": "a"})

	var rec notice.Recorder
	plan, err := (&Bundler{Notifier: &rec}).Plan(context.Background(), Options{Dir: base, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	assertNames(t, plan.Names(), []string{"a.txt"})
	if !hasNotice(&rec, "no ignore file found") {
		t.Errorf("notices = %q", rec.Messages())
	}
	if len(plan.Warnings) != 0 {
		t.Errorf("missing ignore file must not warn: %q", plan.Warnings)
	}
}

func TestBundler_PlanIgnoreIOErrorWarns(t *testing.T) {
	base := makeTree(t, map[string]string{"a.txt": "a"})
	mkdir(t, filepath.Join(base, IgnoreFileName))

	plan, err := (&Bundler{}).Plan(context.Background(), Options{Dir: base, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.Warnings) != 1 {
		t.Errorf("Warnings = %q, want one", plan.Warnings)
	}
	// The ignore-file directory itself is a built-in exclusion.
	assertNames(t, plan.Names(), []string{"a.txt"})
}

func TestBundler_PlanInvalidDir(t *testing.T) {
	_, err := (&Bundler{}).Plan(context.Background(), Options{Dir: filepath.Join(t.TempDir(), "missing")})
	var pathErr *InvalidPathError
	if !errors.As(err, &pathErr) {
		t.Errorf("error = %v, want *InvalidPathError", err)
	}
}

func TestBundler_PlanExtraExcludes(t *testing.T) {
	base := makeTree(t, map[string]string{
		"a.txt":      "a",
		"build/o.o":  "o",
		"notes.md":   "n",
		"src/main.c": "m",
	})

	plan, err := (&Bundler{}).Plan(context.Background(), Options{
		Dir:       base,
		OutputDir: t.TempDir(),
		Exclude:   []string{"build/", "notes.md"},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	assertNames(t, plan.Names(), []string{"a.txt", "src/main.c"})
}

func TestBundler_PlanGit(t *testing.T) {
	base := makeTree(t, map[string]string{
		".git/HEAD":    "ref",
		"a.txt":        "a",
		"b.txt":        "b",
		"scratch.txt":  "untracked",
		IgnoreFileName: "b.txt\n",
	})
	scm := &fakeSCM{tracked: []string{"a.txt", "b.txt", IgnoreFileName}, rev: "1a2b3c4"}

	plan, err := (&Bundler{SCM: scm}).Plan(context.Background(), Options{Dir: base, UseGit: true, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Strategy != StrategyTracked {
		t.Errorf("Strategy = %q", plan.Strategy)
	}
	if plan.Title != filepath.Base(base)+"-1a2b3c4" {
		t.Errorf("Title = %q", plan.Title)
	}
	assertNames(t, plan.Names(), []string{"a.txt"})
}

func TestBundler_PlanGitScenarioC(t *testing.T) {
	base := makeTree(t, map[string]string{
		".git/HEAD":    "ref",
		"a.txt":        "a",
		IgnoreFileName: "a.txt\n",
	})
	scm := &fakeSCM{tracked: []string{"a.txt"}, rev: "abc1234"}

	plan, err := (&Bundler{SCM: scm}).Plan(context.Background(), Options{Dir: base, UseGit: true, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.Members) != 0 {
		t.Errorf("Members = %v, want none", plan.Members)
	}
}

func TestBundler_PlanGitScenarioD(t *testing.T) {
	base := makeTree(t, map[string]string{"a.txt": "a", "sub/b.txt": "b"})
	scm := &fakeSCM{tracked: []string{"a.txt"}, rev: "abc1234"}

	var rec notice.Recorder
	plan, err := (&Bundler{SCM: scm, Notifier: &rec}).Plan(context.Background(), Options{Dir: base, UseGit: true, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Strategy != StrategyWalk {
		t.Errorf("Strategy = %q, want walk fallback", plan.Strategy)
	}
	assertNames(t, plan.Names(), []string{"a.txt", "sub/b.txt"})
	if plan.Title != filepath.Base(base) {
		t.Errorf("Title = %q, want unsuffixed", plan.Title)
	}
	if scm.listCalls != 0 || scm.revCalls != 0 {
		t.Errorf("git queried without marker: list=%d rev=%d", scm.listCalls, scm.revCalls)
	}
	if !hasNotice(&rec, "git is not initialized") {
		t.Errorf("notices = %q", rec.Messages())
	}
}

func TestBundler_PlanGitFailureFallsBack(t *testing.T) {
	base := makeTree(t, map[string]string{
		".git/HEAD":    "ref",
		"a.txt":        "a",
		"scratch.txt":  "s",
		IgnoreFileName: "scratch.txt\n",
	})
	scm := &fakeSCM{listErr: errors.New("timed out"), revErr: errors.New("timed out")}

	var rec notice.Recorder
	plan, err := (&Bundler{SCM: scm, Notifier: &rec}).Plan(context.Background(), Options{Dir: base, UseGit: true, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Strategy != StrategyWalk {
		t.Errorf("Strategy = %q", plan.Strategy)
	}
	assertNames(t, plan.Names(), []string{"a.txt"})
	if plan.Title != filepath.Base(base) {
		t.Errorf("Title = %q", plan.Title)
	}
	if !hasNotice(&rec, "listing tracked files failed") {
		t.Errorf("notices = %q", rec.Messages())
	}
}

func TestBundler_RunRoundTrip(t *testing.T) {
	files := map[string]string{
		"README.md":        "# demo\n",
		"cmd/app/main.go":  "package main\n\nfunc main() {}\n",
		"assets/logo.svg":  "<svg/>",
		"assets/empty.txt": "",
		"skip/me.txt":      "nope",
		IgnoreFileName:     "skip\n",
	}
	base := makeTree(t, files)
	out := t.TempDir()

	res, err := (&Bundler{}).Run(context.Background(), Options{Dir: base, OutputDir: out})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := extract(t, res.Archive.Path)
	want := []string{"README.md", "assets/empty.txt", "assets/logo.svg", "cmd/app/main.go"}
	var names []string
	for name := range got {
		names = append(names, name)
	}
	slices.Sort(names)
	assertNames(t, names, want)

	for _, m := range res.Plan.Members {
		src, err := os.ReadFile(m.Path)
		if err != nil {
			t.Fatal(err)
		}
		if got[m.Name] != string(src) {
			t.Errorf("%s: extracted content differs from source", m.Name)
		}
		if rel, _ := filepath.Rel(base, m.Path); filepath.ToSlash(rel) != m.Name {
			t.Errorf("member name %q does not match relative path %q", m.Name, rel)
		}
	}
}

func TestBundler_RunOutputInsideBase(t *testing.T) {
	base := makeTree(t, map[string]string{"a.txt": "a"})
	stale := filepath.Join(base, filepath.Base(base)+archive.Extension)
	writeFile(t, stale, "old archive")

	res, err := (&Bundler{}).Run(context.Background(), Options{Dir: base, OutputDir: base})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Archive.Path != stale {
		t.Errorf("archive path = %q, want %q", res.Archive.Path, stale)
	}
	assertNames(t, res.Plan.Names(), []string{"a.txt"})

	got := extract(t, stale)
	if len(got) != 1 || got["a.txt"] != "a" {
		t.Errorf("archive entries = %v", got)
	}
}

func TestBundler_RunWriteFailure(t *testing.T) {
	base := makeTree(t, map[string]string{"a.txt": "a"})
	missingOut := filepath.Join(t.TempDir(), "does", "not", "exist")

	_, err := (&Bundler{}).Run(context.Background(), Options{Dir: base, OutputDir: missingOut})
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("error = %v, want *WriteError", err)
	}
	if _, statErr := os.Stat(writeErr.Path); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("archive should not exist after failure: %v", statErr)
	}
}

func TestBundler_PlanTitleFollowsSymlinkName(t *testing.T) {
	target := makeTree(t, map[string]string{"a.txt": "a"})
	link := filepath.Join(t.TempDir(), "myproject")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	plan, err := (&Bundler{}).Plan(context.Background(), Options{Dir: link, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Base != target {
		t.Errorf("Base = %q, want %q", plan.Base, target)
	}
	if plan.Title != "myproject" {
		t.Errorf("Title = %q, want %q", plan.Title, "myproject")
	}
	if filepath.Base(plan.ArchivePath) != "myproject"+archive.Extension {
		t.Errorf("ArchivePath = %q", plan.ArchivePath)
	}
	assertNames(t, plan.Names(), []string{"a.txt"})
}

func TestBundler_PlanGitUnavailableSkipsRevision(t *testing.T) {
	base := makeTree(t, map[string]string{
		".git/HEAD": "ref",
		"a.txt":     "a",
	})
	unavailable := &git.CommandError{Args: []string{"ls-files"}, Err: context.DeadlineExceeded}
	scm := &fakeSCM{listErr: unavailable, rev: "1a2b3c4"}

	var rec notice.Recorder
	plan, err := (&Bundler{SCM: scm, Notifier: &rec}).Plan(context.Background(), Options{Dir: base, UseGit: true, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if scm.revCalls != 0 {
		t.Errorf("ShortRevision calls = %d, want 0", scm.revCalls)
	}
	if plan.Title != filepath.Base(base) {
		t.Errorf("Title = %q, want %q", plan.Title, filepath.Base(base))
	}
	if plan.Strategy != StrategyWalk {
		t.Errorf("Strategy = %q", plan.Strategy)
	}
	if !hasNotice(&rec, "source control unavailable") {
		t.Errorf("notices = %q", rec.Messages())
	}
}
