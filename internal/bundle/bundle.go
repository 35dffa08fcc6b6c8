package bundle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"splatte.dev/mbb/internal/archive"
	"splatte.dev/mbb/internal/git"
	"splatte.dev/mbb/internal/notice"
)

// ConfigFileName is the per-project configuration file. Like the ignore
// file it is bundler metadata and never part of the archive.
const ConfigFileName = ".mbb.yaml"

// Options describes one bundling run.
type Options struct {
	// Dir is the bundle root. Empty means the current working directory.
	Dir string
	// UseGit restricts the bundle to git-tracked files when possible.
	UseGit bool
	// OutputDir receives the archive. Empty means the current working
	// directory.
	OutputDir string
	// Exclude holds extra ignore entries, resolved like .mbbignore lines.
	Exclude []string
	// Level is the gzip compression level passed to the archive writer.
	Level int
}

// Plan is the outcome of file selection, before anything is written.
type Plan struct {
	Base        string           `json:"base"`
	Title       string           `json:"title"`
	ArchivePath string           `json:"archive"`
	Strategy    Strategy         `json:"strategy"`
	Members     []archive.Member `json:"members"`
	// Ignored lists the resolved ignore entries, built-ins included.
	Ignored []string `json:"ignored"`
	// Warnings are problems worth showing even without verbose notices.
	Warnings []string `json:"warnings,omitempty"`
}

// Names returns the member names in order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Members))
	for i, m := range p.Members {
		names[i] = m.Name
	}
	return names
}

// Result is the outcome of a completed run.
type Result struct {
	Plan    *Plan          `json:"plan"`
	Archive archive.Result `json:"archive"`
}

// WriteError reports a failure to produce the archive. The partial output
// has already been removed when it is returned.
type WriteError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// Bundler wires the pipeline stages to their collaborators.
type Bundler struct {
	// SCM answers source-control queries. Nil disables git mode.
	SCM SCM
	// Notifier receives recoverable notices. Nil discards them.
	Notifier notice.Notifier
}

// New creates a Bundler backed by the git executable.
func New(n notice.Notifier, gitTimeout time.Duration) *Bundler {
	return &Bundler{SCM: git.NewClient(gitTimeout), Notifier: n}
}

// Plan resolves the bundle root, loads ignore rules, selects files and
// composes the archive name. Only an invalid bundle root is an error.
func (b *Bundler) Plan(ctx context.Context, opts Options) (*Plan, error) {
	n := notifierOrDiscard(b.Notifier)

	base, err := ResolveBase(opts.Dir)
	if err != nil {
		return nil, err
	}
	n.Notice("found path", "path", base)
	stem := TitleStem(opts.Dir, base)

	outDir, err := resolveOutputDir(opts.OutputDir)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Base: base}

	// Missing ignore file is normal; other read failures only warn
	ignore, err := LoadIgnore(base)
	switch {
	case errors.Is(err, ErrIgnoreNotFound):
		n.Notice("no ignore file found, bundling without ignore rules", "file", IgnoreFileName)
	case err != nil:
		plan.Warnings = append(plan.Warnings, err.Error()+"; continuing without ignore rules")
	default:
		n.Notice("loaded ignore rules", "file", IgnoreFileName, "entries", ignore.Len())
	}
	addBuiltinExcludes(ignore, base)
	for _, entry := range opts.Exclude {
		ignore.Add(entry)
	}

	selector := ChooseSelector(SelectorConfig{
		Base:     base,
		Ignore:   ignore,
		UseSCM:   opts.UseGit,
		SCM:      b.SCM,
		Notifier: n,
	})

	files, err := selector.Select(ctx)
	scmDown := false
	if err != nil && selector.Strategy() == StrategyTracked {
		// git failed or timed out - degrade to the walk
		n.Notice("listing tracked files failed, walking the whole directory", "err", err)
		scmDown = errors.Is(err, git.ErrUnavailable)
		selector = &WalkSelector{Base: base, Ignore: ignore, Notifier: n}
		files, err = selector.Select(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting files: %w", err)
	}
	plan.Strategy = selector.Strategy()

	plan.Ignored = ignore.Paths()

	// Don't wait out a second timeout on a git that already failed
	if scmDown {
		n.Notice("source control unavailable, using directory's name", "title", stem)
	}
	plan.Title = ComposeTitle(ctx, base, stem, b.SCM, opts.UseGit && !scmDown, n)
	plan.ArchivePath = filepath.Join(outDir, plan.Title+archive.Extension)

	plan.Members = make([]archive.Member, 0, len(files))
	for _, path := range files {
		// Never bundle the archive into itself
		if path == plan.ArchivePath {
			continue
		}
		name, err := memberName(base, path)
		if err != nil {
			return nil, fmt.Errorf("naming %s: %w", path, err)
		}
		plan.Members = append(plan.Members, archive.Member{Path: path, Name: name})
	}
	n.Notice("selected files", "count", len(plan.Members), "strategy", string(plan.Strategy))

	return plan, nil
}

// Run plans the bundle and writes the archive. Archive failures are
// returned as *WriteError.
func (b *Bundler) Run(ctx context.Context, opts Options) (*Result, error) {
	plan, err := b.Plan(ctx, opts)
	if err != nil {
		return nil, err
	}

	n := notifierOrDiscard(b.Notifier)
	n.Notice("writing archive", "path", plan.ArchivePath)

	res, err := archive.WriteTarGz(ctx, plan.ArchivePath, plan.Members, archive.Options{Level: opts.Level})
	if err != nil {
		return nil, &WriteError{Path: plan.ArchivePath, Err: err}
	}
	n.Notice("bundled", "path", res.Path, "members", res.Members, "bytes", res.Size)

	return &Result{Plan: plan, Archive: res}, nil
}

// addBuiltinExcludes adds the bundler's own metadata and the repository
// marker to the ignore set.
func addBuiltinExcludes(ignore *IgnoreSet, base string) {
	ignore.Add(filepath.Join(base, IgnoreFileName))
	ignore.Add(filepath.Join(base, ConfigFileName))
	ignore.Add(filepath.Join(base, git.MarkerName))
}

// resolveOutputDir returns the absolute output directory, canonicalized
// when it exists so it compares equal to selected paths.
func resolveOutputDir(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving output directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}
