package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"splatte.dev/mbb/internal/archive"
	"splatte.dev/mbb/internal/bundle"
	"splatte.dev/mbb/internal/config"
	"splatte.dev/mbb/internal/notice"
	"splatte.dev/mbb/internal/output"
)

// bundleFlags holds the parsed command-line flags.
type bundleFlags struct {
	dirname string
	git     bool
	verbose bool
	output  string
	dryRun  bool
	json    bool
	color   string
	config  string
}

// settings is the effective configuration after merging config files and
// explicitly set flags.
type settings struct {
	opts    bundle.Options
	verbose bool
	cfg     config.Config
}

// runBundle executes the bundle command.
func runBundle(cmd *cobra.Command, flags bundleFlags) error {
	stdout := cmd.OutOrStdout()
	color := output.ResolveColorMode(flags.color, output.IsTTY(stdout))
	printer := output.NewPrinter(stdout, flags.json, color).WithStderr(cmd.ErrOrStderr())

	// Validate flags before touching the filesystem
	if err := validateColor(flags.color); err != nil {
		printer.Error(err)
		return err
	}

	s, err := resolveSettings(cmd, flags)
	if err != nil {
		printer.Error(err)
		return err
	}

	var n notice.Notifier = notice.Discard
	if s.verbose {
		n = notice.NewLogger(cmd.ErrOrStderr(), output.ResolveColorMode(flags.color, output.IsTTY(cmd.ErrOrStderr())))
	}
	bundler := bundle.New(n, s.cfg.GitTimeout)
	ctx := cmd.Context()

	if flags.dryRun {
		plan, err := bundler.Plan(ctx, s.opts)
		if err != nil {
			exitErr := toExitError(err)
			printer.Error(exitErr)
			return exitErr
		}
		printWarnings(printer, plan.Warnings)
		return printPlan(printer, plan)
	}

	res, err := bundler.Run(ctx, s.opts)
	if err != nil {
		exitErr := toExitError(err)
		printer.Error(exitErr)
		return exitErr
	}
	printWarnings(printer, res.Plan.Warnings)
	return printResult(printer, res)
}

// resolveSettings loads config files and applies explicitly set flags on
// top. Flag defaults never override config values.
func resolveSettings(cmd *cobra.Command, flags bundleFlags) (*settings, error) {
	base, err := bundle.ResolveBase(flags.dirname)
	if err != nil {
		return nil, toExitError(err)
	}

	explicit := flags.config
	if explicit != "" {
		if _, err := config.LoadFile(explicit); err != nil {
			return nil, output.NewUserErrorWithCause("cannot read config "+explicit, err)
		}
	}

	cfg, _, err := config.Load(
		config.GlobalFile(),
		filepath.Join(base, bundle.ConfigFileName),
		explicit,
	)
	if err != nil {
		return nil, output.NewUserErrorWithCause("invalid configuration", err)
	}

	level, err := archive.ParseLevel(cfg.Compression)
	if err != nil {
		return nil, output.NewUserErrorWithCause("invalid configuration", err)
	}

	s := &settings{
		cfg: cfg,
		opts: bundle.Options{
			Dir:       flags.dirname,
			UseGit:    flags.git,
			OutputDir: flags.output,
			Exclude:   cfg.Exclude,
			Level:     level,
		},
		verbose: flags.verbose,
	}

	changed := cmd.Flags().Changed
	if !changed("git") && cfg.Git != nil {
		s.opts.UseGit = *cfg.Git
	}
	if !changed("verbose") && cfg.Verbose != nil {
		s.verbose = *cfg.Verbose
	}
	if !changed("output") && cfg.Output != "" {
		s.opts.OutputDir = cfg.Output
	}

	return s, nil
}

// toExitError maps bundle errors onto CLI exit codes.
func toExitError(err error) *output.ExitError {
	var exitErr *output.ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}

	var pathErr *bundle.InvalidPathError
	if errors.As(err, &pathErr) {
		return output.NewUserErrorWithCause("invalid bundle directory "+pathErr.Path, pathErr.Err)
	}

	if errors.Is(err, context.Canceled) {
		return output.NewSystemError("bundling interrupted")
	}

	var writeErr *bundle.WriteError
	if errors.As(err, &writeErr) {
		return output.NewSystemErrorWithCause("failed to write "+writeErr.Path, writeErr.Err)
	}

	return output.NewSystemErrorWithCause("bundling failed", err)
}

// validateColor rejects unknown --color values.
func validateColor(mode string) error {
	switch mode {
	case output.ColorAuto, output.ColorAlways, output.ColorNever:
		return nil
	default:
		return output.NewUserError(fmt.Sprintf("invalid --color value %q: want %s, %s or %s",
			mode, output.ColorAuto, output.ColorAlways, output.ColorNever))
	}
}

func printWarnings(printer *output.Printer, warnings []string) {
	for _, w := range warnings {
		printer.Warn("%s", w)
	}
}

// printPlan outputs a dry run.
func printPlan(printer *output.Printer, plan *bundle.Plan) error {
	if printer.IsJSON() {
		return printer.WriteJSON(plan)
	}

	printer.Members(plan.Names())
	return printer.Success(map[string]any{
		"message":  fmt.Sprintf("would write %s (%d files)", filepath.Base(plan.ArchivePath), len(plan.Members)),
		"strategy": string(plan.Strategy),
		"archive":  plan.ArchivePath,
	}, "strategy", "archive")
}

// printResult outputs a completed bundle.
func printResult(printer *output.Printer, res *bundle.Result) error {
	data := map[string]any{
		"message":  fmt.Sprintf("wrote %s (%d files)", filepath.Base(res.Archive.Path), res.Archive.Members),
		"archive":  res.Archive.Path,
		"title":    res.Plan.Title,
		"strategy": string(res.Plan.Strategy),
		"files":    res.Archive.Members,
		"bytes":    res.Archive.Size,
	}
	if printer.IsJSON() {
		data["members"] = res.Plan.Names()
		if len(res.Plan.Warnings) > 0 {
			data["warnings"] = res.Plan.Warnings
		}
	}
	return printer.Success(data, "archive", "strategy")
}
