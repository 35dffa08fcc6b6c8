// Package main provides the entry point for the mbb CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"splatte.dev/mbb/internal/output"
)

// Build info set via ldflags at build time.
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123 -X main.date=2026-01-01"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// buildVersion returns the full version string including commit and date.
func buildVersion() string {
	if commit == "none" && date == "unknown" {
		return version
	}
	shortCommit := commit
	if len(commit) > 7 {
		shortCommit = commit[:7]
	}
	return fmt.Sprintf("%s (%s, %s)", version, shortCommit, date)
}

func main() {
	code := run()
	os.Exit(code)
}

func run() int {
	cmd := newRootCmd()
	err := fang.Execute(context.Background(), cmd,
		fang.WithVersion(buildVersion()),
		fang.WithErrorHandler(errorHandler),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	)
	return output.GetExitCode(err)
}

// errorHandler leaves errors the printer already reported alone and hands
// everything else (flag parsing, unknown arguments) to fang.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *output.ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// newRootCmd creates the mbb command. mbb has no subcommands: the root
// command bundles.
func newRootCmd() *cobra.Command {
	var flags bundleFlags

	cmd := &cobra.Command{
		Use:   "mbb",
		Short: "Bundle a project directory into a release archive",
		Long: `monkey-business-bundler - splatte.dev's build and release system.

mbb packs a project directory into <name>[-<revision>].tar.gz:
  - Paths listed in .mbbignore are left out (directories are pruned)
  - With --git, only files tracked by git are bundled and the archive
    name carries the short revision of HEAD
  - Without a .git directory, --git falls back to the whole directory

Check out more software releases at https://splatte.dev`,
		Example: `  mbb                       # bundle the current directory
  mbb -d ./site -g          # bundle git-tracked files of ./site
  mbb -n --json             # list what would be bundled, as JSON
  mbb -v -o dist            # write into dist/ with progress notices`,
		Version:       buildVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBundle(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.dirname, "dirname", "d", ".", "directory to bundle")
	f.BoolVarP(&flags.git, "git", "g", false, "only bundle files tracked by git")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "add verbose logging to the bundle process")
	f.StringVarP(&flags.output, "output", "o", "", "directory to write the archive to (default: current directory)")
	f.BoolVarP(&flags.dryRun, "dry-run", "n", false, "list the files that would be bundled without writing")
	f.BoolVar(&flags.json, "json", false, "output in JSON format")
	f.StringVar(&flags.color, "color", output.ColorAuto, "colorize output: auto, always or never")
	f.StringVar(&flags.config, "config", "", "read settings from this YAML file as well")

	lipgloss.SetHasDarkBackground(true)

	return cmd
}
