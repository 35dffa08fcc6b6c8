// Package output provides structured output and exit-code handling for mbb.
//
// # Printer
//
// Printer writes either human-readable or JSON output:
//
//	printer := output.NewPrinter(cmd.OutOrStdout(), jsonMode, output.IsTTY(cmd.OutOrStdout()))
//	printer.Success(map[string]any{"message": "wrote mbb-1a2b3c4.tar.gz"})
//	printer.Members(names)
//	printer.Warn("ignore file unreadable: %v", err)
//	printer.Error(err)
//
// Human output is styled with lipgloss; styles are cleared when the writer
// is not a terminal or --color never is in effect.
//
// # Exit Codes
//
//	output.ExitSuccess     // 0: bundle written (or dry run completed)
//	output.ExitUserError   // 1: bad directory, bad flags, bad config
//	output.ExitSystemError // 2: archive could not be written
//
// Errors carrying a code are built with NewUserError, NewUserErrorWithCause,
// NewSystemError and NewSystemErrorWithCause. GetExitCode maps any error to
// the process exit code.
package output
