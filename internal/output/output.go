package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer handles formatted output to a writer.
// It supports both JSON and human-readable output modes.
type Printer struct {
	w      io.Writer
	errW   io.Writer
	json   bool
	isTTY  bool
	styles *Styles
}

// Styles holds lipgloss styles for human-readable output.
type Styles struct {
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Bold    lipgloss.Style
	Dim     lipgloss.Style
	Key     lipgloss.Style
}

// NewPrinter creates a new Printer.
// If jsonMode is true, output will be JSON formatted.
// If isTTY is true, colors will be enabled for human output.
func NewPrinter(writer io.Writer, jsonMode bool, isTTY bool) *Printer {
	styles := &Styles{
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true), // Red
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),           // Green
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),           // Yellow
		Bold:    lipgloss.NewStyle().Bold(true),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Key:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")), // Cyan
	}

	if !isTTY {
		plain := lipgloss.NewStyle()
		styles = &Styles{
			Error:   plain,
			Success: plain,
			Warning: plain,
			Bold:    plain,
			Dim:     plain,
			Key:     plain,
		}
	}

	return &Printer{
		w:      writer,
		errW:   writer,
		json:   jsonMode,
		isTTY:  isTTY,
		styles: styles,
	}
}

// WithStderr sets a separate writer for errors and warnings in human mode.
// In JSON mode, errors still go to the main writer.
// Returns the printer for chaining.
func (p *Printer) WithStderr(w io.Writer) *Printer {
	p.errW = w
	return p
}

// IsJSON returns true if the printer is in JSON mode.
func (p *Printer) IsJSON() bool {
	return p.json
}

// IsTTY returns true if the printer output is a TTY.
func (p *Printer) IsTTY() bool {
	return p.isTTY
}

// Success outputs a success result.
// For JSON mode, outputs the data as JSON.
// For human mode, prints the "message" key, or every key in order of keys.
func (p *Printer) Success(data map[string]any, keys ...string) error {
	if p.json {
		return p.writeJSON(data)
	}

	if msg, ok := data["message"].(string); ok {
		mustWrite(fmt.Fprintln(p.w, p.styles.Success.Render(msg)))
	}
	for _, key := range keys {
		if val, ok := data[key]; ok {
			p.KeyValue(key, fmt.Sprint(val))
		}
	}
	return nil
}

// Error outputs an error.
// For JSON mode, outputs {"error": "...", "code": N} to the main writer.
// For human mode, outputs a styled error message to the error writer.
func (p *Printer) Error(err error) {
	exitErr := &ExitError{}
	if !errors.As(err, &exitErr) {
		exitErr = &ExitError{
			Code:    ExitUserError,
			Message: err.Error(),
		}
	}

	message := exitErr.Message
	if exitErr.Cause != nil {
		message += ": " + exitErr.Cause.Error()
	}

	if p.json {
		mustWrite(p.w.Write(ErrorJSON(message, exitErr.Code)))
		mustWrite(fmt.Fprintln(p.w))
		return
	}

	mustWrite(fmt.Fprintf(p.errW, "%s: %s\n", p.styles.Error.Render("Error"), message))
}

// Warn outputs a warning message to the error writer.
// No-op in JSON mode; warnings travel inside the JSON result instead.
func (p *Printer) Warn(format string, args ...any) {
	if p.json {
		return
	}
	msg := fmt.Sprintf(format, args...)
	mustWrite(fmt.Fprintf(p.errW, "%s: %s\n", p.styles.Warning.Render("Warning"), msg))
}

// Members lists archive member names, one per line, dimming the directory
// part of each name.
func (p *Printer) Members(names []string) {
	for _, name := range names {
		dir, file := splitMemberName(name)
		mustWrite(fmt.Fprintf(p.w, "%s%s\n", p.styles.Dim.Render(dir), file))
	}
}

// KeyValue renders a key-value pair with styles applied.
func (p *Printer) KeyValue(key string, value string) {
	mustWrite(fmt.Fprintf(p.w, "%s %s\n", p.styles.Key.Render(key+":"), value))
}

// WriteJSON encodes any data as JSON and writes it.
func (p *Printer) WriteJSON(data any) error {
	return p.writeJSON(data)
}

func (p *Printer) writeJSON(data any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// ErrorJSON returns JSON-formatted error bytes.
// Format: {"error": "message", "code": N}
func ErrorJSON(message string, code int) []byte {
	data := map[string]any{
		"error": message,
		"code":  code,
	}
	result, _ := json.Marshal(data)
	return result
}

// splitMemberName splits a slash-separated member name into its directory
// prefix (with trailing slash) and base name.
func splitMemberName(name string) (string, string) {
	idx := strings.LastIndex(name, "/")
	if idx < 0 {
		return "", name
	}
	return name[:idx+1], name[idx+1:]
}

// mustWrite panics if a write operation fails.
// Writes go to stdout/stderr or buffers, which are not expected to fail.
func mustWrite(_ int, err error) {
	if err != nil {
		panic(fmt.Sprintf("write failed: %v", err))
	}
}
