// Package notice carries recoverable progress and degradation notices.
//
// Components receive a Notifier explicitly instead of writing to a global
// logger, so tests can run silently or record what was emitted.
package notice

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Notifier emits a recoverable notice. keyvals are alternating key/value
// pairs attached to the message.
type Notifier interface {
	Notice(msg string, keyvals ...any)
}

// TimeFormat is the timestamp layout printed next to each notice.
const TimeFormat = "15:04:05"

// Discard drops every notice.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notice(string, ...any) {}

// Logger writes notices through a charmbracelet/log logger.
type Logger struct {
	logger *log.Logger
}

// NewLogger creates a Logger writing to w. color toggles the styled banner
// prefix; pass false when w is not a terminal.
func NewLogger(w io.Writer, color bool) *Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          banner(color),
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
		Level:           log.InfoLevel,
	})
	if !color {
		styles := log.DefaultStyles()
		styles.Prefix = lipgloss.NewStyle()
		styles.Timestamp = lipgloss.NewStyle()
		styles.Levels[log.InfoLevel] = lipgloss.NewStyle().SetString("INFO")
		logger.SetStyles(styles)
	}
	return &Logger{logger: logger}
}

// SetTimeFunction overrides the clock used for timestamps.
func (l *Logger) SetTimeFunction(f func(time.Time) time.Time) {
	l.logger.SetTimeFunction(f)
}

// Notice implements Notifier.
func (l *Logger) Notice(msg string, keyvals ...any) {
	l.logger.Info(msg, keyvals...)
}

// banner renders the tool name used as the log prefix. log appends its own
// separator after the prefix.
func banner(color bool) string {
	if !color {
		return "monkey-business-bundler"
	}
	white := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	navy := lipgloss.NewStyle().Foreground(lipgloss.Color("#022554"))
	return white.Render("monkey") + "-" + navy.Render("business") + "-" + white.Render("bundler")
}

// Entry is one notice captured by a Recorder.
type Entry struct {
	Message string
	KeyVals []any
}

// Recorder keeps every notice in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Notice implements Notifier.
func (r *Recorder) Notice(msg string, keyvals ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Message: msg, KeyVals: keyvals})
}

// Entries returns a copy of the recorded notices.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Messages returns the recorded notice messages in order.
func (r *Recorder) Messages() []string {
	entries := r.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}
