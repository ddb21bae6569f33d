// Package synclog is a terse, single-line logging shim. It exists because
// the core must report what it's doing without committing to a particular
// log-format/level surface — that selection is a CLI-layer concern the
// spec explicitly excludes.
package synclog

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger writes single-line operational notes. The zero value logs to
// stderr.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
}

// New returns a Logger writing to w. A nil w defaults to os.Stderr.
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{out: w}
}

var std = New(os.Stderr)

// SetOutput redirects the package-level default logger.
func SetOutput(w io.Writer) { std.SetOutput(w) }

// Infof logs an informational line using the package-level default logger.
func Infof(format string, args ...any) { std.Infof(format, args...) }

// Warnf logs a warning line using the package-level default logger.
func Warnf(format string, args ...any) { std.Warnf(format, args...) }

// SetOutput redirects where l writes.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	l.out = w
}

func (l *Logger) Infof(format string, args ...any) {
	l.writeLine("info", format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.writeLine("warn", format, args...)
}

func (l *Logger) writeLine(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "%s: %s\n", level, fmt.Sprintf(format, args...))
}
