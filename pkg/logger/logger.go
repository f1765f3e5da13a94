// Package logger builds the slog loggers used across the application.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
)

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// New returns a logger writing to w in the given format, text or json.
// Text output to a terminal is coloured by level.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		if isTerminal(w) {
			w = &colorWriter{w: w}
		}
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// NewDefaultLogger returns a text logger on stderr at the given level.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	var w io.Writer = os.Stderr
	if isTerminal(w) {
		w = &colorWriter{w: w}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// colorWriter colours warning and error lines. The text handler writes
// each record with a single Write call.
type colorWriter struct {
	w io.Writer
}

func (c *colorWriter) Write(p []byte) (int, error) {
	var color string
	switch {
	case bytes.Contains(p, []byte("level=ERROR")):
		color = colorRed
	case bytes.Contains(p, []byte("level=WARN")):
		color = colorYellow
	default:
		return c.w.Write(p)
	}
	line := bytes.TrimSuffix(p, []byte("\n"))
	buf := make([]byte, 0, len(p)+len(color)+len(colorReset))
	buf = append(buf, color...)
	buf = append(buf, line...)
	buf = append(buf, colorReset...)
	buf = append(buf, '\n')
	if _, err := c.w.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}
