package logging

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// New builds a logger writing to out. Text output is colorized when color is
// set; the json format never is.
func New(out io.Writer, level slog.Level, format string, color bool) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		if color {
			out = colorizingWriter{out: out}
		}
		return slog.New(slog.NewTextHandler(out, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

// Configure sets the default slog logger on stderr, with colorized levels on
// interactive terminals.
func Configure(levelName, format string) (*slog.Logger, error) {
	level, err := ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	logger, err := New(os.Stderr, level, format, colorEnabled(os.Stderr))
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

type colorizingWriter struct {
	out io.Writer
}

func (w colorizingWriter) Write(p []byte) (int, error) {
	colored := p
	colored = bytes.ReplaceAll(colored, []byte("level=ERROR"), []byte("level="+ansiRed+"ERROR"+ansiReset))
	colored = bytes.ReplaceAll(colored, []byte("level=WARN"), []byte("level="+ansiYellow+"WARN"+ansiReset))
	colored = bytes.ReplaceAll(colored, []byte("level=INFO"), []byte("level="+ansiGreen+"INFO"+ansiReset))
	colored = bytes.ReplaceAll(colored, []byte("level=DEBUG"), []byte("level="+ansiCyan+"DEBUG"+ansiReset))

	if _, err := w.out.Write(colored); err != nil {
		return 0, err
	}
	return len(p), nil
}

func colorEnabled(f *os.File) bool {
	if os.Getenv("CLICOLOR_FORCE") == "1" {
		return true
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return false
	}

	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
