package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Options selects log outputs
type Options struct {
	Level  slog.Level
	File   string    // JSON log file, empty for none
	Stderr io.Writer // text output, os.Stderr when nil
	Quiet  bool      // drop text output below warnings
}

// ParseLevel maps a level name to a slog level
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// Setup creates a logger writing text to stderr and, when a file is given,
// JSON to that file. The cleanup function closes the file.
func Setup(opts Options) (*slog.Logger, func() error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	textLevel := opts.Level
	if opts.Quiet && textLevel < slog.LevelWarn {
		textLevel = slog.LevelWarn
	}
	stderrHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: textLevel})

	if opts.File == "" {
		return slog.New(stderrHandler), func() error { return nil }
	}

	file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger := slog.New(stderrHandler)
		logger.Error("failed to open log file, using stderr only", "error", err, "file", opts.File)
		return logger, func() error { return nil }
	}

	return SetupWithWriters(stderr, file, opts.Level, textLevel), file.Close
}

// SetupWithWriters fans out to a text and a JSON writer
func SetupWithWriters(text, jsonOut io.Writer, jsonLevel, textLevel slog.Level) *slog.Logger {
	textHandler := slog.NewTextHandler(text, &slog.HandlerOptions{Level: textLevel})
	jsonHandler := slog.NewJSONHandler(jsonOut, &slog.HandlerOptions{Level: jsonLevel})
	return slog.New(slogmulti.Fanout(textHandler, jsonHandler))
}

// Printf adapts a slog logger to the Printf/Println logger used by the
// library packages. Messages go out at Info level.
type Printf struct {
	Logger *slog.Logger
	Level  slog.Level
}

// NewPrintf wraps logger
func NewPrintf(logger *slog.Logger) *Printf {
	return &Printf{Logger: logger, Level: slog.LevelInfo}
}

func (p *Printf) Printf(format string, v ...interface{}) {
	p.Logger.Log(context.Background(), p.Level, strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}

func (p *Printf) Println(v ...interface{}) {
	p.Logger.Log(context.Background(), p.Level, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}
