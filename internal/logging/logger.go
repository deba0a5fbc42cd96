package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"coinenrich/internal/config"
)

// LogFileName is the file written under paths.log_dir.
const LogFileName = "coinenrich.log"

// Options describes logger construction parameters.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
}

type sink struct {
	w        io.Writer
	terminal bool
}

// New constructs a slog logger with one handler per output. Outputs are
// "stdout", "stderr" or file paths; an output listed in both OutputPaths and
// ErrorOutputPaths is written once. Format "auto" renders console lines on
// terminals and JSON everywhere else. Console lines on a terminal are colored.
func New(opts Options) (*slog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "":
		format = "console"
	case "console", "json", "auto":
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	outputs := opts.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	errorOutputs := opts.ErrorOutputPaths
	if len(errorOutputs) == 0 {
		errorOutputs = []string{"stderr"}
	}
	sinks, err := openSinks(append(append([]string(nil), outputs...), errorOutputs...))
	if err != nil {
		return nil, err
	}

	level := parseLevel(opts.Level)
	addSource := opts.Development || level <= slog.LevelDebug
	handlers := make([]slog.Handler, 0, len(sinks))
	for _, s := range sinks {
		sinkFormat := format
		if sinkFormat == "auto" {
			sinkFormat = "json"
			if s.terminal {
				sinkFormat = "console"
			}
		}
		if sinkFormat == "json" {
			handlers = append(handlers, newJSONHandler(s.w, level, addSource))
			continue
		}
		handlers = append(handlers, newConsoleHandler(s.w, level, addSource, s.terminal))
	}
	return slog.New(newFanout(handlers)), nil
}

// NewFromConfig writes to stderr and, when paths.log_dir is set, to
// LogFileName inside it. Stdout stays free for command output. verbose forces
// debug level.
func NewFromConfig(cfg *config.Config, verbose bool) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", OutputPaths: []string{"stderr"}})
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	outputs := []string{"stderr"}
	if cfg.Paths.LogDir != "" {
		outputs = append(outputs, filepath.Join(cfg.Paths.LogDir, LogFileName))
	}
	return New(Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      outputs,
		ErrorOutputPaths: outputs,
	})
}

func parseLevel(level string) slog.Level {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return parsed
}

func openSinks(paths []string) ([]sink, error) {
	seen := make(map[string]bool, len(paths))
	var sinks []sink
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true

		switch path {
		case "stdout", "stderr":
			stream := os.Stdout
			if path == "stderr" {
				stream = os.Stderr
			}
			fd := stream.Fd()
			sinks = append(sinks, sink{w: stream, terminal: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)})
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory for %s: %w", path, err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		sinks = append(sinks, sink{w: file})
	}
	return sinks, nil
}
