package logging

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Logger wraps slog.Logger with credential sanitization. Loggers are injected
// through constructors; nothing in the module logs through a package default.
type Logger struct {
	*slog.Logger
	sanitizer *Sanitizer
}

// Log levels accepted by Config.Level.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Levels is the ordered list of accepted log levels.
var Levels = []string{LevelDebug, LevelInfo, LevelWarn, LevelError}

// Log formats accepted by Config.Format.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Formats is the ordered list of accepted log formats.
var Formats = []string{FormatAuto, FormatText, FormatJSON}

// Config configures the logger.
type Config struct {
	Level     string
	Format    string // auto, text, json
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns the default logger configuration. Logs go to stderr;
// stdout is reserved for the result summary.
func DefaultConfig() Config {
	return Config{
		Level:     LevelInfo,
		Format:    FormatAuto,
		Output:    os.Stderr,
		AddSource: false,
	}
}

// New creates a new logger.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	level := parseLevel(cfg.Level)
	sanitizer := NewSanitizer()

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(cfg.Output, &slog.HandlerOptions{
			Level:     level,
			AddSource: cfg.AddSource,
		})
	case FormatText:
		handler = slog.NewTextHandler(cfg.Output, &slog.HandlerOptions{
			Level:     level,
			AddSource: cfg.AddSource,
		})
	default: // auto
		if isTerminal(cfg.Output) {
			handler = NewPrettyHandler(cfg.Output, level)
		} else {
			handler = slog.NewJSONHandler(cfg.Output, &slog.HandlerOptions{
				Level:     level,
				AddSource: cfg.AddSource,
			})
		}
	}

	handler = NewSanitizingHandler(handler, sanitizer)

	return &Logger{
		Logger:    slog.New(handler),
		sanitizer: sanitizer,
	}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		sanitizer: NewSanitizer(),
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// WithPlugin returns a logger scoped to one plugin run.
func (l *Logger) WithPlugin(plugin string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("plugin", plugin),
		sanitizer: l.sanitizer,
	}
}

// WithTask returns a logger scoped to a collector or analyzer task.
func (l *Logger) WithTask(task string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("task", task),
		sanitizer: l.sanitizer,
	}
}

// WithComponent returns a logger scoped to an engine component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		sanitizer: l.sanitizer,
	}
}

// WithTransport returns a logger scoped to a connection transport.
func (l *Logger) WithTransport(transport string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("transport", transport),
		sanitizer: l.sanitizer,
	}
}

// WithSystem returns a logger scoped to the target system.
func (l *Logger) WithSystem(name string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("system", name),
		sanitizer: l.sanitizer,
	}
}

// With returns a logger with custom fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		sanitizer: l.sanitizer,
	}
}

// Sanitizer returns the sanitizer used by this logger.
func (l *Logger) Sanitizer() *Sanitizer {
	return l.sanitizer
}

// Sanitize sanitizes a string using the logger's sanitizer.
func (l *Logger) Sanitize(input string) string {
	return l.sanitizer.Sanitize(input)
}
