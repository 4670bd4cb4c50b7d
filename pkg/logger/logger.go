// Package logger wraps log/slog with the conventions this daemon uses
// everywhere: a clean INFO-level narrative for operators, full structured
// detail at DEBUG, and a gin middleware that filters noisy polling routes.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with convenience methods.
type Logger struct {
	*slog.Logger
}

var (
	defaultLogger *Logger
	level         slog.LevelVar
)

// parseLevel maps the daemon's level names (from config or LOG_LEVEL) onto
// slog's own scale, defaulting unknown values to info.
func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init initializes the global logger at the given level name.
func Init(levelName string) {
	level.Set(parseLevel(levelName))

	opts := &slog.HandlerOptions{
		Level:     &level,
		AddSource: false,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Value = slog.StringValue(a.Value.Time().Format("15:04:05"))
			case slog.LevelKey:
				a.Value = slog.StringValue(fmt.Sprintf("%-5s", a.Value.Any().(slog.Level)))
			}
			return a
		},
	}
	defaultLogger = &Logger{slog.New(slog.NewTextHandler(os.Stdout, opts))}
}

// Get returns the default logger, initializing it from LOG_LEVEL on first
// use if Init was never called.
func Get() *Logger {
	if defaultLogger == nil {
		Init(os.Getenv("LOG_LEVEL"))
	}
	return defaultLogger
}

// GetLevel returns the active minimum log level.
func GetLevel() slog.Level { return level.Level() }

// atLeast reports whether the active level permits messages at l. slog
// already drops anything below the handler's level internally; this is
// only for the custom fmt.Printf paths (Startup, GinLogger) that sit
// outside the slog.Logger itself.
func atLeast(l slog.Level) bool { return level.Level() <= l }

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }

// WithContext creates a logger with one additional key/value attached.
func WithContext(key string, value any) *Logger {
	return &Logger{Get().With(key, value)}
}

// Startup prints a clean operator-facing line at info, plus full detail
// at debug.
func Startup(step, message string, args ...any) {
	if atLeast(slog.LevelInfo) {
		fmt.Printf("\033[36m[+]\033[0m %s\n", message)
	}
	Debug("startup step", append([]any{"step", step, "message", message}, args...)...)
}

// ScanCycle logs the outcome of one Orchestrator scan cycle.
func ScanCycle(duration time.Duration, mutated bool, touched int) {
	Info("scan cycle complete", "duration", duration.String(), "mutated", mutated, "touched", touched)
}

// IngestEvent logs a Watch-Folder Ingester lifecycle event for one file.
func IngestEvent(sourceFilename, event string, args ...any) {
	Info("ingest event", append([]any{"source", sourceFilename, "event", event}, args...)...)
}

// SpeakerAction logs an operator-initiated Speaker Identity Service action.
func SpeakerAction(action, target string, args ...any) {
	Info("speaker action", append([]any{"action", action, "target", target}, args...)...)
}

// Performance logs the duration of an internal operation, at debug only.
func Performance(operation string, duration time.Duration, details ...any) {
	Debug("performance", append([]any{"operation", operation, "duration", duration.String()}, details...)...)
}

// skipAtInfo lists request-path substrings the gin middleware silences at
// info level: frequent polling routes that would otherwise drown the
// operator-facing log in noise.
var skipAtInfo = []string{"/jobs", "/health"}

// GinLogger is gin middleware producing the same clean/detailed split as
// the rest of this package, skipping noisy polling endpoints at info.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		if !atLeast(slog.LevelDebug) && atLeast(slog.LevelInfo) {
			for _, skip := range skipAtInfo {
				if strings.Contains(path, skip) {
					return
				}
			}
		}

		status := c.Writer.Status()
		ms := fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1e6)

		if atLeast(slog.LevelDebug) {
			Debug("api request", "method", c.Request.Method, "path", path, "status", status, "duration", ms, "ip", c.ClientIP())
			return
		}
		fmt.Printf("INFO  %s %s %s %s%d\033[0m %s\n",
			time.Now().Format("15:04:05"), c.Request.Method, path, statusColor(status), status, ms)
	}
}

// statusColor maps an HTTP status to its ANSI color by hundreds digit.
func statusColor(status int) string {
	switch status / 100 {
	case 2:
		return "\033[32m"
	case 3:
		return "\033[33m"
	case 4:
		return "\033[31m"
	case 5:
		return "\033[35m"
	default:
		return "\033[37m"
	}
}

// SetGinOutput suppresses gin's own default logging so only this package's
// output reaches stdout.
func SetGinOutput() {
	gin.DefaultWriter = io.Discard
}
