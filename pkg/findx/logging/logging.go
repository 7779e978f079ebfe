// Package logging provides component-scoped structured logging for findx.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logger := logging.Get("index")
//	logger.Info("refresh complete", "root", root, "added", stats.Added)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// toCharmLevel converts our Level to charmbracelet/log level.
func (l Level) toCharmLevel() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty logs to stderr only.
	Path string

	// Components maps component names to their log levels,
	// overriding the default level per component.
	Components map[string]string

	// Quiet disables stderr output entirely.
	Quiet bool
}

// Logger wraps charmbracelet/log with component identification.
type Logger struct {
	inner     *log.Logger
	component string
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) { l.inner.Debug(msg, args...) }

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) { l.inner.Info(msg, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) { l.inner.Warn(msg, args...) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) { l.inner.Error(msg, args...) }

// With returns a new logger with additional context.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{inner: l.inner.With(args...), component: l.component}
}

// state holds the global logging state.
type state struct {
	mu          sync.RWMutex
	initialized bool
	level       Level
	components  map[string]Level
	loggers     map[string]*Logger
	out         io.Writer
	file        *os.File
}

var globalState = &state{
	loggers:    make(map[string]*Logger),
	components: make(map[string]Level),
	out:        io.Discard,
}

// Init initializes the logging system with the given configuration.
// Before Init() is called, all loggers write to io.Discard.
func Init(cfg Config) error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if globalState.initialized {
		if err := closeLocked(); err != nil {
			return err
		}
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	globalState.level = level

	globalState.components = make(map[string]Level)
	for comp, lvl := range cfg.Components {
		parsedLevel, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		globalState.components[comp] = parsedLevel
	}

	var writers []io.Writer
	if !cfg.Quiet {
		writers = append(writers, os.Stderr)
	}
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		globalState.file = f
		writers = append(writers, f)
	}

	switch len(writers) {
	case 0:
		globalState.out = io.Discard
	case 1:
		globalState.out = writers[0]
	default:
		globalState.out = io.MultiWriter(writers...)
	}

	globalState.initialized = true

	// Recreate existing loggers with the new configuration.
	for component := range globalState.loggers {
		globalState.loggers[component] = createLogger(component)
	}

	return nil
}

// Get returns a logger for the given component. Component-level
// overrides from the config take precedence over the default level.
func Get(component string) *Logger {
	globalState.mu.RLock()
	if logger, ok := globalState.loggers[component]; ok {
		globalState.mu.RUnlock()
		return logger
	}
	globalState.mu.RUnlock()

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if logger, ok := globalState.loggers[component]; ok {
		return logger
	}

	logger := createLogger(component)
	globalState.loggers[component] = logger
	return logger
}

// createLogger creates a new logger for the given component.
// Must be called with globalState.mu held.
func createLogger(component string) *Logger {
	level := globalState.level
	if compLevel, ok := globalState.components[component]; ok {
		level = compLevel
	}

	inner := log.NewWithOptions(globalState.out, log.Options{
		Level:           level.toCharmLevel(),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          component,
	})

	return &Logger{inner: inner, component: component}
}

// Close flushes and closes the log file, if any.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()
	return closeLocked()
}

func closeLocked() error {
	if !globalState.initialized {
		return nil
	}
	if globalState.file != nil {
		if err := globalState.file.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
		globalState.file = nil
	}
	globalState.out = io.Discard
	globalState.initialized = false
	globalState.loggers = make(map[string]*Logger)
	globalState.components = make(map[string]Level)
	return nil
}

// DefaultLogPath returns the default log file location under the XDG
// state directory.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "findx", "findx.log")
}
