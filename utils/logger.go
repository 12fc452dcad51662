package utils

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

const timeFormat = "2006-01-02 15:04:05"

// Logger provides leveled logging throughout the application.
type Logger struct {
	out *log.Logger
}

// NewLogger creates a Logger writing every level to stderr at info level.
// Stdout is left to command output.
func NewLogger() *Logger {
	return NewLoggerWithWriter(os.Stderr, false)
}

// NewLoggerWithWriter sends every level to w. Tests pass io.Discard.
func NewLoggerWithWriter(w io.Writer, debug bool) *Logger {
	return &Logger{out: newCharmLogger(w, debug)}
}

func newCharmLogger(w io.Writer, debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Level:           level,
	})
}

// SetDebug toggles debug output.
func (l *Logger) SetDebug(debug bool) {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	l.out.SetLevel(level)
}

func (l *Logger) Info(format string, args ...any) {
	l.out.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.out.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.out.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.out.Debugf(format, args...)
}
