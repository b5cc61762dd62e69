package portal

import (
	"fmt"
	"strings"
	"time"
)

// Logger is the logging contract used across the portal. It matches the
// structured loggers returned by glog, so binaries pass those directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print(line("DBG", msg, args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print(line("INF", msg, args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print(line("WRN", msg, args))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print(line("ERR", msg, args))
}

func line(level, msg string, args []any) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(time.Now().UTC().Format(time.RFC3339))
	b.WriteString("] [")
	b.WriteString(level)
	b.WriteString("] PORTAL ")
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	b.WriteString("\n")
	return b.String()
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}

var levels = map[string]int{"trace": 0, "debug": 1, "info": 2, "warn": 3, "error": 4}

type levelLogger struct {
	Logger
	min int
}

// WithMinLevel drops messages below level (debug, info, warn or error).
// Unknown levels keep everything.
func WithMinLevel(l Logger, level string) Logger {
	l = normalizeLogger(l)
	min, ok := levels[strings.ToLower(strings.TrimSpace(level))]
	if !ok || min <= levels["debug"] {
		return l
	}
	return levelLogger{Logger: l, min: min}
}

func (l levelLogger) Debug(msg string, args ...any) {}

func (l levelLogger) Info(msg string, args ...any) {
	if l.min <= levels["info"] {
		l.Logger.Info(msg, args...)
	}
}

func (l levelLogger) Warn(msg string, args ...any) {
	if l.min <= levels["warn"] {
		l.Logger.Warn(msg, args...)
	}
}
