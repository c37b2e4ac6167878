// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package logger provides the slog logger used by every package. Logs go to
// stderr so command output on stdout stays machine readable.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// Format selects the handler used by Init.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var current atomic.Pointer[slog.Logger]

// Init replaces the global logger. A text format uses the colored local
// handler, json uses slog's JSON handler.
func Init(w io.Writer, level slog.Level, format Format) error {
	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case FormatText, "":
		handler = newLocalHandler(w, level)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	current.Store(slog.New(handler))
	return nil
}

// ParseLevel converts debug, info, warn or error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Logger returns the global logger, initialising it on first use.
func Logger() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	current.CompareAndSwap(nil, slog.New(newLocalHandler(os.Stderr, slog.LevelInfo)))
	return current.Load()
}

func log(ctx context.Context, level slog.Level, msg string, a []any) {
	l := Logger()
	if !l.Handler().Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // skip [Callers, log, Info/Warn/etc]
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(a...)
	//nolint:errcheck
	l.Handler().Handle(ctx, r)
}

// Debug prints a Debug level log.
func Debug(msg string, a ...any) {
	log(context.Background(), slog.LevelDebug, msg, a)
}

// DebugContext prints a Debug level log with context.
func DebugContext(ctx context.Context, msg string, a ...any) {
	log(ctx, slog.LevelDebug, msg, a)
}

// Info prints an Info level log.
func Info(msg string, a ...any) {
	log(context.Background(), slog.LevelInfo, msg, a)
}

// InfoContext prints an Info level log with context.
func InfoContext(ctx context.Context, msg string, a ...any) {
	log(ctx, slog.LevelInfo, msg, a)
}

// Warn prints a Warning level log.
func Warn(msg string, a ...any) {
	log(context.Background(), slog.LevelWarn, msg, a)
}

// WarnContext prints a Warning level log with context.
func WarnContext(ctx context.Context, msg string, a ...any) {
	log(ctx, slog.LevelWarn, msg, a)
}

// Error prints an Error level log.
func Error(msg string, a ...any) {
	log(context.Background(), slog.LevelError, msg, a)
}

// ErrorContext prints an Error level log with context.
func ErrorContext(ctx context.Context, msg string, a ...any) {
	log(ctx, slog.LevelError, msg, a)
}
