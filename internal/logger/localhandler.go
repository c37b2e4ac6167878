// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	levelColors = map[slog.Level]lipgloss.Color{
		slog.LevelDebug: lipgloss.Color("5"), // Purple
		slog.LevelInfo:  lipgloss.Color("4"), // Blue
		slog.LevelWarn:  lipgloss.Color("3"), // Yellow
		slog.LevelError: lipgloss.Color("1"), // Red
	}
	levelStyle = lipgloss.NewStyle().Width(7).Bold(true)
	keyStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")). // Cyan
			Bold(true)
	errKeyStyle = keyStyle.Foreground(lipgloss.Color("9"))
)

// localHandler renders "LEVEL: message key=value" lines for humans.
type localHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	attrs []slog.Attr
	group string
}

func newLocalHandler(w io.Writer, level slog.Leveler) *localHandler {
	return &localHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h *localHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *localHandler) Handle(_ context.Context, r slog.Record) error {
	sb := &strings.Builder{}
	fmt.Fprint(sb, levelStyle.Foreground(levelColors[r.Level]).Render(r.Level.String()+":"))
	fmt.Fprint(sb, " "+r.Message)

	writeAttr := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		style := keyStyle
		if a.Key == "err" || a.Key == "error" {
			style = errKeyStyle
		}
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		fmt.Fprint(sb, " "+style.Render(key+"="))
		fmt.Fprintf(sb, "%v", a.Value.Resolve())
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, sb.String())
	return err
}

func (h *localHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *localHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if clone.group != "" {
		name = clone.group + "." + name
	}
	clone.group = name
	return &clone
}
