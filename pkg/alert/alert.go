// Package alert presents failures to the user. Notifiers are fire-and-forget:
// callers never wait on or branch over the outcome of a notification.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
)

const DefaultConfirmText = "확인"

type Alert struct {
	Title       string   `json:"title"`
	Text        string   `json:"text"`
	Severity    Severity `json:"icon"`
	ConfirmText string   `json:"confirm_button_text"`
}

type Notifier interface {
	Fire(ctx context.Context, a Alert)
	Recover(ctx context.Context)
}

type logNotifier struct {
	l *slog.Logger
}

func NewLogNotifier(l *slog.Logger) *logNotifier {
	if l == nil {
		l = slog.Default()
	}

	return &logNotifier{l: l}
}

func (n *logNotifier) Fire(ctx context.Context, a Alert) {
	n.l.Log(ctx, a.Severity.level(), a.Title, "alert.text", a.Text, "alert.severity", string(a.Severity))
}

func (n *logNotifier) Recover(ctx context.Context) {
	if r := recover(); r != nil {
		n.l.ErrorContext(ctx, "recovered from panic", "panic", fmt.Sprint(r), "callstack", getCallstack())
	}
}

func (s Severity) level() slog.Level {
	switch s {
	case SeverityError:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

type multi []Notifier

// Multi fans every alert out to all notifiers.
func Multi(notifiers ...Notifier) Notifier {
	return multi(notifiers)
}

func (m multi) Fire(ctx context.Context, a Alert) {
	for _, n := range m {
		n.Fire(ctx, a)
	}
}

func (m multi) Recover(ctx context.Context) {
	if r := recover(); r != nil {
		for _, n := range m {
			func() {
				defer n.Recover(ctx)
				panic(r)
			}()
		}
	}
}

func getCallstack() string {
	pcs := make([]uintptr, 20)
	depth := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:depth])

	var sb strings.Builder
	for f, more := frames.Next(); more; f, more = frames.Next() {
		sb.WriteString(fmt.Sprintf("%s: %d\n", f.Function, f.Line))
	}

	return sb.String()
}
