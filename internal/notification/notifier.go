// Package notification delivers user-facing trade notifications (the
// toasts shown after opening or closing a position).
package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Level is the display category of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Display durations.
const (
	DefaultDuration = 3 * time.Second
	ErrorDuration   = 5 * time.Second
)

// Toast is a single notification.
type Toast struct {
	Level    Level         `json:"type"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"-"`
}

// DurationMillis is the display duration in milliseconds, as the UI expects.
func (t Toast) DurationMillis() int64 { return t.Duration.Milliseconds() }

// New builds a toast with the duration for its level.
func New(level Level, message string) Toast {
	d := DefaultDuration
	if level == LevelError {
		d = ErrorDuration
	}
	return Toast{Level: level, Message: message, Duration: d}
}

// Success, Error and Info are shorthands for New.
func Success(message string) Toast { return New(LevelSuccess, message) }
func Error(message string) Toast   { return New(LevelError, message) }
func Info(message string) Toast    { return New(LevelInfo, message) }

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers a toast. Returns error if delivery fails.
	Send(ctx context.Context, toast Toast) error
}

// LogNotifier writes toasts to the structured log.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, t Toast) error {
	level := slog.LevelInfo
	if t.Level == LevelError {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "notify",
		"level", string(t.Level),
		"message", t.Message,
		"duration", t.Duration.String(),
	)
	return nil
}

// Multi fans a toast out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, t Toast) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
