package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", shortID(event.SessionID)),
		slog.String("direction", event.Direction.String()),
		slog.String("category", event.Category.String()),
	}

	switch {
	case event.Message != nil:
		m := event.Message
		attrs = append(attrs, slog.String("kind", m.Kind.String()), slog.Int("size", m.Size))
		if m.MessageID != "" {
			attrs = append(attrs, slog.String("message_id", m.MessageID))
		}
		if m.Command != "" {
			attrs = append(attrs, slog.String("command", m.Command))
		}
		if m.NodeID != nil {
			attrs = append(attrs, slog.Uint64("node", *m.NodeID))
		}
		if m.Latency != nil {
			attrs = append(attrs, slog.Duration("latency", *m.Latency))
		}
		if m.ErrorCode != nil {
			attrs = append(attrs, slog.Int("error_code", *m.ErrorCode))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs, slog.String("error", event.Error.Message))
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "controller traffic", attrs...)
}

// shortID returns the first 8 characters of a session ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var _ Logger = (*SlogAdapter)(nil)
