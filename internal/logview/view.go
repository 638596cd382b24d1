// Package logview renders controller traffic logs for humans and tools.
package logview

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mash-protocol/mash-expose/pkg/log"
)

const timeLayout = "2006-01-02T15:04:05.000000Z"

// Options are the filter flags shared by the log commands.
type Options struct {
	Session   string
	Direction string
	Category  string
	Kind      string
	Command   string
	Node      string
	TimeStart string
	TimeEnd   string
}

// Filter converts the options into a reader filter.
func (o Options) Filter() (log.Filter, error) {
	f := log.Filter{SessionID: o.Session, Command: o.Command}

	if o.Direction != "" {
		d, err := ParseDirection(o.Direction)
		if err != nil {
			return f, err
		}
		f.Direction = &d
	}
	if o.Category != "" {
		c, err := ParseCategory(o.Category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	if o.Kind != "" {
		k, err := ParseKind(o.Kind)
		if err != nil {
			return f, err
		}
		f.Kind = &k
	}
	if o.Node != "" {
		id, err := strconv.ParseUint(o.Node, 0, 64)
		if err != nil {
			return f, fmt.Errorf("invalid node: %s", o.Node)
		}
		f.NodeID = &id
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return f, fmt.Errorf("invalid time-start format: %w", err)
		}
		f.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return f, fmt.Errorf("invalid time-end format: %w", err)
		}
		f.TimeEnd = &t
	}
	return f, nil
}

// ParseDirection parses "in" or "out" (case-insensitive).
func ParseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategory parses a category name (case-insensitive).
func ParseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}

// ParseKind parses a message kind name (case-insensitive).
func ParseKind(s string) (log.MessageKind, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "request":
		return log.KindRequest, nil
	case "result":
		return log.KindResult, nil
	case "error_reply":
		return log.KindErrorReply, nil
	case "event":
		return log.KindEvent, nil
	case "server_info":
		return log.KindServerInfo, nil
	default:
		return 0, fmt.Errorf("invalid kind: %s (must be request, result, error_reply, event, or server_info)", s)
	}
}

// View writes every event of r in human-readable form.
func View(r *log.Reader, w io.Writer) error {
	for event, err := range r.All() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		Format(w, event)
	}
	return nil
}

// Format writes one event: a header line, indented details and a blank line.
func Format(w io.Writer, event log.Event) {
	label := "Unknown"
	switch {
	case event.Message != nil:
		label = event.Message.Kind.String()
	case event.StateChange != nil:
		label = "State"
	case event.Error != nil:
		label = "Error"
	}

	fmt.Fprintf(w, "%s [session:%s] %-3s %s\n",
		event.Timestamp.UTC().Format(timeLayout), shortID(event.SessionID), event.Direction.String(), label)

	switch {
	case event.Message != nil:
		formatMessage(w, event.Message)
	case event.StateChange != nil:
		sc := event.StateChange
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Error != nil:
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
	}
	fmt.Fprintln(w)
}

func formatMessage(w io.Writer, m *log.MessageEvent) {
	if m.MessageID != "" {
		fmt.Fprintf(w, "  MessageID: %s\n", m.MessageID)
	}
	if m.Command != "" {
		if m.Kind == log.KindEvent {
			fmt.Fprintf(w, "  Event: %s\n", m.Command)
		} else {
			fmt.Fprintf(w, "  Command: %s\n", m.Command)
		}
	}
	if m.NodeID != nil {
		fmt.Fprintf(w, "  Node: %d\n", *m.NodeID)
	}
	if m.ErrorCode != nil {
		fmt.Fprintf(w, "  ErrorCode: %d\n", *m.ErrorCode)
	}
	if m.Latency != nil {
		fmt.Fprintf(w, "  Latency: %s\n", formatDuration(*m.Latency))
	}
	fmt.Fprintf(w, "  Size: %d bytes\n", m.Size)
	if len(m.Payload) > 0 {
		fmt.Fprintf(w, "  Payload: %s", m.Payload)
		if m.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}
