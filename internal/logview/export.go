package logview

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/mash-protocol/mash-expose/pkg/log"
)

// Export formats.
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// Export writes the events of r to w in the given format.
func Export(r *log.Reader, w io.Writer, format string) error {
	switch format {
	case FormatJSONL:
		return exportJSONL(r, w)
	case FormatCSV:
		return exportCSV(r, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

// jsonEvent adds the payload back to the JSON form of an event. Valid JSON
// payloads are embedded as is, truncated ones as a string.
type jsonEvent struct {
	log.Event
	Payload any `json:"payload,omitempty"`
}

func exportJSONL(r *log.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	for event, err := range r.All() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		out := jsonEvent{Event: event}
		if m := event.Message; m != nil && len(m.Payload) > 0 {
			if json.Valid(m.Payload) {
				out.Payload = json.RawMessage(m.Payload)
			} else {
				out.Payload = string(m.Payload)
			}
		}
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(r *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "session_id", "direction", "category", "kind", "message_id", "command", "node_id", "size", "latency_us", "error_code"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for event, err := range r.All() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		row := []string{
			event.Timestamp.UTC().Format(timeLayout),
			event.SessionID,
			event.Direction.String(),
			event.Category.String(),
			"", "", "", "", "", "", "",
		}
		switch {
		case event.Message != nil:
			m := event.Message
			row[4] = m.Kind.String()
			row[5] = m.MessageID
			row[6] = m.Command
			if m.NodeID != nil {
				row[7] = strconv.FormatUint(*m.NodeID, 10)
			}
			row[8] = strconv.Itoa(m.Size)
			if m.Latency != nil {
				row[9] = strconv.FormatInt(m.Latency.Microseconds(), 10)
			}
			if m.ErrorCode != nil {
				row[10] = strconv.Itoa(*m.ErrorCode)
			}
		case event.StateChange != nil:
			row[4] = "state"
		case event.Error != nil:
			row[4] = "error"
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// Copy writes every event of r to dst and returns how many were copied.
func Copy(r *log.Reader, dst log.Logger) (int, error) {
	n := 0
	for event, err := range r.All() {
		if err != nil {
			return n, fmt.Errorf("failed to read event: %w", err)
		}
		dst.Log(event)
		n++
	}
	return n, nil
}
