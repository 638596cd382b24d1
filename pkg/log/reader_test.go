package log

import (
	"bytes"
	"testing"
	"time"
)

func TestFilterMatches(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	node := uint64(4)
	other := uint64(5)
	in, out := DirectionIn, DirectionOut
	state := CategoryState
	result := KindResult
	start, end := base.Add(time.Second), base.Add(2*time.Second)

	msg := Event{
		Timestamp: base.Add(time.Second),
		SessionID: "0f8fad5b-d9cb",
		Direction: DirectionIn,
		Category:  CategoryMessage,
		Message:   &MessageEvent{Kind: KindResult, Command: "read_attribute", NodeID: &node},
	}
	stateEv := Event{Timestamp: base, Category: CategoryState, StateChange: &StateChangeEvent{}}

	tests := []struct {
		name   string
		filter Filter
		event  Event
		want   bool
	}{
		{"empty", Filter{}, msg, true},
		{"session prefix", Filter{SessionID: "0f8f"}, msg, true},
		{"session mismatch", Filter{SessionID: "aaaa"}, msg, false},
		{"direction", Filter{Direction: &in}, msg, true},
		{"direction mismatch", Filter{Direction: &out}, msg, false},
		{"category", Filter{Category: &state}, stateEv, true},
		{"category mismatch", Filter{Category: &state}, msg, false},
		{"kind", Filter{Kind: &result}, msg, true},
		{"command", Filter{Command: "read_attribute"}, msg, true},
		{"command mismatch", Filter{Command: "device_command"}, msg, false},
		{"node", Filter{NodeID: &node}, msg, true},
		{"node mismatch", Filter{NodeID: &other}, msg, false},
		{"message filter on state event", Filter{Command: "read_attribute"}, stateEv, false},
		{"time start inclusive", Filter{TimeStart: &start}, msg, true},
		{"time end exclusive", Filter{TimeEnd: &start}, msg, false},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, msg, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.event); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReaderFilters(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, ev := range []Event{
		{Direction: DirectionOut, Message: &MessageEvent{Kind: KindRequest, Command: "read_attribute"}},
		{Direction: DirectionIn, Message: &MessageEvent{Kind: KindResult, Command: "read_attribute"}},
		{Direction: DirectionIn, Message: &MessageEvent{Kind: KindEvent, Command: "node_event"}},
	} {
		if err := enc.Encode(ev); err != nil {
			t.Fatal(err)
		}
	}

	in := DirectionIn
	r := NewReader(&buf, Filter{Direction: &in})
	var kinds []MessageKind
	for ev, err := range r.All() {
		if err != nil {
			t.Fatal(err)
		}
		kinds = append(kinds, ev.Message.Kind)
	}
	if len(kinds) != 2 || kinds[0] != KindResult || kinds[1] != KindEvent {
		t.Errorf("kinds = %v", kinds)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func TestReaderCorrupt(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0xff, 0x00, 0x13}), Filter{})
	var errs int
	for _, err := range r.All() {
		if err != nil {
			errs++
		}
	}
	if errs != 1 {
		t.Errorf("errors = %d, want 1", errs)
	}
}
