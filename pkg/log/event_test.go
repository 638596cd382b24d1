package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewMessageEventTruncates(t *testing.T) {
	small := NewMessageEvent(KindRequest, []byte(`{"a":1}`))
	if small.Size != 7 || small.Truncated || string(small.Payload) != `{"a":1}` {
		t.Errorf("small = %+v", small)
	}

	big := bytes.Repeat([]byte("x"), MaxPayloadSize+10)
	m := NewMessageEvent(KindEvent, big)
	if m.Size != MaxPayloadSize+10 {
		t.Errorf("Size = %d, want %d", m.Size, MaxPayloadSize+10)
	}
	if !m.Truncated || len(m.Payload) != MaxPayloadSize {
		t.Errorf("Truncated = %v, len(Payload) = %d", m.Truncated, len(m.Payload))
	}

	big[0] = 'y'
	if m.Payload[0] != 'x' {
		t.Error("payload must be copied")
	}

	if e := NewMessageEvent(KindResult, nil); e.Payload != nil {
		t.Errorf("Payload = %v, want nil", e.Payload)
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{Direction(9).String(), "UNKNOWN"},
		{CategoryMessage.String(), "MESSAGE"},
		{CategoryState.String(), "STATE"},
		{CategoryError.String(), "ERROR"},
		{KindRequest.String(), "REQUEST"},
		{KindResult.String(), "RESULT"},
		{KindErrorReply.String(), "ERROR_REPLY"},
		{KindEvent.String(), "EVENT"},
		{KindServerInfo.String(), "SERVER_INFO"},
		{MessageKind(42).String(), "UNKNOWN"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestEventCBORRoundTrip(t *testing.T) {
	node := uint64(12)
	latency := 35 * time.Millisecond
	code := 3
	ts := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)

	events := []Event{
		{
			Timestamp: ts,
			SessionID: "0f8fad5b-d9cb-469f-a165-70867728950e",
			Direction: DirectionIn,
			Category:  CategoryMessage,
			Message: &MessageEvent{
				Kind:      KindErrorReply,
				MessageID: "abc",
				Command:   "read_attribute",
				NodeID:    &node,
				Size:      40,
				Payload:   []byte(`{"error_code":3}`),
				Latency:   &latency,
				ErrorCode: &code,
			},
		},
		{
			Timestamp:   ts,
			SessionID:   "s",
			Category:    CategoryState,
			StateChange: &StateChangeEvent{OldState: "CONNECTED", NewState: "RECONNECTING", Reason: "EOF"},
		},
		{
			Timestamp: ts,
			Category:  CategoryError,
			Error:     &ErrorEventData{Message: "bad json", Context: "read loop"},
		},
	}

	for _, want := range events {
		data, err := EncodeEvent(want)
		if err != nil {
			t.Fatalf("EncodeEvent: %v", err)
		}
		got, err := DecodeEvent(data)
		if err != nil {
			t.Fatalf("DecodeEvent: %v", err)
		}
		if !got.Timestamp.Equal(want.Timestamp) {
			t.Errorf("Timestamp = %v, want %v", got.Timestamp, want.Timestamp)
		}
		if got.SessionID != want.SessionID || got.Category != want.Category || got.Direction != want.Direction {
			t.Errorf("header = %+v, want %+v", got, want)
		}
		switch {
		case want.Message != nil:
			m := got.Message
			if m == nil || m.Kind != KindErrorReply || *m.NodeID != node || *m.Latency != latency || *m.ErrorCode != code {
				t.Errorf("Message = %+v", m)
			}
			if string(m.Payload) != string(want.Message.Payload) {
				t.Errorf("Payload = %s", m.Payload)
			}
		case want.StateChange != nil:
			if got.StateChange == nil || *got.StateChange != *want.StateChange {
				t.Errorf("StateChange = %+v", got.StateChange)
			}
		case want.Error != nil:
			if got.Error == nil || *got.Error != *want.Error {
				t.Errorf("Error = %+v", got.Error)
			}
		}
	}
}

func TestEventJSONUsesNames(t *testing.T) {
	data, err := json.Marshal(Event{
		Direction: DirectionOut,
		Category:  CategoryMessage,
		Message:   &MessageEvent{Kind: KindRequest, Command: "start_listening"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"direction":"OUT"`, `"category":"MESSAGE"`, `"kind":"REQUEST"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("%s missing %s", data, want)
		}
	}
}
