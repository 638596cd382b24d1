package devclient

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionCloseIdempotent(t *testing.T) {
	var calls atomic.Int32
	sub := NewSubscription(func() { calls.Add(1) })

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.Equal(t, int32(1), calls.Load())

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestHubPublish(t *testing.T) {
	var hub Hub
	var got []Event
	sub := hub.Subscribe(context.Background(), func(ev Event) { got = append(got, ev) })

	hub.Publish(Event{Type: EventNodeAdded, Node: 3})
	require.Len(t, got, 1)
	assert.Equal(t, NodeID(3), got[0].Node)
	assert.False(t, got[0].Time.IsZero())

	require.NoError(t, sub.Close())
	hub.Publish(Event{Type: EventNodeRemoved, Node: 3})
	assert.Len(t, got, 1)
	assert.Equal(t, 0, hub.Len())
}

func TestHubContextCancel(t *testing.T) {
	var hub Hub
	ctx, cancel := context.WithCancel(context.Background())
	sub := hub.Subscribe(ctx, func(Event) {})
	assert.Equal(t, 1, hub.Len())

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
	assert.Equal(t, 0, hub.Len())
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "node_added", EventNodeAdded.String())
	assert.Equal(t, "attribute_updated", EventAttributeUpdated.String())
	assert.Equal(t, "node_event", EventNodeEvent.String())
	assert.Equal(t, "unknown", EventType(0).String())
}
