package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mash-protocol/mash-expose/pkg/devclient"
)

const (
	// eventBuffer is the number of events queued per stream before drops.
	eventBuffer = 64

	pingInterval = 30 * time.Second
	pongWait     = 2 * pingInterval
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin checks are left to CORS configuration of the deployment.
	CheckOrigin: func(*http.Request) bool { return true },
}

// eventMessage is one frame of an event stream.
type eventMessage struct {
	Event    string           `json:"event"`
	Node     devclient.NodeID `json:"node_id"`
	Endpoint uint16           `json:"endpoint_id"`
	Cluster  string           `json:"cluster"`
	Data     any              `json:"data,omitempty"`
	Time     time.Time        `json:"time"`
}

// handleEventStream upgrades to a websocket and forwards occurrences of one
// event of one cluster instance until either side goes away.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	t, ok := s.locate(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "event")
	meta, ok := t.cluster.EventByName(name)
	if !ok || (len(t.snapshot.EventIDs) > 0 && !slices.Contains(t.snapshot.EventIDs, meta.ID)) {
		writeNotFound(w, fmt.Sprintf("event %s not found", name))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan devclient.Event, eventBuffer)
	sub, err := s.client.SubscribeEvents(ctx, func(ev devclient.Event) {
		if ev.Type != devclient.EventNodeEvent || ev.Node != t.node ||
			ev.Endpoint != t.endpoint || ev.Cluster != t.instance || ev.EventID != meta.ID {
			return
		}
		select {
		case events <- ev:
		default:
			s.logger.Warn("event stream full, dropping event",
				"node", t.node, "cluster", t.cluster.Name, "event", meta.Name)
		}
	})
	if err != nil {
		s.logger.Warn("subscribing to events", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(writeWait))
		return
	}
	defer sub.Close()

	s.logger.Info("event stream opened", "node", t.node, "endpoint", t.endpoint,
		"cluster", t.cluster.Name, "event", meta.Name, "remote", r.RemoteAddr)

	// The reader only detects the peer going away and answers pings.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			msg := eventMessage{
				Event:    meta.Name,
				Node:     ev.Node,
				Endpoint: ev.Endpoint,
				Cluster:  t.cluster.Name,
				Data:     ev.Value,
				Time:     ev.Time,
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("event stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-sub.Done():
			return
		case <-closed:
			s.logger.Info("event stream closed", "node", t.node, "event", meta.Name)
			return
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}
