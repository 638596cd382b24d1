// Package wsclient implements devclient.Client on top of the websocket API
// of python-matter-server.
//
// The client keeps one websocket session to the controller, redialling with
// backoff when it drops. After every (re)connect it sends start_listening,
// which returns the full node list and subscribes to node events; the node
// cache is then kept current from those events.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mash-protocol/mash-expose/pkg/connection"
	"github.com/mash-protocol/mash-expose/pkg/devclient"
	"github.com/mash-protocol/mash-expose/pkg/log"
)

// DefaultURL is the controller's default websocket endpoint.
const DefaultURL = "ws://localhost:5580/ws"

// Client errors.
var (
	ErrRequestTimeout = errors.New("request timed out")
	ErrMalformedReply = errors.New("malformed controller reply")
)

const pingInterval = 25 * time.Second

// Config configures a Client.
type Config struct {
	// URL of the controller websocket. Default DefaultURL.
	URL string

	// RequestTimeout bounds a single command. Default 30s.
	RequestTimeout time.Duration

	// Backoff tunes the reconnect delays.
	Backoff connection.BackoffConfig

	// Dialer overrides websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Logger for connection and protocol events. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger receives every message exchanged with the controller.
	// Nil disables protocol logging.
	ProtocolLogger log.Logger
}

// Client is a devclient.Client talking to a controller over websocket.
type Client struct {
	cfg Config
	sup *connection.Supervisor

	mu    sync.RWMutex
	sess  *session
	info  ServerInfo
	nodes map[devclient.NodeID]*nodeState

	pendingMu sync.Mutex
	pending   map[string]*pendingCall

	hub devclient.Hub

	cancel context.CancelFunc
	done   chan struct{}
}

var _ devclient.Client = (*Client)(nil)

// New creates a client. Call Start to connect.
func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	c := &Client{
		cfg:     cfg,
		nodes:   make(map[devclient.NodeID]*nodeState),
		pending: make(map[string]*pendingCall),
	}
	if c.cfg.ProtocolLogger == nil {
		c.cfg.ProtocolLogger = log.NoopLogger{}
	}
	c.sup = connection.NewSupervisor(c.dial, connection.Config{
		Backoff:        cfg.Backoff,
		AttemptTimeout: cfg.RequestTimeout,
		Logger:         cfg.Logger,
		OnStateChange:  c.logStateChange,
	})
	return c
}

// pendingCall is a command awaiting its reply.
type pendingCall struct {
	ch      chan *incoming
	command string
	sent    time.Time
}

// Start connects to the controller and waits until the node list has been
// received or ctx is done. The connection is kept alive until Close.
func (c *Client) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		_ = c.sup.Run(runCtx)
	}()

	if err := c.sup.WaitConnected(ctx); err != nil {
		c.Close()
		return fmt.Errorf("connecting to %s: %w", c.cfg.URL, err)
	}
	return nil
}

// Close disconnects and stops reconnecting.
func (c *Client) Close() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	<-c.done
	return nil
}

// State returns the link state.
func (c *Client) State() connection.State {
	return c.sup.State()
}

// ServerInfo returns the greeting of the current session.
func (c *Client) ServerInfo() ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info
}

// NodeTree returns the cached node tree.
func (c *Client) NodeTree(ctx context.Context) (devclient.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return nil, devclient.ErrNotConnected
	}
	tree := make(devclient.Tree, len(c.nodes))
	for id, ns := range c.nodes {
		tree[id] = ns.tree()
	}
	return tree, nil
}

// ReadAttribute reads an attribute from the node.
func (c *Client) ReadAttribute(ctx context.Context, node devclient.NodeID, endpoint uint16, cluster, attribute uint32) (any, error) {
	path := attributePath{endpoint, cluster, attribute}.String()
	raw, err := c.call(ctx, cmdReadAttribute, map[string]any{
		"node_id":        uint64(node),
		"attribute_path": path,
	})
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	// Newer controllers answer with a path → value map.
	if m, ok := result.(map[string]any); ok {
		if v, ok := m[path]; ok {
			return v, nil
		}
	}
	return result, nil
}

// WriteAttribute writes an attribute on the node.
func (c *Client) WriteAttribute(ctx context.Context, node devclient.NodeID, endpoint uint16, cluster, attribute uint32, value any) (any, error) {
	raw, err := c.call(ctx, cmdWriteAttribute, map[string]any{
		"node_id":        uint64(node),
		"attribute_path": attributePath{endpoint, cluster, attribute}.String(),
		"value":          value,
	})
	if err != nil {
		return nil, err
	}
	return decodeResult(raw)
}

// InvokeCommand sends a cluster command to the node.
func (c *Client) InvokeCommand(ctx context.Context, node devclient.NodeID, endpoint uint16, cluster uint32, command string, payload map[string]any) (any, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := c.call(ctx, cmdDeviceCommand, map[string]any{
		"node_id":      uint64(node),
		"endpoint_id":  endpoint,
		"cluster_id":   cluster,
		"command_name": command,
		"payload":      payload,
	})
	if err != nil {
		return nil, err
	}
	return decodeResult(raw)
}

// SubscribeEvents registers handler for node events.
func (c *Client) SubscribeEvents(ctx context.Context, handler devclient.EventHandler) (*devclient.Subscription, error) {
	return c.hub.Subscribe(ctx, handler), nil
}

func decodeResult(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return result, nil
}

// call sends a command and waits for its result.
func (c *Client) call(ctx context.Context, command string, args any) (json.RawMessage, error) {
	c.mu.RLock()
	sess := c.sess
	c.mu.RUnlock()
	if sess == nil {
		return nil, devclient.ErrNotConnected
	}

	id := uuid.NewString()
	ch := make(chan *incoming, 1)

	c.pendingMu.Lock()
	c.pending[id] = &pendingCall{ch: ch, command: command, sent: time.Now()}
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.send(sess, request{MessageID: id, Command: command, Args: args}, nodeOf(args)); err != nil {
		return nil, fmt.Errorf("sending %s: %w", command, err)
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("%s: %w", command, ErrRequestTimeout)
	case msg, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%s: %w", command, devclient.ErrNotConnected)
		}
		if msg.ErrorCode != nil {
			return nil, &devclient.StatusError{Code: *msg.ErrorCode, Details: msg.Details}
		}
		return msg.Result, nil
	}
}

// dial establishes a session and synchronizes the node cache.
func (c *Client) dial(ctx context.Context) (connection.Session, error) {
	conn, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	sess := newSession(conn)
	_, raw, err := conn.ReadMessage()
	var hello incoming
	if err == nil {
		err = json.Unmarshal(raw, &hello)
	}
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("reading server info: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	c.logMessage(sess, log.DirectionIn, log.KindServerInfo, raw, nil)

	c.mu.Lock()
	c.sess = sess
	c.info = ServerInfo{SchemaVersion: hello.SchemaVersion, SDKVersion: hello.SDKVersion}
	c.mu.Unlock()

	go c.readLoop(sess)
	go sess.pingLoop()

	raw, err = c.call(ctx, cmdStartListening, nil)
	if err == nil {
		err = c.replaceNodes(raw)
	}
	if err != nil {
		_ = sess.Close()
		_ = sess.Wait()
		return nil, fmt.Errorf("start listening: %w", err)
	}

	c.debug("controller connected", "url", c.cfg.URL, "schema", hello.SchemaVersion, "sdk", hello.SDKVersion)
	return sess, nil
}

func (c *Client) replaceNodes(raw json.RawMessage) error {
	var list []nodeData
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	nodes := make(map[devclient.NodeID]*nodeState, len(list))
	for _, d := range list {
		ns, err := newNodeState(d)
		if err != nil {
			return err
		}
		nodes[ns.id] = ns
	}

	c.mu.Lock()
	c.nodes = nodes
	c.mu.Unlock()

	for id := range nodes {
		c.hub.Publish(devclient.Event{Type: devclient.EventNodeUpdated, Node: id})
	}
	return nil
}

func (c *Client) readLoop(sess *session) {
	var err error
	for {
		var raw []byte
		if _, raw, err = sess.conn.ReadMessage(); err != nil {
			break
		}
		var msg incoming
		if jerr := json.Unmarshal(raw, &msg); jerr != nil {
			c.debug("malformed controller message", "error", jerr)
			c.cfg.ProtocolLogger.Log(log.Event{
				Timestamp:  time.Now(),
				SessionID:  sess.id,
				Direction:  log.DirectionIn,
				Category:   log.CategoryError,
				RemoteAddr: sess.remote,
				Error:      &log.ErrorEventData{Message: jerr.Error(), Context: "decoding controller message"},
			})
			continue
		}
		if msg.Event != "" {
			c.logMessage(sess, log.DirectionIn, log.KindEvent, raw, func(m *log.MessageEvent) {
				m.Command = msg.Event
			})
			c.handleEvent(&msg)
			continue
		}
		if msg.MessageID == "" {
			continue
		}
		c.pendingMu.Lock()
		call, ok := c.pending[msg.MessageID]
		c.pendingMu.Unlock()

		kind := log.KindResult
		if msg.ErrorCode != nil {
			kind = log.KindErrorReply
		}
		c.logMessage(sess, log.DirectionIn, kind, raw, func(m *log.MessageEvent) {
			m.MessageID = msg.MessageID
			m.ErrorCode = msg.ErrorCode
			if ok {
				latency := time.Since(call.sent)
				m.Command = call.command
				m.Latency = &latency
			}
		})
		if !ok {
			c.debug("unexpected reply", "message_id", msg.MessageID)
			continue
		}
		m := msg
		select {
		case call.ch <- &m:
		default:
		}
	}

	c.mu.Lock()
	if c.sess == sess {
		c.sess = nil
	}
	c.mu.Unlock()
	c.failPending()
	sess.finish(err)
}

func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, call := range c.pending {
		close(call.ch)
		delete(c.pending, id)
	}
}

func (c *Client) handleEvent(msg *incoming) {
	switch msg.Event {
	case evNodeAdded, evNodeUpdated:
		var d nodeData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			c.debug("malformed node event", "event", msg.Event, "error", err)
			return
		}
		ns, err := newNodeState(d)
		if err != nil {
			c.debug("malformed node event", "event", msg.Event, "error", err)
			return
		}
		c.mu.Lock()
		c.nodes[ns.id] = ns
		c.mu.Unlock()

		typ := devclient.EventNodeAdded
		if msg.Event == evNodeUpdated {
			typ = devclient.EventNodeUpdated
		}
		c.hub.Publish(devclient.Event{Type: typ, Node: ns.id})

	case evNodeRemoved:
		var id uint64
		if err := json.Unmarshal(msg.Data, &id); err != nil {
			c.debug("malformed node event", "event", msg.Event, "error", err)
			return
		}
		c.mu.Lock()
		delete(c.nodes, devclient.NodeID(id))
		c.mu.Unlock()
		c.hub.Publish(devclient.Event{Type: devclient.EventNodeRemoved, Node: devclient.NodeID(id)})

	case evAttributeUpdated:
		var data []json.RawMessage
		if err := json.Unmarshal(msg.Data, &data); err != nil || len(data) != 3 {
			c.debug("malformed attribute event", "error", err)
			return
		}
		var (
			id    uint64
			key   string
			value any
		)
		if json.Unmarshal(data[0], &id) != nil || json.Unmarshal(data[1], &key) != nil || json.Unmarshal(data[2], &value) != nil {
			c.debug("malformed attribute event")
			return
		}
		p, err := parseAttributePath(key)
		if err != nil {
			c.debug("malformed attribute event", "error", err)
			return
		}
		c.mu.Lock()
		if ns, ok := c.nodes[devclient.NodeID(id)]; ok {
			ns.values[p] = value
		}
		c.mu.Unlock()
		c.hub.Publish(devclient.Event{
			Type:      devclient.EventAttributeUpdated,
			Node:      devclient.NodeID(id),
			Endpoint:  p.endpoint,
			Cluster:   p.cluster,
			Attribute: p.attribute,
			Value:     value,
		})

	case evNodeEvent:
		var d nodeEventData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			c.debug("malformed node event", "event", msg.Event, "error", err)
			return
		}
		c.hub.Publish(devclient.Event{
			Type:     devclient.EventNodeEvent,
			Node:     devclient.NodeID(d.NodeID),
			Endpoint: d.EndpointID,
			Cluster:  d.ClusterID,
			EventID:  d.EventID,
			Value:    d.Data,
		})

	default:
		c.debug("ignoring controller event", "event", msg.Event)
	}
}

// send encodes and writes a request, recording it in the protocol log.
func (c *Client) send(sess *session, req request, node *uint64) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	c.logMessage(sess, log.DirectionOut, log.KindRequest, data, func(m *log.MessageEvent) {
		m.MessageID = req.MessageID
		m.Command = req.Command
		m.NodeID = node
	})
	return sess.write(data)
}

func (c *Client) logMessage(sess *session, dir log.Direction, kind log.MessageKind, raw []byte, fill func(*log.MessageEvent)) {
	if _, off := c.cfg.ProtocolLogger.(log.NoopLogger); off {
		return
	}
	m := log.NewMessageEvent(kind, raw)
	if fill != nil {
		fill(m)
	}
	c.cfg.ProtocolLogger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  sess.id,
		Direction:  dir,
		Category:   log.CategoryMessage,
		RemoteAddr: sess.remote,
		Message:    m,
	})
}

func (c *Client) logStateChange(old, state connection.State) {
	ev := log.Event{
		Timestamp:   time.Now(),
		Category:    log.CategoryState,
		StateChange: &log.StateChangeEvent{OldState: old.String(), NewState: state.String()},
	}
	c.mu.RLock()
	if c.sess != nil {
		ev.SessionID = c.sess.id
		ev.RemoteAddr = c.sess.remote
	}
	c.mu.RUnlock()
	c.cfg.ProtocolLogger.Log(ev)
}

// nodeOf extracts the node_id argument of a request.
func nodeOf(args any) *uint64 {
	m, ok := args.(map[string]any)
	if !ok {
		return nil
	}
	if id, ok := m["node_id"].(uint64); ok {
		return &id
	}
	return nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Debug(msg, args...)
	}
}

// session is one websocket connection to the controller.
type session struct {
	id      string
	remote  string
	conn    *websocket.Conn
	writeMu sync.Mutex

	once sync.Once
	done chan struct{}
	err  error
}

func newSession(conn *websocket.Conn) *session {
	s := &session{id: uuid.NewString(), conn: conn, done: make(chan struct{})}
	if addr := conn.RemoteAddr(); addr != nil {
		s.remote = addr.String()
	}
	return s
}

func (s *session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			s.writeMu.Unlock()
			if err != nil {
				_ = s.conn.Close()
				return
			}
		}
	}
}

func (s *session) finish(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

// Wait blocks until the read loop has ended.
func (s *session) Wait() error {
	<-s.done
	return s.err
}

// Close closes the websocket; the read loop then ends the session.
func (s *session) Close() error {
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return s.conn.Close()
}
