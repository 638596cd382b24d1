// Package memory provides an in-process device fleet implementing
// devclient.Client.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mash-protocol/mash-expose/pkg/devclient"
)

// CommandFunc handles a command invocation and returns its result.
type CommandFunc func(inv Invocation) (any, error)

// Invocation records a command sent to the fleet.
type Invocation struct {
	Node     devclient.NodeID
	Endpoint uint16
	Cluster  uint32
	Command  string
	Payload  map[string]any
}

type attrKey struct {
	node      devclient.NodeID
	endpoint  uint16
	cluster   uint32
	attribute uint32
}

type clusterKey struct {
	node     devclient.NodeID
	endpoint uint16
	cluster  uint32
}

type commandKey struct {
	cluster uint32
	name    string
}

// Fleet is an in-memory devclient.Client.
//
// Global attributes (feature map, attribute list, accepted command list,
// event list) are answered from the node snapshots unless a value was set
// explicitly with SetAttribute.
type Fleet struct {
	mu          sync.RWMutex
	nodes       map[devclient.NodeID]*devclient.Node
	values      map[attrKey]any
	failures    map[clusterKey]error
	commands    map[commandKey]CommandFunc
	invocations []Invocation
	latency     time.Duration

	hub devclient.Hub
}

var _ devclient.Client = (*Fleet)(nil)

// New creates an empty fleet.
func New() *Fleet {
	return &Fleet{
		nodes:    make(map[devclient.NodeID]*devclient.Node),
		values:   make(map[attrKey]any),
		failures: make(map[clusterKey]error),
		commands: make(map[commandKey]CommandFunc),
	}
}

// AddNode adds or replaces a node and notifies subscribers.
func (f *Fleet) AddNode(n *devclient.Node) {
	f.mu.Lock()
	_, existed := f.nodes[n.ID]
	f.nodes[n.ID] = n.Clone()
	f.mu.Unlock()

	typ := devclient.EventNodeAdded
	if existed {
		typ = devclient.EventNodeUpdated
	}
	f.hub.Publish(devclient.Event{Type: typ, Node: n.ID})
}

// RemoveNode removes a node and its values.
func (f *Fleet) RemoveNode(id devclient.NodeID) {
	f.mu.Lock()
	_, existed := f.nodes[id]
	delete(f.nodes, id)
	for k := range f.values {
		if k.node == id {
			delete(f.values, k)
		}
	}
	f.mu.Unlock()

	if existed {
		f.hub.Publish(devclient.Event{Type: devclient.EventNodeRemoved, Node: id})
	}
}

// SetAttribute stores an attribute value and notifies subscribers.
func (f *Fleet) SetAttribute(node devclient.NodeID, endpoint uint16, cluster, attribute uint32, value any) {
	f.mu.Lock()
	f.values[attrKey{node, endpoint, cluster, attribute}] = value
	f.mu.Unlock()

	f.hub.Publish(devclient.Event{
		Type:      devclient.EventAttributeUpdated,
		Node:      node,
		Endpoint:  endpoint,
		Cluster:   cluster,
		Attribute: attribute,
		Value:     value,
	})
}

// EmitEvent publishes a cluster event of a node.
func (f *Fleet) EmitEvent(node devclient.NodeID, endpoint uint16, cluster, eventID uint32, data any) {
	f.hub.Publish(devclient.Event{
		Type:     devclient.EventNodeEvent,
		Node:     node,
		Endpoint: endpoint,
		Cluster:  cluster,
		EventID:  eventID,
		Value:    data,
	})
}

// FailCluster makes every read, write and invoke on a cluster instance
// return err. A nil err clears the failure.
func (f *Fleet) FailCluster(node devclient.NodeID, endpoint uint16, cluster uint32, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := clusterKey{node, endpoint, cluster}
	if err == nil {
		delete(f.failures, k)
		return
	}
	f.failures[k] = err
}

// SetLatency delays every interaction by d.
func (f *Fleet) SetLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

// OnCommand registers a handler for a command of a cluster type.
func (f *Fleet) OnCommand(cluster uint32, name string, fn CommandFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands[commandKey{cluster, name}] = fn
}

// Invocations returns the commands received so far.
func (f *Fleet) Invocations() []Invocation {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Invocation, len(f.invocations))
	copy(out, f.invocations)
	return out
}

// NodeTree returns a deep copy of all nodes.
func (f *Fleet) NodeTree(ctx context.Context) (devclient.Tree, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	tree := make(devclient.Tree, len(f.nodes))
	for id, n := range f.nodes {
		tree[id] = n.Clone()
	}
	return tree, nil
}

// ReadAttribute reads a stored value or a global attribute derived from the
// cluster snapshot.
func (f *Fleet) ReadAttribute(ctx context.Context, node devclient.NodeID, endpoint uint16, cluster, attribute uint32) (any, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	snap, err := f.lookup(node, endpoint, cluster)
	if err != nil {
		return nil, err
	}
	if v, ok := f.values[attrKey{node, endpoint, cluster, attribute}]; ok {
		return v, nil
	}
	switch attribute {
	case devclient.AttributeFeatureMap:
		return snap.FeatureMap, nil
	case devclient.AttributeAttributeList:
		return append([]uint32(nil), snap.AttributeIDs...), nil
	case devclient.AttributeAcceptedCommandList:
		return append([]uint32(nil), snap.CommandIDs...), nil
	case devclient.AttributeEventList:
		return append([]uint32(nil), snap.EventIDs...), nil
	}
	for _, id := range snap.AttributeIDs {
		if id == attribute {
			return nil, nil
		}
	}
	return nil, &devclient.StatusError{Code: 0x86, Details: fmt.Sprintf("unsupported attribute 0x%04X", attribute)}
}

// WriteAttribute stores value and returns it.
func (f *Fleet) WriteAttribute(ctx context.Context, node devclient.NodeID, endpoint uint16, cluster, attribute uint32, value any) (any, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	_, err := f.lookup(node, endpoint, cluster)
	f.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	f.SetAttribute(node, endpoint, cluster, attribute, value)
	return value, nil
}

// InvokeCommand records the invocation and runs the registered handler.
func (f *Fleet) InvokeCommand(ctx context.Context, node devclient.NodeID, endpoint uint16, cluster uint32, command string, payload map[string]any) (any, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	if _, err := f.lookup(node, endpoint, cluster); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	inv := Invocation{
		Node:     node,
		Endpoint: endpoint,
		Cluster:  cluster,
		Command:  command,
		Payload:  payload,
	}
	f.invocations = append(f.invocations, inv)
	fn := f.commands[commandKey{cluster, command}]
	f.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(inv)
}

// SubscribeEvents registers handler for fleet events.
func (f *Fleet) SubscribeEvents(ctx context.Context, handler devclient.EventHandler) (*devclient.Subscription, error) {
	return f.hub.Subscribe(ctx, handler), nil
}

// lookup must be called with f.mu held.
func (f *Fleet) lookup(node devclient.NodeID, endpoint uint16, cluster uint32) (*devclient.ClusterSnapshot, error) {
	n, ok := f.nodes[node]
	if !ok {
		return nil, fmt.Errorf("node %d: %w", node, devclient.ErrNodeNotFound)
	}
	ep, ok := n.Endpoint(endpoint)
	if !ok {
		return nil, fmt.Errorf("node %d endpoint %d: %w", node, endpoint, devclient.ErrEndpointNotFound)
	}
	snap, ok := ep.Cluster(cluster)
	if !ok {
		return nil, fmt.Errorf("node %d endpoint %d cluster 0x%04X: %w", node, endpoint, cluster, devclient.ErrClusterNotFound)
	}
	if err := f.failures[clusterKey{node, endpoint, cluster}]; err != nil {
		return nil, err
	}
	return snap, nil
}

func (f *Fleet) wait(ctx context.Context) error {
	f.mu.RLock()
	d := f.latency
	f.mu.RUnlock()

	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
