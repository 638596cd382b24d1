package wsclient

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mash-protocol/mash-expose/pkg/devclient"
)

// Controller commands.
const (
	cmdStartListening = "start_listening"
	cmdReadAttribute  = "read_attribute"
	cmdWriteAttribute = "write_attribute"
	cmdDeviceCommand  = "device_command"
)

// Controller events.
const (
	evNodeAdded        = "node_added"
	evNodeUpdated      = "node_updated"
	evNodeRemoved      = "node_removed"
	evAttributeUpdated = "attribute_updated"
	evNodeEvent        = "node_event"
)

// descriptorCluster holds the DeviceTypeList attribute (0) of an endpoint.
const descriptorCluster = 0x001D

// request is a command sent to the controller.
type request struct {
	MessageID string `json:"message_id"`
	Command   string `json:"command"`
	Args      any    `json:"args,omitempty"`
}

// incoming covers every message the controller sends: command results,
// errors, events and the initial server info.
type incoming struct {
	MessageID string          `json:"message_id"`
	Result    json.RawMessage `json:"result"`
	ErrorCode *int            `json:"error_code"`
	Details   string          `json:"details"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`

	SchemaVersion int    `json:"schema_version"`
	SDKVersion    string `json:"sdk_version"`
}

// ServerInfo is the greeting sent by the controller after connecting.
type ServerInfo struct {
	SchemaVersion int
	SDKVersion    string
}

// nodeData is a node as reported by start_listening and node events.
type nodeData struct {
	NodeID     uint64         `json:"node_id"`
	Available  bool           `json:"available"`
	Attributes map[string]any `json:"attributes"`
}

// nodeEventData is the payload of a node_event.
type nodeEventData struct {
	NodeID     uint64 `json:"node_id"`
	EndpointID uint16 `json:"endpoint_id"`
	ClusterID  uint32 `json:"cluster_id"`
	EventID    uint32 `json:"event_id"`
	Data       any    `json:"data"`
}

// attributePath is the controller's "endpoint/cluster/attribute" notation.
type attributePath struct {
	endpoint  uint16
	cluster   uint32
	attribute uint32
}

func (p attributePath) String() string {
	return fmt.Sprintf("%d/%d/%d", p.endpoint, p.cluster, p.attribute)
}

func parseAttributePath(s string) (attributePath, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return attributePath{}, fmt.Errorf("invalid attribute path %q", s)
	}
	ep, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return attributePath{}, fmt.Errorf("invalid attribute path %q: %w", s, err)
	}
	cl, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return attributePath{}, fmt.Errorf("invalid attribute path %q: %w", s, err)
	}
	attr, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return attributePath{}, fmt.Errorf("invalid attribute path %q: %w", s, err)
	}
	return attributePath{uint16(ep), uint32(cl), uint32(attr)}, nil
}

// nodeState is the cached attribute table of one node.
type nodeState struct {
	id        devclient.NodeID
	available bool
	values    map[attributePath]any
}

func newNodeState(d nodeData) (*nodeState, error) {
	ns := &nodeState{
		id:        devclient.NodeID(d.NodeID),
		available: d.Available,
		values:    make(map[attributePath]any, len(d.Attributes)),
	}
	for key, v := range d.Attributes {
		p, err := parseAttributePath(key)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", d.NodeID, err)
		}
		ns.values[p] = v
	}
	return ns, nil
}

// tree derives the endpoint/cluster structure from the attribute table.
func (ns *nodeState) tree() *devclient.Node {
	node := &devclient.Node{
		ID:        ns.id,
		Available: ns.available,
		Endpoints: make(map[uint16]*devclient.Endpoint),
	}
	for p := range ns.values {
		ep, ok := node.Endpoints[p.endpoint]
		if !ok {
			ep = &devclient.Endpoint{ID: p.endpoint, Clusters: make(map[uint32]*devclient.ClusterSnapshot)}
			node.Endpoints[p.endpoint] = ep
		}
		if _, ok := ep.Clusters[p.cluster]; !ok {
			ep.Clusters[p.cluster] = ns.snapshot(p.endpoint, p.cluster)
		}
	}
	for id, ep := range node.Endpoints {
		ep.DeviceTypes = deviceTypes(ns.values[attributePath{id, descriptorCluster, 0}])
	}
	return node
}

func (ns *nodeState) snapshot(endpoint uint16, cluster uint32) *devclient.ClusterSnapshot {
	get := func(attr uint32) any {
		return ns.values[attributePath{endpoint, cluster, attr}]
	}
	snap := &devclient.ClusterSnapshot{TypeID: cluster}
	snap.FeatureMap, _ = devclient.ToUint32(get(devclient.AttributeFeatureMap))
	snap.AttributeIDs, _ = devclient.ToIDList(get(devclient.AttributeAttributeList))
	snap.CommandIDs, _ = devclient.ToIDList(get(devclient.AttributeAcceptedCommandList))
	snap.EventIDs, _ = devclient.ToIDList(get(devclient.AttributeEventList))
	return snap
}

// deviceTypes extracts device type IDs from a DeviceTypeList value. Entries
// are structs keyed by field tag ("0") or by name ("deviceType").
func deviceTypes(v any) []uint32 {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []uint32
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		raw, ok := entry["0"]
		if !ok {
			raw = entry["deviceType"]
		}
		if id, ok := devclient.ToUint32(raw); ok {
			out = append(out, id)
		}
	}
	return out
}
