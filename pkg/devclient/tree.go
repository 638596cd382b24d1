package devclient

import (
	"slices"
	"strconv"
)

// NodeID identifies a node of the fleet.
type NodeID uint64

func (id NodeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseNodeID parses a decimal node ID.
func ParseNodeID(s string) (NodeID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return NodeID(v), nil
}

// Tree is a snapshot of the fleet keyed by node ID.
type Tree map[NodeID]*Node

// Node returns a node by ID.
func (t Tree) Node(id NodeID) (*Node, bool) {
	n, ok := t[id]
	return n, ok
}

// NodeIDs returns all node IDs in ascending order.
func (t Tree) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Node is a device on the fleet.
type Node struct {
	ID        NodeID
	Available bool
	Endpoints map[uint16]*Endpoint
}

// Endpoint returns an endpoint by ID.
func (n *Node) Endpoint(id uint16) (*Endpoint, bool) {
	ep, ok := n.Endpoints[id]
	return ep, ok
}

// EndpointIDs returns all endpoint IDs in ascending order.
func (n *Node) EndpointIDs() []uint16 {
	ids := make([]uint16, 0, len(n.Endpoints))
	for id := range n.Endpoints {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	out := &Node{
		ID:        n.ID,
		Available: n.Available,
		Endpoints: make(map[uint16]*Endpoint, len(n.Endpoints)),
	}
	for id, ep := range n.Endpoints {
		out.Endpoints[id] = ep.Clone()
	}
	return out
}

// Endpoint is an addressable sub-unit of a node.
type Endpoint struct {
	ID          uint16
	DeviceTypes []uint32
	Clusters    map[uint32]*ClusterSnapshot
}

// Cluster returns the snapshot of a cluster instance.
func (e *Endpoint) Cluster(id uint32) (*ClusterSnapshot, bool) {
	c, ok := e.Clusters[id]
	return c, ok
}

// ClusterOfType returns the cluster instance of the given type: the
// instance keyed by the type ID when it has that type, otherwise the lowest
// instance ID whose snapshot has it.
func (e *Endpoint) ClusterOfType(typeID uint32) (uint32, *ClusterSnapshot, bool) {
	if c, ok := e.Clusters[typeID]; ok && c.Type(typeID) == typeID {
		return typeID, c, true
	}
	for _, id := range e.ClusterIDs() {
		if c := e.Clusters[id]; c.Type(id) == typeID {
			return id, c, true
		}
	}
	return 0, nil, false
}

// ClusterIDs returns all cluster IDs in ascending order.
func (e *Endpoint) ClusterIDs() []uint32 {
	ids := make([]uint32, 0, len(e.Clusters))
	for id := range e.Clusters {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a deep copy of the endpoint.
func (e *Endpoint) Clone() *Endpoint {
	out := &Endpoint{
		ID:          e.ID,
		DeviceTypes: slices.Clone(e.DeviceTypes),
		Clusters:    make(map[uint32]*ClusterSnapshot, len(e.Clusters)),
	}
	for id, c := range e.Clusters {
		cp := c.Clone()
		out.Clusters[id] = &cp
	}
	return out
}

// ClusterSnapshot is what the controller last reported about a cluster
// instance. The renderer always reads the live values; the snapshot is used
// for traversal and for event lists.
type ClusterSnapshot struct {
	TypeID       uint32
	FeatureMap   uint32
	AttributeIDs []uint32
	CommandIDs   []uint32
	EventIDs     []uint32
}

// Type returns the cluster type of the instance stored under id. A
// snapshot without a TypeID is typed by its instance ID.
func (c *ClusterSnapshot) Type(id uint32) uint32 {
	if c == nil || c.TypeID == 0 {
		return id
	}
	return c.TypeID
}

// Clone returns a deep copy of the snapshot.
func (c ClusterSnapshot) Clone() ClusterSnapshot {
	return ClusterSnapshot{
		TypeID:       c.TypeID,
		FeatureMap:   c.FeatureMap,
		AttributeIDs: slices.Clone(c.AttributeIDs),
		CommandIDs:   slices.Clone(c.CommandIDs),
		EventIDs:     slices.Clone(c.EventIDs),
	}
}
