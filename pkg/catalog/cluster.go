package catalog

import (
	"slices"
	"strings"

	"github.com/mash-protocol/mash-expose/pkg/capability"
)

// AttributeMetadata describes an attribute of a cluster type.
type AttributeMetadata struct {
	// ID is the attribute identifier within the cluster.
	ID uint32

	// Name is the human-readable attribute name.
	Name string

	// Type is the data type of the attribute value.
	Type DataType

	// TypeName is the type as written in the catalog (e.g. "enum8").
	TypeName string

	// Access defines the declared operations.
	Access Access

	// Nullable indicates if null is a valid value.
	Nullable bool

	// Description is a human-readable description.
	Description string
}

// CommandMetadata describes a command of a cluster type.
type CommandMetadata struct {
	// ID is the command identifier within the cluster.
	ID uint32

	// Name is the human-readable command name.
	Name string

	// Description is a human-readable description.
	Description string

	// Parameters describes the request fields in declaration order.
	Parameters []ParameterMetadata

	// Response names the response command, if any.
	Response string
}

// HasBody returns true if the command takes request fields.
func (c *CommandMetadata) HasBody() bool {
	return len(c.Parameters) > 0
}

// ParameterMetadata describes a command field.
type ParameterMetadata struct {
	Name     string
	Type     DataType
	TypeName string
	Required bool
}

// EventMetadata describes an event of a cluster type.
type EventMetadata struct {
	ID          uint32
	Name        string
	Priority    string
	Description string
}

// Cluster is the catalog entry of one cluster type.
type Cluster struct {
	ID          uint32
	Name        string
	Revision    uint16
	Description string

	// Features lists the optional feature bits and their exclusions.
	Features *capability.Features

	attributes map[uint32]*AttributeMetadata
	commands   map[uint32]*CommandMetadata
	events     map[uint32]*EventMetadata

	attrByName  map[string]uint32
	cmdByName   map[string]uint32
	eventByName map[string]uint32
}

func newCluster(id uint32, name string) *Cluster {
	return &Cluster{
		ID:          id,
		Name:        name,
		Features:    &capability.Features{Base: capability.NewSet()},
		attributes:  make(map[uint32]*AttributeMetadata),
		commands:    make(map[uint32]*CommandMetadata),
		events:      make(map[uint32]*EventMetadata),
		attrByName:  make(map[string]uint32),
		cmdByName:   make(map[string]uint32),
		eventByName: make(map[string]uint32),
	}
}

// Attribute returns the attribute metadata by ID.
func (c *Cluster) Attribute(id uint32) (*AttributeMetadata, bool) {
	a, ok := c.attributes[id]
	return a, ok
}

// Command returns the command metadata by ID.
func (c *Cluster) Command(id uint32) (*CommandMetadata, bool) {
	cmd, ok := c.commands[id]
	return cmd, ok
}

// Event returns the event metadata by ID.
func (c *Cluster) Event(id uint32) (*EventMetadata, bool) {
	e, ok := c.events[id]
	return e, ok
}

// AttributeByName resolves an attribute by name (case-insensitive).
func (c *Cluster) AttributeByName(name string) (*AttributeMetadata, bool) {
	id, ok := c.attrByName[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return c.attributes[id], true
}

// CommandByName resolves a command by name (case-insensitive).
func (c *Cluster) CommandByName(name string) (*CommandMetadata, bool) {
	id, ok := c.cmdByName[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return c.commands[id], true
}

// EventByName resolves an event by name (case-insensitive).
func (c *Cluster) EventByName(name string) (*EventMetadata, bool) {
	id, ok := c.eventByName[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return c.events[id], true
}

// Attributes returns all attributes ordered by ID.
func (c *Cluster) Attributes() []*AttributeMetadata {
	return sortedValues(c.attributes)
}

// Commands returns all commands ordered by ID.
func (c *Cluster) Commands() []*CommandMetadata {
	return sortedValues(c.commands)
}

// Events returns all events ordered by ID.
func (c *Cluster) Events() []*EventMetadata {
	return sortedValues(c.events)
}

// EventIDs returns the IDs of all declared events in ascending order.
func (c *Cluster) EventIDs() []uint32 {
	return sortedKeys(c.events)
}

func sortedKeys[V any](m map[uint32]V) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortedValues[V any](m map[uint32]V) []V {
	keys := sortedKeys(m)
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
