package render

import (
	"github.com/mash-protocol/mash-expose/pkg/catalog"
	"github.com/mash-protocol/mash-expose/pkg/devclient"
)

// Fragment holds the location shared by all fragment kinds.
type Fragment struct {
	Node         devclient.NodeID
	Endpoint     uint16
	EndpointName string
	Cluster      string
	ClusterID    uint32
}

// AttributeFragment describes one exposed attribute.
type AttributeFragment struct {
	Fragment
	Attribute   string
	AttributeID uint32

	// Type is the JSON schema type of the value, empty if unknown.
	Type     string
	Nullable bool

	Readable bool
	Writable bool
}

// CommandFragment describes one exposed command.
type CommandFragment struct {
	Fragment
	Command   string
	CommandID uint32
	HasBody   bool

	// Parameters in declaration order.
	Parameters []Parameter
}

// ParameterTypes returns the parameter name to type mapping.
func (c CommandFragment) ParameterTypes() map[string]string {
	out := make(map[string]string, len(c.Parameters))
	for _, p := range c.Parameters {
		out[p.Name] = p.Type
	}
	return out
}

// Parameter is a command field. Type is one of integer, number, string or
// null.
type Parameter struct {
	Name     string
	Type     string
	Required bool
}

// EventFragment describes one exposed event.
type EventFragment struct {
	Fragment
	Event   string
	EventID uint32
}

// DocumentData is the input of the document template.
type DocumentData struct {
	Node      devclient.NodeID
	Title     string
	Version   string
	ServerURL string

	// Paths holds the joined fragments.
	Paths string
}

// Parameter types.
const (
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeString  = "string"
	TypeNull    = "null"
)

// ParameterType coerces a catalog type to a command parameter type.
// Booleans, lists and structures have no counterpart and become null.
func ParameterType(dt catalog.DataType) string {
	switch {
	case dt.IsInteger():
		return TypeInteger
	case dt.IsFloat():
		return TypeNumber
	case dt == catalog.DataTypeString:
		return TypeString
	default:
		return TypeNull
	}
}

// SchemaType maps a catalog type to the JSON schema type of an attribute
// value. Unknown types map to the empty string (any value).
func SchemaType(dt catalog.DataType) string {
	switch {
	case dt.IsInteger():
		return TypeInteger
	case dt.IsFloat():
		return TypeNumber
	}
	switch dt {
	case catalog.DataTypeBool:
		return "boolean"
	case catalog.DataTypeString, catalog.DataTypeBytes:
		return TypeString
	case catalog.DataTypeArray:
		return "array"
	case catalog.DataTypeMap, catalog.DataTypeStruct:
		return "object"
	default:
		return ""
	}
}
