package catalog

import "strings"

// Access flags for attributes.
type Access uint8

const (
	// AccessRead allows reading the attribute.
	AccessRead Access = 1 << iota

	// AccessWrite allows writing the attribute.
	AccessWrite

	// AccessSubscribe allows subscribing to changes.
	AccessSubscribe

	// AccessReadOnly is read and subscribe.
	AccessReadOnly = AccessRead | AccessSubscribe

	// AccessReadWrite is read, write, and subscribe.
	AccessReadWrite = AccessRead | AccessWrite | AccessSubscribe
)

// CanRead returns true if reading is allowed.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite returns true if writing is allowed.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

// CanSubscribe returns true if subscribing is allowed.
func (a Access) CanSubscribe() bool { return a&AccessSubscribe != 0 }

// String returns the access flags as a string.
func (a Access) String() string {
	var s string
	if a.CanRead() {
		s += "R"
	}
	if a.CanWrite() {
		s += "W"
	}
	if a.CanSubscribe() {
		s += "S"
	}
	if s == "" {
		return "-"
	}
	return s
}

// ParseAccess parses an access declaration. Both the short letter form
// ("R", "RW", "RWS") and the long form ("readOnly", "readWrite",
// "writeOnly") are accepted. An empty string means read-only.
func ParseAccess(s string) (Access, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "readonly", "read":
		return AccessReadOnly, true
	case "readwrite":
		return AccessReadWrite, true
	case "writeonly", "write":
		return AccessWrite, true
	case "none", "-":
		return 0, true
	}

	var a Access
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		switch r {
		case 'R':
			a |= AccessRead
		case 'W':
			a |= AccessWrite
		case 'S':
			a |= AccessSubscribe
		default:
			return 0, false
		}
	}
	return a, true
}

// DataType represents the type of an attribute value or command field.
type DataType uint8

const (
	DataTypeUnknown DataType = iota
	DataTypeBool
	DataTypeInt8
	DataTypeInt16
	DataTypeInt32
	DataTypeInt64
	DataTypeUint8
	DataTypeUint16
	DataTypeUint32
	DataTypeUint64
	DataTypeFloat32
	DataTypeFloat64
	DataTypeString
	DataTypeBytes
	DataTypeArray
	DataTypeMap
	DataTypeStruct
	DataTypeEnum
	DataTypeBitmap
	DataTypeNull
)

// String returns the data type name.
func (d DataType) String() string {
	names := []string{
		"unknown", "bool", "int8", "int16", "int32", "int64",
		"uint8", "uint16", "uint32", "uint64", "float32", "float64",
		"string", "bytes", "array", "map", "struct", "enum", "bitmap", "null",
	}
	if int(d) < len(names) {
		return names[d]
	}
	return "unknown"
}

// IsInteger returns true for signed/unsigned integers, enums and bitmaps.
func (d DataType) IsInteger() bool {
	switch d {
	case DataTypeInt8, DataTypeInt16, DataTypeInt32, DataTypeInt64,
		DataTypeUint8, DataTypeUint16, DataTypeUint32, DataTypeUint64,
		DataTypeEnum, DataTypeBitmap:
		return true
	default:
		return false
	}
}

// IsFloat returns true for floating point types.
func (d DataType) IsFloat() bool {
	return d == DataTypeFloat32 || d == DataTypeFloat64
}

// dataTypeAliases maps catalog type names to data types: the short Go-style
// names plus the type names used in the cluster data model.
var dataTypeAliases = map[string]DataType{
	"bool":    DataTypeBool,
	"boolean": DataTypeBool,

	"int8":  DataTypeInt8,
	"int16": DataTypeInt16,
	"int24": DataTypeInt32,
	"int32": DataTypeInt32,
	"int40": DataTypeInt64,
	"int48": DataTypeInt64,
	"int56": DataTypeInt64,
	"int64": DataTypeInt64,
	"int":   DataTypeInt64,

	"uint8":  DataTypeUint8,
	"uint16": DataTypeUint16,
	"uint24": DataTypeUint32,
	"uint32": DataTypeUint32,
	"uint40": DataTypeUint64,
	"uint48": DataTypeUint64,
	"uint56": DataTypeUint64,
	"uint64": DataTypeUint64,

	"percent":       DataTypeUint8,
	"percent100ths": DataTypeUint16,
	"epoch-s":       DataTypeUint32,
	"epoch-us":      DataTypeUint64,
	"elapsed-s":     DataTypeUint32,
	"temperature":   DataTypeInt16,
	"vendor-id":     DataTypeUint16,
	"node-id":       DataTypeUint64,
	"endpoint-no":   DataTypeUint16,
	"cluster-id":    DataTypeUint32,
	"attrib-id":     DataTypeUint32,
	"devtype-id":    DataTypeUint32,

	"enum8":  DataTypeEnum,
	"enum16": DataTypeEnum,
	"enum":   DataTypeEnum,

	"map8":     DataTypeBitmap,
	"map16":    DataTypeBitmap,
	"map32":    DataTypeBitmap,
	"map64":    DataTypeBitmap,
	"bitmap8":  DataTypeBitmap,
	"bitmap16": DataTypeBitmap,
	"bitmap32": DataTypeBitmap,
	"bitmap":   DataTypeBitmap,

	"single":  DataTypeFloat32,
	"float":   DataTypeFloat32,
	"float32": DataTypeFloat32,
	"double":  DataTypeFloat64,
	"float64": DataTypeFloat64,

	"string":           DataTypeString,
	"char_string":      DataTypeString,
	"long_char_string": DataTypeString,

	"bytes":  DataTypeBytes,
	"octstr": DataTypeBytes,

	"array": DataTypeArray,
	"list":  DataTypeArray,
	"map":   DataTypeMap,

	"struct": DataTypeStruct,
	"object": DataTypeStruct,

	"null": DataTypeNull,
}

// ParseDataType maps a catalog type name to a DataType.
// Unknown names map to DataTypeUnknown.
func ParseDataType(name string) DataType {
	if dt, ok := dataTypeAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return dt
	}
	return DataTypeUnknown
}
