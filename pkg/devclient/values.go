package devclient

import (
	"encoding/json"
	"math"
)

// ToUint32 converts a decoded attribute value to uint32. Values decoded
// from JSON arrive as float64 or json.Number; CBOR and in-memory values as
// sized integers.
func ToUint32(v any) (uint32, bool) {
	switch n := v.(type) {
	case uint32:
		return n, true
	case uint8:
		return uint32(n), true
	case uint16:
		return uint32(n), true
	case uint64:
		if n > math.MaxUint32 {
			return 0, false
		}
		return uint32(n), true
	case uint:
		if uint64(n) > math.MaxUint32 {
			return 0, false
		}
		return uint32(n), true
	case int:
		if n < 0 || int64(n) > math.MaxUint32 {
			return 0, false
		}
		return uint32(n), true
	case int64:
		if n < 0 || n > math.MaxUint32 {
			return 0, false
		}
		return uint32(n), true
	case int32:
		if n < 0 {
			return 0, false
		}
		return uint32(n), true
	case float64:
		if n < 0 || n > math.MaxUint32 || n != math.Trunc(n) {
			return 0, false
		}
		return uint32(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return ToUint32(i)
	default:
		return 0, false
	}
}

// ToIDList converts a decoded list attribute (AttributeList,
// AcceptedCommandList, EventList) to IDs. A nil value is an empty list.
func ToIDList(v any) ([]uint32, bool) {
	switch list := v.(type) {
	case nil:
		return nil, true
	case []uint32:
		return list, true
	case []any:
		out := make([]uint32, 0, len(list))
		for _, item := range list {
			id, ok := ToUint32(item)
			if !ok {
				return nil, false
			}
			out = append(out, id)
		}
		return out, true
	case []uint16:
		out := make([]uint32, len(list))
		for i, id := range list {
			out[i] = uint32(id)
		}
		return out, true
	case []int:
		out := make([]uint32, 0, len(list))
		for _, item := range list {
			id, ok := ToUint32(item)
			if !ok {
				return nil, false
			}
			out = append(out, id)
		}
		return out, true
	default:
		return nil, false
	}
}
