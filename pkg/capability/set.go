package capability

import (
	"slices"
	"strings"
)

// NamedID identifies an attribute, command or event within a cluster type.
// Two NamedIDs are the same identifier when their IDs match; the name is
// descriptive only.
type NamedID struct {
	ID   uint32 `yaml:"id" cbor:"1,keyasint"`
	Name string `yaml:"name" cbor:"2,keyasint,omitempty"`
}

// IDSet is a set of NamedIDs keyed by ID.
type IDSet map[uint32]NamedID

// NewIDSet creates a set from the given identifiers.
func NewIDSet(ids ...NamedID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id.ID] = id
	}
	return s
}

// Contains reports whether id is a member of the set.
func (s IDSet) Contains(id uint32) bool {
	_, ok := s[id]
	return ok
}

// Union returns a new set with the members of s and other.
func (s IDSet) Union(other IDSet) IDSet {
	out := make(IDSet, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out
}

// Intersect returns a new set with the members present in both s and other.
func (s IDSet) Intersect(other IDSet) IDSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(IDSet, len(small))
	for k := range small {
		if _, ok := large[k]; ok {
			// Keep the name from the receiver for stable output.
			if v, ok := s[k]; ok {
				out[k] = v
			} else {
				out[k] = other[k]
			}
		}
	}
	return out
}

// SubsetOf reports whether every member of s is also in other.
func (s IDSet) SubsetOf(other IDSet) bool {
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// Equal reports whether both sets contain the same IDs.
func (s IDSet) Equal(other IDSet) bool {
	return len(s) == len(other) && s.SubsetOf(other)
}

// Clone returns a copy of the set.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Sorted returns the members ordered by ID.
func (s IDSet) Sorted() []NamedID {
	out := make([]NamedID, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b NamedID) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// String returns the member names (or IDs) in ID order.
func (s IDSet) String() string {
	parts := make([]string, 0, len(s))
	for _, id := range s.Sorted() {
		if id.Name != "" {
			parts = append(parts, id.Name)
		} else {
			parts = append(parts, formatID(id.ID))
		}
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Set groups the exclusions produced by one or more features.
// A member of an exclusion set is not available; anything absent is.
type Set struct {
	NotWritable    IDSet
	NotReadable    IDSet
	NotImplemented IDSet
}

// NewSet creates a Set with empty, non-nil components.
func NewSet() Set {
	return Set{
		NotWritable:    IDSet{},
		NotReadable:    IDSet{},
		NotImplemented: IDSet{},
	}
}

// IsReadable returns true if the attribute is not excluded from reads.
func (s Set) IsReadable(attrID uint32) bool {
	return !s.NotReadable.Contains(attrID)
}

// IsWritable returns true if the attribute is not excluded from writes.
func (s Set) IsWritable(attrID uint32) bool {
	return !s.NotWritable.Contains(attrID)
}

// IsImplemented returns true if the command is not excluded.
func (s Set) IsImplemented(cmdID uint32) bool {
	return !s.NotImplemented.Contains(cmdID)
}

// Union accumulates the exclusions of both sets.
func (s Set) Union(other Set) Set {
	return Set{
		NotWritable:    s.NotWritable.Union(other.NotWritable),
		NotReadable:    s.NotReadable.Union(other.NotReadable),
		NotImplemented: s.NotImplemented.Union(other.NotImplemented),
	}
}

// Intersect keeps only the exclusions shared by both sets.
func (s Set) Intersect(other Set) Set {
	return Set{
		NotWritable:    s.NotWritable.Intersect(other.NotWritable),
		NotReadable:    s.NotReadable.Intersect(other.NotReadable),
		NotImplemented: s.NotImplemented.Intersect(other.NotImplemented),
	}
}

// SubsetOf reports whether every exclusion of s is also an exclusion of other,
// i.e. s grants at least as much as other.
func (s Set) SubsetOf(other Set) bool {
	return s.NotWritable.SubsetOf(other.NotWritable) &&
		s.NotReadable.SubsetOf(other.NotReadable) &&
		s.NotImplemented.SubsetOf(other.NotImplemented)
}

// Equal reports whether both sets hold the same exclusions.
func (s Set) Equal(other Set) bool {
	return s.NotWritable.Equal(other.NotWritable) &&
		s.NotReadable.Equal(other.NotReadable) &&
		s.NotImplemented.Equal(other.NotImplemented)
}

// Clone returns a deep copy.
func (s Set) Clone() Set {
	return Set{
		NotWritable:    s.NotWritable.Clone(),
		NotReadable:    s.NotReadable.Clone(),
		NotImplemented: s.NotImplemented.Clone(),
	}
}

// IsEmpty returns true if nothing is excluded.
func (s Set) IsEmpty() bool {
	return len(s.NotWritable) == 0 && len(s.NotReadable) == 0 && len(s.NotImplemented) == 0
}

// String returns a compact representation for logs.
func (s Set) String() string {
	return "notWritable=" + s.NotWritable.String() +
		" notReadable=" + s.NotReadable.String() +
		" notImplemented=" + s.NotImplemented.String()
}
