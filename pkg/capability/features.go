package capability

import (
	"fmt"
	"strings"
)

// MaxFeatureBits is the width of a feature map.
const MaxFeatureBits = 32

// NamedFeature is an optional feature bit of a cluster type.
// Value holds the complete exclusion set that applies when this feature is
// the only active one.
type NamedFeature struct {
	NamedID

	// Code is the short feature code (e.g. "LT").
	Code string

	Value Set
}

// Features lists the optional feature bits of one cluster type.
// Index i of List corresponds to bit i of the feature map.
// A Features value is built once at load time and never modified.
type Features struct {
	// Base holds the exclusions that apply when no optional feature is active.
	Base Set

	List []NamedFeature
}

// Len returns the number of known feature bits.
func (f *Features) Len() int {
	if f == nil {
		return 0
	}
	return len(f.List)
}

// knownBits returns the number of bit positions Resolve inspects.
func (f *Features) knownBits() int {
	n := f.Len()
	if n > MaxFeatureBits {
		return MaxFeatureBits
	}
	return n
}

// Identity returns the accumulator used for a feature map with no active
// known bits: the union of Base and every feature's exclusions.
func (f *Features) Identity() Set {
	if f == nil {
		return NewSet()
	}
	acc := f.Base.Union(NewSet())
	for _, feat := range f.List {
		acc = acc.Union(feat.Value)
	}
	return acc
}

// Resolve returns the effective exclusion set for the given feature map.
//
// The result starts at Identity and is intersected with the exclusion set of
// every active feature. Bits at positions without a catalog entry are
// ignored. Resolve is pure: it never modifies f and returns a fresh Set.
func (f *Features) Resolve(featureMap uint32) Set {
	acc := f.Identity()
	for i := 0; i < f.knownBits(); i++ {
		if featureMap&(1<<uint(i)) == 0 {
			continue
		}
		acc = acc.Intersect(f.List[i].Value)
	}
	return acc
}

// Active returns the features whose bits are set in featureMap.
func (f *Features) Active(featureMap uint32) []NamedFeature {
	var out []NamedFeature
	for i := 0; i < f.knownBits(); i++ {
		if featureMap&(1<<uint(i)) != 0 {
			out = append(out, f.List[i])
		}
	}
	return out
}

// UnknownBits returns the bits of featureMap that have no catalog entry.
func (f *Features) UnknownBits(featureMap uint32) uint32 {
	n := f.knownBits()
	if n >= MaxFeatureBits {
		return 0
	}
	return featureMap &^ (1<<uint(n) - 1)
}

// Describe renders the active feature codes of a feature map, e.g. "LT|DF".
func (f *Features) Describe(featureMap uint32) string {
	active := f.Active(featureMap)
	if len(active) == 0 {
		return "-"
	}
	codes := make([]string, 0, len(active))
	for _, feat := range active {
		if feat.Code != "" {
			codes = append(codes, feat.Code)
		} else {
			codes = append(codes, feat.Name)
		}
	}
	return strings.Join(codes, "|")
}

func formatID(id uint32) string {
	return fmt.Sprintf("0x%04X", id)
}
