// Package capability implements the feature-resolution algebra.
//
// A cluster advertises its optional functionality through a feature map.
// The static catalog describes, for every optional feature bit, the set of
// attributes and commands that are NOT available while that feature is the
// only one active. Given a live feature map, Resolve computes the effective
// exclusion set of one cluster instance.
//
// # Combination Rule
//
// An identifier is available if ANY active feature grants it. Exclusion sets
// are therefore intersected across active bits:
//
//	identity = Base ∪ F0 ∪ F1 ∪ ... ∪ Fn-1
//	result   = identity ∩ Fi   for every active bit i
//
// With no active bits the result is the identity, so nothing that some
// declaration excludes is considered available until an active feature
// grants it. Enabling more features never removes availability.
//
// Bits beyond the catalog's known feature list are ignored.
package capability
