// Package render turns the live capabilities of a node into OpenAPI path
// fragments.
//
// For every endpoint and cluster of a node the Renderer reads the feature
// map, attribute list and accepted command list from the device client,
// resolves the cluster's effective capability set from the catalog and
// emits one fragment per readable or writable attribute, implemented
// command and event. Endpoints and clusters are processed concurrently;
// the output order is always ascending endpoint ID, ascending cluster ID,
// then attributes, commands and events.
//
// A render never issues more than Config.MaxInFlight device client calls
// at once. A failing cluster is logged and skipped; only cancellation of
// the caller's context aborts the whole render.
package render
