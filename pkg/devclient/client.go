package devclient

import (
	"context"
	"errors"
	"fmt"
)

// Client errors.
var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrEndpointNotFound = errors.New("endpoint not found")
	ErrClusterNotFound  = errors.New("cluster not found")
	ErrNotConnected     = errors.New("not connected to controller")
	ErrClientClosed     = errors.New("client is closed")
)

// Client is a device-controller backend.
//
// All methods are safe for concurrent use. Results are never cached by
// callers across requests; a Client may serve them from its own cache.
type Client interface {
	// NodeTree returns a snapshot of all known nodes.
	NodeTree(ctx context.Context) (Tree, error)

	// ReadAttribute reads one attribute of a cluster instance.
	ReadAttribute(ctx context.Context, node NodeID, endpoint uint16, cluster, attribute uint32) (any, error)

	// WriteAttribute writes one attribute and returns the controller's result.
	WriteAttribute(ctx context.Context, node NodeID, endpoint uint16, cluster, attribute uint32, value any) (any, error)

	// InvokeCommand invokes a command by name with an optional payload.
	InvokeCommand(ctx context.Context, node NodeID, endpoint uint16, cluster uint32, command string, payload map[string]any) (any, error)

	// SubscribeEvents registers handler for node events until the
	// subscription is closed or ctx is done.
	SubscribeEvents(ctx context.Context, handler EventHandler) (*Subscription, error)
}

// StatusError is returned when the controller rejects a request.
type StatusError struct {
	Code    int
	Details string
}

func (e *StatusError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("controller error %d: %s", e.Code, e.Details)
	}
	return fmt.Sprintf("controller error %d", e.Code)
}

// Global attribute IDs present on every cluster instance.
const (
	AttributeAcceptedCommandList uint32 = 0xFFF9
	AttributeEventList           uint32 = 0xFFFA
	AttributeAttributeList       uint32 = 0xFFFB
	AttributeFeatureMap          uint32 = 0xFFFC
	AttributeClusterRevision     uint32 = 0xFFFD
)
