package render

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/semaphore"

	"github.com/mash-protocol/mash-expose/pkg/capability"
	"github.com/mash-protocol/mash-expose/pkg/catalog"
	"github.com/mash-protocol/mash-expose/pkg/devclient"
)

// Live is the resolved capability state of one cluster instance, read
// fresh from the device.
type Live struct {
	Node     devclient.NodeID
	Endpoint uint16
	Cluster  *catalog.Cluster
	Snapshot devclient.ClusterSnapshot
	Set      capability.Set
}

// CanRead reports whether the attribute is present on the device, declared
// readable and not excluded by the active features.
func (l *Live) CanRead(attrID uint32) bool {
	meta, ok := l.attribute(attrID)
	return ok && meta.Access.CanRead() && l.Set.IsReadable(attrID)
}

// CanWrite reports whether the attribute is present on the device, declared
// writable and not excluded by the active features.
func (l *Live) CanWrite(attrID uint32) bool {
	meta, ok := l.attribute(attrID)
	return ok && meta.Access.CanWrite() && l.Set.IsWritable(attrID)
}

// CanInvoke reports whether the device accepts the command and the active
// features implement it.
func (l *Live) CanInvoke(cmdID uint32) bool {
	if _, ok := l.Cluster.Command(cmdID); !ok {
		return false
	}
	return slices.Contains(l.Snapshot.CommandIDs, cmdID) && l.Set.IsImplemented(cmdID)
}

// HasAttribute reports whether the device lists the attribute.
func (l *Live) HasAttribute(attrID uint32) bool {
	return slices.Contains(l.Snapshot.AttributeIDs, attrID)
}

func (l *Live) attribute(attrID uint32) (*catalog.AttributeMetadata, bool) {
	if !l.HasAttribute(attrID) {
		return nil, false
	}
	return l.Cluster.Attribute(attrID)
}

// Resolve reads the live global attributes of one cluster instance and
// resolves its capability set. It shares the fetch path of Render and picks
// the catalog entry by the same rule: the snapshot's type, or the instance
// ID when the node tree does not know the instance.
func (r *Renderer) Resolve(ctx context.Context, node devclient.NodeID, endpoint uint16, cluster uint32) (*Live, error) {
	tree, err := r.client.NodeTree(ctx)
	if err != nil {
		return nil, err
	}
	var snap *devclient.ClusterSnapshot
	if n, ok := tree.Node(node); ok {
		if ep, ok := n.Endpoint(endpoint); ok {
			snap, _ = ep.Cluster(cluster)
		}
	}

	cl, ok := r.catalog.Cluster(snap.Type(cluster))
	if !ok {
		return nil, fmt.Errorf("cluster 0x%04X: %w", cluster, catalog.ErrClusterNotFound)
	}

	ctx, span := r.cfg.Tracer.Start(ctx, "render.resolve")
	defer span.End()

	sem := semaphore.NewWeighted(int64(r.cfg.MaxInFlight))
	live, err := r.fetch(ctx, sem, node, endpoint, cluster)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	live.TypeID = cl.ID
	return &Live{
		Node:     node,
		Endpoint: endpoint,
		Cluster:  cl,
		Snapshot: *live,
		Set:      cl.Features.Resolve(live.FeatureMap),
	}, nil
}
