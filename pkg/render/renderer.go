package render

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mash-protocol/mash-expose/pkg/capability"
	"github.com/mash-protocol/mash-expose/pkg/catalog"
	"github.com/mash-protocol/mash-expose/pkg/devclient"
)

// Render errors.
var (
	// ErrNodeNotFound is returned for nodes absent from the node tree.
	ErrNodeNotFound = devclient.ErrNodeNotFound

	// ErrNoDocumentation is returned by Document when a node exposes
	// nothing the catalog knows about.
	ErrNoDocumentation = errors.New("no documentation available")

	// ErrMalformedValue is returned when a global attribute has an
	// unexpected type.
	ErrMalformedValue = errors.New("malformed attribute value")
)

// fragmentSeparator joins fragments in the output.
const fragmentSeparator = "\n\n"

// Catalog is the part of the capability catalog the renderer needs.
type Catalog interface {
	Cluster(clusterID uint32) (*catalog.Cluster, bool)
	DeviceTypeName(id uint32) string
}

// Renderer renders the capabilities of nodes.
// A Renderer is safe for concurrent use; every render owns its buffers.
type Renderer struct {
	client  devclient.Client
	catalog Catalog
	tmpl    Templates
	cfg     Config
}

// New creates a renderer.
func New(client devclient.Client, cat Catalog, tmpl Templates, cfg Config) *Renderer {
	if tmpl == nil {
		tmpl = DefaultTemplates()
	}
	return &Renderer{
		client:  client,
		catalog: cat,
		tmpl:    tmpl,
		cfg:     cfg.withDefaults(),
	}
}

// RenderNode fetches the node tree and renders one node. The bool result
// is false when the node produced no fragments.
func (r *Renderer) RenderNode(ctx context.Context, id devclient.NodeID) (string, bool, error) {
	tree, err := r.client.NodeTree(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", false, fmt.Errorf("fetching node tree: %w", err)
	}
	node, ok := tree.Node(id)
	if !ok {
		return "", false, fmt.Errorf("node %d: %w", id, ErrNodeNotFound)
	}
	return r.Render(ctx, node)
}

// Render renders a node already obtained from the node tree.
func (r *Renderer) Render(ctx context.Context, node *devclient.Node) (out string, ok bool, err error) {
	start := time.Now()
	ctx, span := r.cfg.Tracer.Start(ctx, "render.node",
		trace.WithAttributes(attribute.Int64("node", int64(node.ID))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		r.cfg.Observer.RenderDone(time.Since(start), err)
	}()

	sem := semaphore.NewWeighted(int64(r.cfg.MaxInFlight))
	endpointIDs := node.EndpointIDs()
	results := make([][]string, len(endpointIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, epID := range endpointIDs {
		ep := node.Endpoints[epID]
		g.Go(func() error {
			frags, err := r.renderEndpoint(gctx, sem, node.ID, ep)
			results[i] = frags
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var all []string
	for _, frags := range results {
		all = append(all, frags...)
	}
	if len(all) == 0 {
		return "", false, nil
	}
	return strings.Join(all, fragmentSeparator), true, nil
}

// DocumentInfo describes the enclosing OpenAPI document.
type DocumentInfo struct {
	Title     string
	Version   string
	ServerURL string
}

// Document renders a complete OpenAPI document for one node.
func (r *Renderer) Document(ctx context.Context, id devclient.NodeID, info DocumentInfo) ([]byte, error) {
	paths, ok, err := r.RenderNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("node %d: %w", id, ErrNoDocumentation)
	}
	if info.Title == "" {
		info.Title = fmt.Sprintf("Node %d", id)
	}
	if info.Version == "" {
		info.Version = "1.0.0"
	}
	doc, err := r.tmpl.Document(DocumentData{
		Node:      id,
		Title:     info.Title,
		Version:   info.Version,
		ServerURL: info.ServerURL,
		Paths:     paths,
	})
	if err != nil {
		return nil, err
	}
	return []byte(doc + "\n"), nil
}

// EndpointName joins the names of the endpoint's device types.
func (r *Renderer) EndpointName(ep *devclient.Endpoint) string {
	if len(ep.DeviceTypes) == 0 {
		return fmt.Sprintf("Endpoint %d", ep.ID)
	}
	names := make([]string, len(ep.DeviceTypes))
	for i, dt := range ep.DeviceTypes {
		names[i] = r.catalog.DeviceTypeName(dt)
	}
	return strings.Join(names, ", ")
}

func (r *Renderer) renderEndpoint(ctx context.Context, sem *semaphore.Weighted, nodeID devclient.NodeID, ep *devclient.Endpoint) ([]string, error) {
	clusterIDs := ep.ClusterIDs()
	results := make([][]string, len(clusterIDs))
	name := r.EndpointName(ep)

	g, gctx := errgroup.WithContext(ctx)
	for i, clID := range clusterIDs {
		snap := ep.Clusters[clID]
		g.Go(func() error {
			loc := Fragment{Node: nodeID, Endpoint: ep.ID, EndpointName: name, ClusterID: clID}
			frags, err := r.renderCluster(gctx, sem, loc, snap)
			results[i] = frags
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []string
	for _, frags := range results {
		out = append(out, frags...)
	}
	return out, nil
}

// renderCluster returns an error only when ctx is done; every other
// failure skips the cluster.
func (r *Renderer) renderCluster(ctx context.Context, sem *semaphore.Weighted, loc Fragment, snap *devclient.ClusterSnapshot) ([]string, error) {
	cl, ok := r.catalog.Cluster(snap.Type(loc.ClusterID))
	if !ok {
		r.debug("skipping unknown cluster", loc)
		r.cfg.Observer.ClusterSkipped(SkipUnknownCluster)
		return nil, nil
	}
	loc.Cluster = cl.Name

	ctx, span := r.cfg.Tracer.Start(ctx, "render.cluster", trace.WithAttributes(
		attribute.Int("endpoint", int(loc.Endpoint)),
		attribute.String("cluster", cl.Name),
	))
	defer span.End()

	live, err := r.fetch(ctx, sem, loc.Node, loc.Endpoint, loc.ClusterID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		span.RecordError(err)
		r.warn("cluster fetch failed", loc, err)
		r.cfg.Observer.ClusterSkipped(SkipFetchError)
		return nil, nil
	}
	if snap != nil {
		live.EventIDs = snap.EventIDs
	}

	set := cl.Features.Resolve(live.FeatureMap)
	frags, counts, err := r.fragments(loc, cl, set, live)
	if err != nil {
		r.warn("cluster template failed", loc, err)
		r.cfg.Observer.ClusterSkipped(SkipTemplateError)
		return nil, nil
	}
	r.cfg.Observer.FragmentsRendered(counts[0], counts[1], counts[2])
	return frags, nil
}

// fragments renders attributes, commands and events of one cluster.
func (r *Renderer) fragments(loc Fragment, cl *catalog.Cluster, set capability.Set, live *devclient.ClusterSnapshot) ([]string, [3]int, error) {
	var (
		out    []string
		counts [3]int
	)

	for _, id := range sortedUnique(live.AttributeIDs) {
		meta, ok := cl.Attribute(id)
		if !ok {
			continue
		}
		f := AttributeFragment{
			Fragment:    loc,
			Attribute:   meta.Name,
			AttributeID: id,
			Type:        SchemaType(meta.Type),
			Nullable:    meta.Nullable,
			Readable:    set.IsReadable(id) && meta.Access.CanRead(),
			Writable:    set.IsWritable(id) && meta.Access.CanWrite(),
		}
		if !f.Readable && !f.Writable {
			continue
		}
		s, err := r.tmpl.Attribute(f)
		if err != nil {
			return nil, counts, err
		}
		out = append(out, s)
		counts[0]++
	}

	for _, id := range sortedUnique(live.CommandIDs) {
		meta, ok := cl.Command(id)
		if !ok || !set.IsImplemented(id) {
			continue
		}
		f := CommandFragment{
			Fragment:  loc,
			Command:   meta.Name,
			CommandID: id,
			HasBody:   meta.HasBody(),
		}
		for _, p := range meta.Parameters {
			f.Parameters = append(f.Parameters, Parameter{
				Name:     p.Name,
				Type:     ParameterType(p.Type),
				Required: p.Required,
			})
		}
		s, err := r.tmpl.Command(f)
		if err != nil {
			return nil, counts, err
		}
		out = append(out, s)
		counts[1]++
	}

	eventIDs := live.EventIDs
	if len(eventIDs) == 0 {
		eventIDs = cl.EventIDs()
	}
	for _, id := range sortedUnique(eventIDs) {
		meta, ok := cl.Event(id)
		if !ok {
			continue
		}
		s, err := r.tmpl.Event(EventFragment{Fragment: loc, Event: meta.Name, EventID: id})
		if err != nil {
			return nil, counts, err
		}
		out = append(out, s)
		counts[2]++
	}

	return out, counts, nil
}

// fetch reads the feature map, attribute list and accepted command list of
// a cluster instance concurrently.
func (r *Renderer) fetch(ctx context.Context, sem *semaphore.Weighted, node devclient.NodeID, endpoint uint16, cluster uint32) (*devclient.ClusterSnapshot, error) {
	live := &devclient.ClusterSnapshot{TypeID: cluster}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := r.read(gctx, sem, node, endpoint, cluster, r.cfg.FeatureMapAttribute)
		if err != nil {
			return err
		}
		if v == nil {
			return nil
		}
		fm, ok := devclient.ToUint32(v)
		if !ok {
			return fmt.Errorf("feature map %T: %w", v, ErrMalformedValue)
		}
		live.FeatureMap = fm
		return nil
	})
	g.Go(func() error {
		v, err := r.read(gctx, sem, node, endpoint, cluster, r.cfg.AttributeListAttribute)
		if err != nil {
			return err
		}
		ids, ok := devclient.ToIDList(v)
		if !ok {
			return fmt.Errorf("attribute list %T: %w", v, ErrMalformedValue)
		}
		live.AttributeIDs = ids
		return nil
	})
	g.Go(func() error {
		v, err := r.read(gctx, sem, node, endpoint, cluster, r.cfg.AcceptedCommandListAttribute)
		if err != nil {
			return err
		}
		ids, ok := devclient.ToIDList(v)
		if !ok {
			return fmt.Errorf("accepted command list %T: %w", v, ErrMalformedValue)
		}
		live.CommandIDs = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return live, nil
}

// read performs one device client call under the render's semaphore.
func (r *Renderer) read(ctx context.Context, sem *semaphore.Weighted, node devclient.NodeID, endpoint uint16, cluster, attr uint32) (any, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer sem.Release(1)
	return r.client.ReadAttribute(ctx, node, endpoint, cluster, attr)
}

func (r *Renderer) debug(msg string, loc Fragment) {
	if r.cfg.Logger != nil {
		r.cfg.Logger.Debug(msg, "node", loc.Node, "endpoint", loc.Endpoint, "cluster", fmt.Sprintf("0x%04X", loc.ClusterID))
	}
}

func (r *Renderer) warn(msg string, loc Fragment, err error) {
	if r.cfg.Logger != nil {
		r.cfg.Logger.Warn(msg, "node", loc.Node, "endpoint", loc.Endpoint,
			"cluster", fmt.Sprintf("0x%04X", loc.ClusterID), "error", err)
	}
}

func sortedUnique(ids []uint32) []uint32 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
