package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/mash-expose/pkg/catalog"
	"github.com/mash-protocol/mash-expose/pkg/devclient"
	"github.com/mash-protocol/mash-expose/pkg/devclient/memory"
	"github.com/mash-protocol/mash-expose/pkg/devclient/mocks"
)

const testCatalogYAML = `
deviceTypes:
  - {id: 0x0100, name: OnOffLight}
  - {id: 0x0101, name: DimmableLight}
clusters:
  - id: 0x0100
    name: Test
    attributes:
      - {id: 1, name: Value, type: uint8, access: RW}
      - {id: 7, name: Limit, type: uint16, access: RW}
      - {id: 8, name: Hidden, type: bool, access: R}
    commands:
      - {id: 0, name: Reset}
      - id: 1
        name: Set
        parameters:
          - {name: Value, type: uint8, required: true}
          - {name: Flag, type: bool}
          - {name: Ratio, type: single}
          - {name: Label, type: string}
    events:
      - {id: 0, name: Changed}
    base:
      notWritable: [Limit]
      notReadable: [Hidden]
      notImplemented: [Set]
    features:
      - {bit: 0, code: LT, name: Lighting}
  - id: 0x0101
    name: Second
    attributes:
      - {id: 0, name: A, type: uint8, access: R}
      - {id: 1, name: B, type: uint8, access: R}
  - id: 0x0102
    name: Third
    attributes:
      - {id: 0, name: C, type: uint8, access: R}
`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalogYAML))
	require.NoError(t, err)
	return cat
}

func snapshot(typeID uint32, featureMap uint32, attrs, cmds []uint32) *devclient.ClusterSnapshot {
	return &devclient.ClusterSnapshot{TypeID: typeID, FeatureMap: featureMap, AttributeIDs: attrs, CommandIDs: cmds}
}

func singleEndpointNode(id devclient.NodeID, clusters ...*devclient.ClusterSnapshot) *devclient.Node {
	ep := &devclient.Endpoint{ID: 1, DeviceTypes: []uint32{0x0101}, Clusters: map[uint32]*devclient.ClusterSnapshot{}}
	for _, c := range clusters {
		ep.Clusters[c.TypeID] = c
	}
	return &devclient.Node{ID: id, Available: true, Endpoints: map[uint16]*devclient.Endpoint{1: ep}}
}

func fleetWith(nodes ...*devclient.Node) *memory.Fleet {
	f := memory.New()
	for _, n := range nodes {
		f.AddNode(n)
	}
	return f
}

func count(s, sub string) int {
	return strings.Count(s, sub)
}

func TestRenderUnknownClusterIsAbsent(t *testing.T) {
	fleet := fleetWith(singleEndpointNode(1, snapshot(0x9999, 0, []uint32{0}, nil)))
	r := New(fleet, testCatalog(t), nil, Config{})

	out, ok, err := r.RenderNode(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, out)
}

func TestRenderSingleAttribute(t *testing.T) {
	fleet := fleetWith(singleEndpointNode(1, snapshot(0x0101, 0, []uint32{1}, nil)))
	r := New(fleet, testCatalog(t), nil, Config{})

	out, ok, err := r.RenderNode(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 1, count(out, "/attribute/"))
	assert.Equal(t, 0, count(out, "/command/"))
	assert.Equal(t, 0, count(out, "/event/"))
	assert.Contains(t, out, "/api/v1/1/1/Second/attribute/B:")
	assert.Contains(t, out, "get:")
	assert.NotContains(t, out, "post:")
	assert.Contains(t, out, `tags: ["1 - DimmableLight"]`)
}

func TestRenderFeatureGrantsWrite(t *testing.T) {
	for _, tt := range []struct {
		featureMap uint32
		writable   bool
	}{
		{0, false},
		{1, true},
	} {
		t.Run(fmt.Sprintf("featureMap=%d", tt.featureMap), func(t *testing.T) {
			fleet := fleetWith(singleEndpointNode(1, snapshot(0x0100, tt.featureMap, []uint32{7}, nil)))
			r := New(fleet, testCatalog(t), nil, Config{})

			out, ok, err := r.RenderNode(context.Background(), 1)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Contains(t, out, "/Test/attribute/Limit:")
			assert.Equal(t, tt.writable, strings.Contains(out, "post:"))
		})
	}
}

func TestRenderExclusions(t *testing.T) {
	node := singleEndpointNode(1, snapshot(0x0100, 0, []uint32{1, 7, 8}, []uint32{0, 1}))
	node.Endpoints[1].Clusters[0x0100].EventIDs = []uint32{0}
	r := New(fleetWith(node), testCatalog(t), nil, Config{})

	out, ok, err := r.RenderNode(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)

	// Hidden is read-only and excluded from reads: no fragment.
	assert.NotContains(t, out, "attribute/Hidden")
	// Set is not implemented without LT.
	assert.Contains(t, out, "command/Reset")
	assert.NotContains(t, out, "command/Set")
	assert.Contains(t, out, "event/Changed")

	fleet := fleetWith(node)
	fleet.SetAttribute(1, 1, 0x0100, devclient.AttributeFeatureMap, uint32(1))
	r = New(fleet, testCatalog(t), nil, Config{})
	out, _, err = r.RenderNode(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, out, "command/Set")
	assert.Contains(t, out, "attribute/Hidden")
}

func TestRenderFragmentOrder(t *testing.T) {
	node := singleEndpointNode(1, snapshot(0x0100, 1, []uint32{7, 1}, []uint32{1, 0}))
	r := New(fleetWith(node), testCatalog(t), nil, Config{})

	out, ok, err := r.RenderNode(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)

	parts := strings.Split(out, fragmentSeparator)
	require.Len(t, parts, 5)
	assert.Contains(t, parts[0], "attribute/Value:")
	assert.Contains(t, parts[1], "attribute/Limit:")
	assert.Contains(t, parts[2], "command/Reset:")
	assert.Contains(t, parts[3], "command/Set:")
	assert.Contains(t, parts[4], "event/Changed:")
}

func TestRenderCommandParameters(t *testing.T) {
	node := singleEndpointNode(1, snapshot(0x0100, 1, nil, []uint32{1}))
	r := New(fleetWith(node), testCatalog(t), nil, Config{})

	out, ok, err := r.RenderNode(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, out, "requestBody:")

	var doc map[string]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	post := doc["/api/v1/1/1/Test/command/Set"]["post"].(map[string]any)
	props := post["requestBody"].(map[string]any)["content"].(map[string]any)["application/json"].(map[string]any)["schema"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "integer", props["Value"].(map[string]any)["type"])
	assert.Equal(t, true, props["Flag"].(map[string]any)["nullable"])
	assert.Equal(t, "number", props["Ratio"].(map[string]any)["type"])
	assert.Equal(t, "string", props["Label"].(map[string]any)["type"])
}

func TestRenderFailingClusterIsSkipped(t *testing.T) {
	node := singleEndpointNode(1,
		snapshot(0x0100, 0, []uint32{1}, nil),
		snapshot(0x0101, 0, []uint32{0}, nil),
		snapshot(0x0102, 0, []uint32{0}, nil),
	)
	fleet := fleetWith(node)
	fleet.FailCluster(1, 1, 0x0101, errors.New("timeout talking to device"))

	obs := &recordingObserver{}
	r := New(fleet, testCatalog(t), nil, Config{Observer: obs})

	out, ok, err := r.RenderNode(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, out, "/Test/")
	assert.Contains(t, out, "/Third/")
	assert.NotContains(t, out, "/Second/")
	assert.Equal(t, 1, obs.skipped(SkipFetchError))
}

func TestRenderMalformedGlobalAttribute(t *testing.T) {
	node := singleEndpointNode(1, snapshot(0x0101, 0, []uint32{0}, nil), snapshot(0x0102, 0, []uint32{0}, nil))
	fleet := fleetWith(node)
	fleet.SetAttribute(1, 1, 0x0101, devclient.AttributeAttributeList, "garbage")

	r := New(fleet, testCatalog(t), nil, Config{})
	out, ok, err := r.RenderNode(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, out, "/Second/")
	assert.Contains(t, out, "/Third/")
}

// delayClient answers slower for lower cluster IDs so that completion
// order is the reverse of traversal order.
type delayClient struct {
	devclient.Client
}

func (d delayClient) ReadAttribute(ctx context.Context, node devclient.NodeID, endpoint uint16, cluster, attribute uint32) (any, error) {
	delay := time.Duration(0x0103-cluster) * 15 * time.Millisecond
	delay += time.Duration(3-endpoint) * 20 * time.Millisecond
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}
	return d.Client.ReadAttribute(ctx, node, endpoint, cluster, attribute)
}

func TestRenderOrderIndependentOfCompletion(t *testing.T) {
	mk := func(id uint16) *devclient.Endpoint {
		return &devclient.Endpoint{ID: id, Clusters: map[uint32]*devclient.ClusterSnapshot{
			0x0101: snapshot(0x0101, 0, []uint32{0}, nil),
			0x0102: snapshot(0x0102, 0, []uint32{0}, nil),
		}}
	}
	node := &devclient.Node{ID: 1, Endpoints: map[uint16]*devclient.Endpoint{1: mk(1), 2: mk(2)}}
	fleet := fleetWith(node)

	want, ok, err := New(fleet, testCatalog(t), nil, Config{}).RenderNode(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)

	got, ok, err := New(delayClient{fleet}, testCatalog(t), nil, Config{}).RenderNode(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	parts := strings.Split(got, fragmentSeparator)
	require.Len(t, parts, 4)
	assert.Contains(t, parts[0], "/1/1/Second/")
	assert.Contains(t, parts[1], "/1/1/Third/")
	assert.Contains(t, parts[2], "/1/2/Second/")
	assert.Contains(t, parts[3], "/1/2/Third/")
}

// blockingClient blocks every read until ctx is done.
type blockingClient struct {
	devclient.Client
	started chan struct{}
	once    sync.Once
}

func (b *blockingClient) ReadAttribute(ctx context.Context, _ devclient.NodeID, _ uint16, _, _ uint32) (any, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRenderCancellation(t *testing.T) {
	node := singleEndpointNode(1, snapshot(0x0100, 0, []uint32{1}, nil), snapshot(0x0101, 0, []uint32{0}, nil))
	client := &blockingClient{Client: fleetWith(node), started: make(chan struct{})}
	r := New(client, testCatalog(t), nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-client.started
		cancel()
	}()

	out, ok, err := r.RenderNode(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
	assert.Empty(t, out)
}

// countingClient records the peak number of concurrent reads.
type countingClient struct {
	devclient.Client
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (c *countingClient) ReadAttribute(ctx context.Context, node devclient.NodeID, endpoint uint16, cluster, attribute uint32) (any, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	c.calls.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return c.Client.ReadAttribute(ctx, node, endpoint, cluster, attribute)
}

func TestRenderInFlightCap(t *testing.T) {
	node := &devclient.Node{ID: 1, Endpoints: map[uint16]*devclient.Endpoint{}}
	for ep := uint16(1); ep <= 8; ep++ {
		node.Endpoints[ep] = &devclient.Endpoint{ID: ep, Clusters: map[uint32]*devclient.ClusterSnapshot{
			0x0100: snapshot(0x0100, 0, []uint32{1}, nil),
			0x0101: snapshot(0x0101, 0, []uint32{0}, nil),
			0x0102: snapshot(0x0102, 0, []uint32{0}, nil),
		}}
	}
	client := &countingClient{Client: fleetWith(node)}
	r := New(client, testCatalog(t), nil, Config{MaxInFlight: 4})

	_, ok, err := r.RenderNode(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, int32(8*3*3), client.calls.Load())
	assert.LessOrEqual(t, client.peak.Load(), int32(4))
	assert.Greater(t, client.peak.Load(), int32(1))
}

func TestRenderNodeErrors(t *testing.T) {
	client := mocks.NewClient(t)
	client.On("NodeTree", mock.Anything).Return(devclient.Tree{}, nil).Once()
	client.On("NodeTree", mock.Anything).Return(nil, errors.New("controller down")).Once()

	r := New(client, testCatalog(t), nil, Config{})

	_, _, err := r.RenderNode(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, _, err = r.RenderNode(context.Background(), 42)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNodeNotFound)
	assert.Contains(t, err.Error(), "controller down")
}

func TestDocument(t *testing.T) {
	node := singleEndpointNode(3, snapshot(0x0100, 1, []uint32{1, 7}, []uint32{0, 1}))
	r := New(fleetWith(node), testCatalog(t), nil, Config{})

	data, err := r.Document(context.Background(), 3, DocumentInfo{ServerURL: "http://localhost:8080"})
	require.NoError(t, err)

	var doc struct {
		OpenAPI string `yaml:"openapi"`
		Info    struct {
			Title   string `yaml:"title"`
			Version string `yaml:"version"`
		} `yaml:"info"`
		Servers []struct {
			URL string `yaml:"url"`
		} `yaml:"servers"`
		Paths map[string]map[string]any `yaml:"paths"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc), string(data))

	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Equal(t, "Node 3", doc.Info.Title)
	require.Len(t, doc.Servers, 1)
	assert.Equal(t, "http://localhost:8080", doc.Servers[0].URL)
	assert.Len(t, doc.Paths, 5)
	assert.Contains(t, doc.Paths["/api/v1/3/1/Test/attribute/Limit"], "post")
	assert.Contains(t, doc.Paths["/api/v1/3/1/Test/attribute/Value"], "get")
}

func TestDocumentAbsent(t *testing.T) {
	fleet := fleetWith(singleEndpointNode(1, snapshot(0x9999, 0, nil, nil)))
	r := New(fleet, testCatalog(t), nil, Config{})

	_, err := r.Document(context.Background(), 1, DocumentInfo{})
	assert.ErrorIs(t, err, ErrNoDocumentation)

	_, err = r.Document(context.Background(), 2, DocumentInfo{})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestRenderBuiltinDemo(t *testing.T) {
	r := New(memory.Demo(), catalog.MustBuiltin(), nil, Config{})

	for _, id := range []devclient.NodeID{1, 2} {
		data, err := r.Document(context.Background(), id, DocumentInfo{})
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, yaml.Unmarshal(data, &doc), string(data))
	}

	out, _, err := r.RenderNode(context.Background(), 1)
	require.NoError(t, err)
	// OnOff with LT: OnTime writable, OffWithEffect implemented.
	assert.Contains(t, out, "/api/v1/1/1/OnOff/attribute/OnTime:")
	assert.Contains(t, out, "/api/v1/1/1/OnOff/command/OffWithEffect:")
	// LevelControl without FQ: MoveToClosestFrequency excluded.
	assert.NotContains(t, out, "MoveToClosestFrequency")
	// BasicInformation events from the snapshot.
	assert.Contains(t, out, "/api/v1/1/0/BasicInformation/event/StartUp:")
	assert.NotContains(t, out, "/api/v1/1/0/BasicInformation/event/ReachableChanged:")
}

func TestEndpointName(t *testing.T) {
	r := New(memory.New(), testCatalog(t), nil, Config{})
	assert.Equal(t, "OnOffLight, DimmableLight", r.EndpointName(&devclient.Endpoint{ID: 1, DeviceTypes: []uint32{0x0100, 0x0101}}))
	assert.Equal(t, "DeviceType0x0999", r.EndpointName(&devclient.Endpoint{ID: 1, DeviceTypes: []uint32{0x0999}}))
	assert.Equal(t, "Endpoint 4", r.EndpointName(&devclient.Endpoint{ID: 4}))
}

type recordingObserver struct {
	mu    sync.Mutex
	skips map[string]int
	done  int
}

func (o *recordingObserver) ClusterSkipped(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.skips == nil {
		o.skips = make(map[string]int)
	}
	o.skips[reason]++
}

func (o *recordingObserver) FragmentsRendered(int, int, int) {}

func (o *recordingObserver) RenderDone(time.Duration, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.done++
}

func (o *recordingObserver) skipped(reason string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.skips[reason]
}
