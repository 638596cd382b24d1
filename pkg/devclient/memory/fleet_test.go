package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-expose/pkg/devclient"
)

func TestDemoTree(t *testing.T) {
	f := Demo()
	tree, err := f.NodeTree(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []devclient.NodeID{1, 2}, tree.NodeIDs())

	light, _ := tree.Node(1)
	assert.Equal(t, []uint16{0, 1}, light.EndpointIDs())
}

func TestReadGlobalAttributes(t *testing.T) {
	f := Demo()
	ctx := context.Background()

	fm, err := f.ReadAttribute(ctx, 1, 1, clusterOnOff, devclient.AttributeFeatureMap)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), fm)

	attrs, err := f.ReadAttribute(ctx, 1, 1, clusterOnOff, devclient.AttributeAttributeList)
	require.NoError(t, err)
	ids, ok := devclient.ToIDList(attrs)
	require.True(t, ok)
	assert.Contains(t, ids, uint32(0x4001))

	cmds, err := f.ReadAttribute(ctx, 1, 1, clusterOnOff, devclient.AttributeAcceptedCommandList)
	require.NoError(t, err)
	assert.Len(t, cmds, 6)

	// An explicit value overrides the snapshot.
	f.SetAttribute(1, 1, clusterOnOff, devclient.AttributeFeatureMap, uint32(3))
	fm, err = f.ReadAttribute(ctx, 1, 1, clusterOnOff, devclient.AttributeFeatureMap)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), fm)
}

func TestReadErrors(t *testing.T) {
	f := Demo()
	ctx := context.Background()

	_, err := f.ReadAttribute(ctx, 9, 1, clusterOnOff, 0)
	assert.ErrorIs(t, err, devclient.ErrNodeNotFound)

	_, err = f.ReadAttribute(ctx, 1, 9, clusterOnOff, 0)
	assert.ErrorIs(t, err, devclient.ErrEndpointNotFound)

	_, err = f.ReadAttribute(ctx, 1, 1, 0x9999, 0)
	assert.ErrorIs(t, err, devclient.ErrClusterNotFound)

	_, err = f.ReadAttribute(ctx, 1, 1, clusterOnOff, 0x1234)
	var se *devclient.StatusError
	assert.ErrorAs(t, err, &se)

	boom := errors.New("boom")
	f.FailCluster(1, 1, clusterOnOff, boom)
	_, err = f.ReadAttribute(ctx, 1, 1, clusterOnOff, 0)
	assert.ErrorIs(t, err, boom)

	f.FailCluster(1, 1, clusterOnOff, nil)
	_, err = f.ReadAttribute(ctx, 1, 1, clusterOnOff, 0)
	assert.NoError(t, err)
}

func TestWriteAndInvoke(t *testing.T) {
	f := Demo()
	ctx := context.Background()

	res, err := f.WriteAttribute(ctx, 1, 1, clusterOnOff, 0x4001, float64(30))
	require.NoError(t, err)
	assert.Equal(t, float64(30), res)

	v, err := f.ReadAttribute(ctx, 1, 1, clusterOnOff, 0x4001)
	require.NoError(t, err)
	assert.Equal(t, float64(30), v)

	_, err = f.InvokeCommand(ctx, 1, 1, clusterOnOff, "Toggle", nil)
	require.NoError(t, err)
	v, err = f.ReadAttribute(ctx, 1, 1, clusterOnOff, 0)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = f.InvokeCommand(ctx, 1, 1, clusterIdentify, "Identify", map[string]any{"IdentifyTime": 5})
	require.NoError(t, err)

	inv := f.Invocations()
	require.Len(t, inv, 2)
	assert.Equal(t, "Identify", inv[1].Command)
	assert.Equal(t, 5, inv[1].Payload["IdentifyTime"])
}

func TestSubscribeEvents(t *testing.T) {
	f := New()
	ctx := context.Background()

	var got []devclient.Event
	sub, err := f.SubscribeEvents(ctx, func(ev devclient.Event) { got = append(got, ev) })
	require.NoError(t, err)
	defer sub.Close()

	node := &devclient.Node{ID: 4, Endpoints: map[uint16]*devclient.Endpoint{
		1: {ID: 1, Clusters: map[uint32]*devclient.ClusterSnapshot{6: {TypeID: 6}}},
	}}
	f.AddNode(node)
	f.AddNode(node)
	f.SetAttribute(4, 1, 6, 0, true)
	f.EmitEvent(4, 1, 6, 1, map[string]any{"x": 1})
	f.RemoveNode(4)
	f.RemoveNode(4)

	require.Len(t, got, 5)
	assert.Equal(t, devclient.EventNodeAdded, got[0].Type)
	assert.Equal(t, devclient.EventNodeUpdated, got[1].Type)
	assert.Equal(t, devclient.EventAttributeUpdated, got[2].Type)
	assert.Equal(t, devclient.EventNodeEvent, got[3].Type)
	assert.Equal(t, uint32(1), got[3].EventID)
	assert.Equal(t, devclient.EventNodeRemoved, got[4].Type)
}

func TestLatencyHonorsContext(t *testing.T) {
	f := Demo()
	f.SetLatency(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.ReadAttribute(ctx, 1, 1, clusterOnOff, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
