package memory

import (
	"context"

	"github.com/mash-protocol/mash-expose/pkg/devclient"
)

// Cluster IDs used by the demo fleet.
const (
	clusterIdentify       uint32 = 0x0003
	clusterOnOff          uint32 = 0x0006
	clusterLevelControl   uint32 = 0x0008
	clusterDescriptor     uint32 = 0x001D
	clusterBasicInfo      uint32 = 0x0028
	clusterThermostat     uint32 = 0x0201
	clusterTemperatureMsr uint32 = 0x0402
)

// Demo returns a fleet with a dimmable light (node 1) and a thermostat
// (node 2), matching the clusters of the built-in catalog.
func Demo() *Fleet {
	f := New()

	root := func() *devclient.Endpoint {
		return &devclient.Endpoint{
			ID:          0,
			DeviceTypes: []uint32{0x0016},
			Clusters: map[uint32]*devclient.ClusterSnapshot{
				clusterDescriptor: {
					TypeID:       clusterDescriptor,
					AttributeIDs: []uint32{0, 1, 2, 3},
				},
				clusterBasicInfo: {
					TypeID:       clusterBasicInfo,
					AttributeIDs: []uint32{0, 1, 2, 3, 4, 5, 6, 9, 0x0A},
					EventIDs:     []uint32{0, 1, 2},
				},
			},
		}
	}

	light := &devclient.Node{
		ID:        1,
		Available: true,
		Endpoints: map[uint16]*devclient.Endpoint{
			0: root(),
			1: {
				ID:          1,
				DeviceTypes: []uint32{0x0101},
				Clusters: map[uint32]*devclient.ClusterSnapshot{
					clusterIdentify: {
						TypeID:       clusterIdentify,
						AttributeIDs: []uint32{0, 1},
						CommandIDs:   []uint32{0x00, 0x40},
					},
					clusterOnOff: {
						TypeID:       clusterOnOff,
						FeatureMap:   0b01,
						AttributeIDs: []uint32{0x0000, 0x4000, 0x4001, 0x4002, 0x4003},
						CommandIDs:   []uint32{0x00, 0x01, 0x02, 0x40, 0x41, 0x42},
					},
					clusterLevelControl: {
						TypeID:       clusterLevelControl,
						FeatureMap:   0b011,
						AttributeIDs: []uint32{0x0000, 0x0001, 0x0002, 0x0003, 0x000F, 0x0011, 0x4000},
						CommandIDs:   []uint32{0, 1, 2, 3, 4, 5, 6, 7},
					},
					clusterDescriptor: {
						TypeID:       clusterDescriptor,
						AttributeIDs: []uint32{0, 1, 2, 3},
					},
				},
			},
		},
	}

	thermostat := &devclient.Node{
		ID:        2,
		Available: true,
		Endpoints: map[uint16]*devclient.Endpoint{
			0: root(),
			1: {
				ID:          1,
				DeviceTypes: []uint32{0x0301},
				Clusters: map[uint32]*devclient.ClusterSnapshot{
					clusterThermostat: {
						TypeID:       clusterThermostat,
						FeatureMap:   0b01,
						AttributeIDs: []uint32{0x0000, 0x0012, 0x0015, 0x0016, 0x001B, 0x001C},
						CommandIDs:   []uint32{0x00},
						EventIDs:     []uint32{0x00},
					},
					clusterTemperatureMsr: {
						TypeID:       clusterTemperatureMsr,
						AttributeIDs: []uint32{0, 1, 2},
					},
				},
			},
		},
	}

	f.AddNode(light)
	f.AddNode(thermostat)

	f.SetAttribute(1, 0, clusterBasicInfo, 0x0001, "Example")
	f.SetAttribute(1, 0, clusterBasicInfo, 0x0003, "Dimmable Light")
	f.SetAttribute(1, 1, clusterOnOff, 0x0000, false)
	f.SetAttribute(1, 1, clusterOnOff, 0x4001, uint16(0))
	f.SetAttribute(1, 1, clusterLevelControl, 0x0000, uint8(128))
	f.SetAttribute(2, 0, clusterBasicInfo, 0x0001, "Example")
	f.SetAttribute(2, 0, clusterBasicInfo, 0x0003, "Thermostat")
	f.SetAttribute(2, 1, clusterThermostat, 0x0000, int16(2150))
	f.SetAttribute(2, 1, clusterThermostat, 0x0012, int16(2000))
	f.SetAttribute(2, 1, clusterThermostat, 0x001C, uint8(4))
	f.SetAttribute(2, 1, clusterTemperatureMsr, 0x0000, int16(2150))

	f.OnCommand(clusterOnOff, "On", f.setOnOff(func(bool) bool { return true }))
	f.OnCommand(clusterOnOff, "Off", f.setOnOff(func(bool) bool { return false }))
	f.OnCommand(clusterOnOff, "Toggle", f.setOnOff(func(on bool) bool { return !on }))

	return f
}

func (f *Fleet) setOnOff(next func(bool) bool) CommandFunc {
	return func(inv Invocation) (any, error) {
		v, err := f.ReadAttribute(context.Background(), inv.Node, inv.Endpoint, clusterOnOff, 0x0000)
		if err != nil {
			return nil, err
		}
		on, _ := v.(bool)
		f.SetAttribute(inv.Node, inv.Endpoint, clusterOnOff, 0x0000, next(on))
		return nil, nil
	}
}
