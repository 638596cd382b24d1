package catalog

import (
	"fmt"
	"strings"

	"github.com/mash-protocol/mash-expose/pkg/capability"
)

// Build indexes a raw catalog and resolves every exclusion reference.
//
// Unknown names, duplicate IDs and feature bits outside the feature map are
// errors. Gaps in the feature bit sequence are filled with placeholders that
// grant nothing, so an unnamed bit never widens the capability set.
func Build(raw *RawCatalog) (*Catalog, error) {
	if raw == nil {
		return nil, fmt.Errorf("catalog defines no clusters")
	}

	cat := &Catalog{
		version:     raw.Version,
		clusters:    make(map[uint32]*Cluster, len(raw.Clusters)),
		byName:      make(map[string]uint32, len(raw.Clusters)),
		deviceTypes: make(map[uint32]string, len(raw.DeviceTypes)),
	}
	norm := &RawCatalog{
		Version:     raw.Version,
		DeviceTypes: append([]RawDeviceType(nil), raw.DeviceTypes...),
		Clusters:    make([]RawCluster, 0, len(raw.Clusters)),
	}

	for _, dt := range raw.DeviceTypes {
		cat.deviceTypes[dt.ID] = dt.Name
	}

	for i := range raw.Clusters {
		rc := &raw.Clusters[i]
		if _, dup := cat.clusters[rc.ID]; dup {
			return nil, fmt.Errorf("cluster 0x%04X: %w", rc.ID, ErrDuplicateCluster)
		}
		cl, nc, err := buildCluster(rc)
		if err != nil {
			return nil, fmt.Errorf("cluster %s: %w", clusterLabel(rc), err)
		}
		cat.clusters[cl.ID] = cl
		if cl.Name != "" {
			key := strings.ToLower(cl.Name)
			if _, dup := cat.byName[key]; dup {
				return nil, fmt.Errorf("cluster %s: %w", clusterLabel(rc), ErrDuplicateCluster)
			}
			cat.byName[key] = cl.ID
		}
		norm.Clusters = append(norm.Clusters, nc)
	}

	cat.raw = norm
	return cat, nil
}

func clusterLabel(rc *RawCluster) string {
	if rc.Name != "" {
		return fmt.Sprintf("%s (0x%04X)", rc.Name, rc.ID)
	}
	return fmt.Sprintf("0x%04X", rc.ID)
}

func buildCluster(rc *RawCluster) (*Cluster, RawCluster, error) {
	cl := newCluster(rc.ID, rc.Name)
	cl.Revision = rc.Revision
	cl.Description = rc.Description

	for _, ra := range rc.Attributes {
		access, ok := ParseAccess(ra.Access)
		if !ok {
			return nil, RawCluster{}, fmt.Errorf("attribute %s: %w %q", ra.Name, ErrInvalidAccess, ra.Access)
		}
		if err := index(cl.attrByName, "attribute", ra.ID, ra.Name, hasKey(cl.attributes, ra.ID)); err != nil {
			return nil, RawCluster{}, err
		}
		cl.attributes[ra.ID] = &AttributeMetadata{
			ID:          ra.ID,
			Name:        ra.Name,
			Type:        ParseDataType(ra.Type),
			TypeName:    ra.Type,
			Access:      access,
			Nullable:    ra.Nullable,
			Description: ra.Description,
		}
	}

	for _, rcmd := range rc.Commands {
		if err := index(cl.cmdByName, "command", rcmd.ID, rcmd.Name, hasKey(cl.commands, rcmd.ID)); err != nil {
			return nil, RawCluster{}, err
		}
		cmd := &CommandMetadata{
			ID:          rcmd.ID,
			Name:        rcmd.Name,
			Description: rcmd.Description,
			Response:    rcmd.Response,
		}
		for _, p := range rcmd.Parameters {
			cmd.Parameters = append(cmd.Parameters, ParameterMetadata{
				Name:     p.Name,
				Type:     ParseDataType(p.Type),
				TypeName: p.Type,
				Required: p.Required,
			})
		}
		cl.commands[rcmd.ID] = cmd
	}

	for _, re := range rc.Events {
		if err := index(cl.eventByName, "event", re.ID, re.Name, hasKey(cl.events, re.ID)); err != nil {
			return nil, RawCluster{}, err
		}
		cl.events[re.ID] = &EventMetadata{
			ID:          re.ID,
			Name:        re.Name,
			Priority:    re.Priority,
			Description: re.Description,
		}
	}

	nc := *rc
	nc.Features = nil

	base, normBase, err := cl.resolveExclusions(rc.Base)
	if err != nil {
		return nil, RawCluster{}, fmt.Errorf("base: %w", err)
	}
	nc.Base = normBase

	var (
		named  = make(map[uint8]capability.NamedFeature, len(rc.Features))
		maxBit = -1
	)
	for _, rf := range rc.Features {
		if int(rf.Bit) >= capability.MaxFeatureBits {
			return nil, RawCluster{}, fmt.Errorf("feature %s: %w %d", rf.Code, ErrInvalidFeatureBit, rf.Bit)
		}
		if _, dup := named[rf.Bit]; dup {
			return nil, RawCluster{}, fmt.Errorf("feature bit %d: %w", rf.Bit, ErrDuplicateElement)
		}
		value, normValue, err := cl.resolveExclusions(rf.RawExclusions)
		if err != nil {
			return nil, RawCluster{}, fmt.Errorf("feature %s: %w", rf.Code, err)
		}
		name := rf.Name
		if name == "" {
			name = rf.Code
		}
		named[rf.Bit] = capability.NamedFeature{
			NamedID: capability.NamedID{ID: uint32(rf.Bit), Name: name},
			Code:    rf.Code,
			Value:   value,
		}
		if int(rf.Bit) > maxBit {
			maxBit = int(rf.Bit)
		}
		nf := rf
		nf.RawExclusions = normValue
		nc.Features = append(nc.Features, nf)
	}

	features := &capability.Features{Base: base}
	for bit := 0; bit <= maxBit; bit++ {
		if f, ok := named[uint8(bit)]; ok {
			features.List = append(features.List, f)
		}
	}
	identity := features.Identity()
	features.List = features.List[:0]
	for bit := 0; bit <= maxBit; bit++ {
		f, ok := named[uint8(bit)]
		if !ok {
			f = capability.NamedFeature{
				NamedID: capability.NamedID{ID: uint32(bit)},
				Value:   identity.Clone(),
			}
		}
		features.List = append(features.List, f)
	}
	cl.Features = features

	return cl, nc, nil
}

func hasKey[V any](m map[uint32]V, id uint32) bool {
	_, ok := m[id]
	return ok
}

func index(byName map[string]uint32, kind string, id uint32, name string, dupID bool) error {
	if dupID {
		return fmt.Errorf("%s 0x%04X: %w", kind, id, ErrDuplicateElement)
	}
	if name == "" {
		return fmt.Errorf("%s 0x%04X: missing name", kind, id)
	}
	key := strings.ToLower(name)
	if _, dup := byName[key]; dup {
		return fmt.Errorf("%s %s: %w", kind, name, ErrDuplicateElement)
	}
	byName[key] = id
	return nil
}

// resolveExclusions converts file references into a capability set.
// notWritable and notReadable refer to attributes; notImplemented refers to
// commands first and attributes second.
func (c *Cluster) resolveExclusions(raw RawExclusions) (capability.Set, RawExclusions, error) {
	set := capability.NewSet()
	var norm RawExclusions
	var err error

	if norm.NotWritable, err = c.resolveRefs(raw.NotWritable, set.NotWritable, c.attrRef); err != nil {
		return set, norm, fmt.Errorf("notWritable: %w", err)
	}
	if norm.NotReadable, err = c.resolveRefs(raw.NotReadable, set.NotReadable, c.attrRef); err != nil {
		return set, norm, fmt.Errorf("notReadable: %w", err)
	}
	if norm.NotImplemented, err = c.resolveRefs(raw.NotImplemented, set.NotImplemented, c.elementRef); err != nil {
		return set, norm, fmt.Errorf("notImplemented: %w", err)
	}
	return set, norm, nil
}

func (c *Cluster) resolveRefs(refs []RawRef, into capability.IDSet, lookup func(RawRef) (capability.NamedID, bool)) ([]RawRef, error) {
	var norm []RawRef
	for _, ref := range refs {
		nid, ok := lookup(ref)
		if !ok {
			return nil, fmt.Errorf("%w %s", ErrUnknownReference, ref)
		}
		into[nid.ID] = nid
		norm = append(norm, RefID(nid.ID))
	}
	return norm, nil
}

func (c *Cluster) attrRef(ref RawRef) (capability.NamedID, bool) {
	if !ref.ByName {
		nid := capability.NamedID{ID: ref.ID}
		if a, ok := c.attributes[ref.ID]; ok {
			nid.Name = a.Name
		}
		return nid, true
	}
	a, ok := c.AttributeByName(ref.Name)
	if !ok {
		return capability.NamedID{}, false
	}
	return capability.NamedID{ID: a.ID, Name: a.Name}, true
}

func (c *Cluster) elementRef(ref RawRef) (capability.NamedID, bool) {
	if !ref.ByName {
		nid := capability.NamedID{ID: ref.ID}
		if cmd, ok := c.commands[ref.ID]; ok {
			nid.Name = cmd.Name
		} else if a, ok := c.attributes[ref.ID]; ok {
			nid.Name = a.Name
		}
		return nid, true
	}
	if cmd, ok := c.CommandByName(ref.Name); ok {
		return capability.NamedID{ID: cmd.ID, Name: cmd.Name}, true
	}
	return c.attrRef(ref)
}
