package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mash-protocol/mash-expose/pkg/capability"
)

// Catalog errors.
var (
	ErrClusterNotFound   = errors.New("cluster not found")
	ErrDuplicateCluster  = errors.New("duplicate cluster")
	ErrDuplicateElement  = errors.New("duplicate element")
	ErrUnknownReference  = errors.New("unknown reference")
	ErrInvalidFeatureBit = errors.New("invalid feature bit")
	ErrInvalidAccess     = errors.New("invalid access")
)

// Catalog is the read-only table of known cluster types.
type Catalog struct {
	version     string
	clusters    map[uint32]*Cluster
	byName      map[string]uint32
	deviceTypes map[uint32]string

	// raw is the normalized source the catalog was built from.
	raw *RawCatalog
}

// Version returns the catalog's declared data model revision.
func (c *Catalog) Version() string {
	return c.version
}

// Len returns the number of cluster types.
func (c *Catalog) Len() int {
	return len(c.clusters)
}

// Cluster returns the entry of a cluster type.
func (c *Catalog) Cluster(clusterID uint32) (*Cluster, bool) {
	cl, ok := c.clusters[clusterID]
	return cl, ok
}

// ClusterByName resolves a cluster type by name (case-insensitive).
func (c *Catalog) ClusterByName(name string) (*Cluster, bool) {
	id, ok := c.byName[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return c.clusters[id], true
}

// Clusters returns all cluster types ordered by ID.
func (c *Catalog) Clusters() []*Cluster {
	return sortedValues(c.clusters)
}

// Lookup returns the feature entry of a cluster type.
func (c *Catalog) Lookup(clusterID uint32) (*capability.Features, bool) {
	cl, ok := c.clusters[clusterID]
	if !ok {
		return nil, false
	}
	return cl.Features, true
}

// AttributeMetadata returns the metadata of an attribute of a cluster type.
func (c *Catalog) AttributeMetadata(clusterID, attrID uint32) (*AttributeMetadata, bool) {
	cl, ok := c.clusters[clusterID]
	if !ok {
		return nil, false
	}
	return cl.Attribute(attrID)
}

// CommandMetadata returns the metadata of a command of a cluster type.
func (c *Catalog) CommandMetadata(clusterID, cmdID uint32) (*CommandMetadata, bool) {
	cl, ok := c.clusters[clusterID]
	if !ok {
		return nil, false
	}
	return cl.Command(cmdID)
}

// EventMetadata returns the metadata of an event of a cluster type.
func (c *Catalog) EventMetadata(clusterID, eventID uint32) (*EventMetadata, bool) {
	cl, ok := c.clusters[clusterID]
	if !ok {
		return nil, false
	}
	return cl.Event(eventID)
}

// DeviceTypeName returns the name of a device type, or a hex placeholder
// when the type is unknown.
func (c *Catalog) DeviceTypeName(id uint32) string {
	if name, ok := c.deviceTypes[id]; ok {
		return name
	}
	return fmt.Sprintf("DeviceType0x%04X", id)
}

// Raw returns the normalized source representation of the catalog, with
// every exclusion reference resolved to a numeric ID.
func (c *Catalog) Raw() *RawCatalog {
	return c.raw
}
