package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RawCatalog is the file representation of a catalog, before references are
// resolved and metadata is indexed.
type RawCatalog struct {
	Version     string          `yaml:"version" cbor:"1,keyasint,omitempty"`
	DeviceTypes []RawDeviceType `yaml:"deviceTypes,omitempty" cbor:"2,keyasint,omitempty"`
	Clusters    []RawCluster    `yaml:"clusters" cbor:"3,keyasint"`
}

// RawDeviceType names a device type ID.
type RawDeviceType struct {
	ID   uint32 `yaml:"id" cbor:"1,keyasint"`
	Name string `yaml:"name" cbor:"2,keyasint"`
}

// RawCluster is the file representation of a cluster type.
type RawCluster struct {
	ID          uint32         `yaml:"id" cbor:"1,keyasint"`
	Name        string         `yaml:"name" cbor:"2,keyasint"`
	Revision    uint16         `yaml:"revision,omitempty" cbor:"3,keyasint,omitempty"`
	Description string         `yaml:"description,omitempty" cbor:"4,keyasint,omitempty"`
	Attributes  []RawAttribute `yaml:"attributes,omitempty" cbor:"5,keyasint,omitempty"`
	Commands    []RawCommand   `yaml:"commands,omitempty" cbor:"6,keyasint,omitempty"`
	Events      []RawEvent     `yaml:"events,omitempty" cbor:"7,keyasint,omitempty"`
	Base        RawExclusions  `yaml:"base,omitempty" cbor:"8,keyasint,omitempty"`
	Features    []RawFeature   `yaml:"features,omitempty" cbor:"9,keyasint,omitempty"`
}

// RawAttribute is the file representation of an attribute.
type RawAttribute struct {
	ID          uint32 `yaml:"id" cbor:"1,keyasint"`
	Name        string `yaml:"name" cbor:"2,keyasint"`
	Type        string `yaml:"type" cbor:"3,keyasint"`
	Access      string `yaml:"access,omitempty" cbor:"4,keyasint,omitempty"`
	Nullable    bool   `yaml:"nullable,omitempty" cbor:"5,keyasint,omitempty"`
	Description string `yaml:"description,omitempty" cbor:"6,keyasint,omitempty"`
}

// RawCommand is the file representation of a command.
type RawCommand struct {
	ID          uint32         `yaml:"id" cbor:"1,keyasint"`
	Name        string         `yaml:"name" cbor:"2,keyasint"`
	Description string         `yaml:"description,omitempty" cbor:"3,keyasint,omitempty"`
	Parameters  []RawParameter `yaml:"parameters,omitempty" cbor:"4,keyasint,omitempty"`
	Response    string         `yaml:"response,omitempty" cbor:"5,keyasint,omitempty"`
}

// RawParameter is the file representation of a command field.
type RawParameter struct {
	Name     string `yaml:"name" cbor:"1,keyasint"`
	Type     string `yaml:"type" cbor:"2,keyasint"`
	Required bool   `yaml:"required,omitempty" cbor:"3,keyasint,omitempty"`
}

// RawEvent is the file representation of an event.
type RawEvent struct {
	ID          uint32 `yaml:"id" cbor:"1,keyasint"`
	Name        string `yaml:"name" cbor:"2,keyasint"`
	Priority    string `yaml:"priority,omitempty" cbor:"3,keyasint,omitempty"`
	Description string `yaml:"description,omitempty" cbor:"4,keyasint,omitempty"`
}

// RawExclusions lists the attributes and commands excluded by a feature
// combination. Entries reference elements by ID or name.
type RawExclusions struct {
	NotWritable    []RawRef `yaml:"notWritable,omitempty" cbor:"1,keyasint,omitempty"`
	NotReadable    []RawRef `yaml:"notReadable,omitempty" cbor:"2,keyasint,omitempty"`
	NotImplemented []RawRef `yaml:"notImplemented,omitempty" cbor:"3,keyasint,omitempty"`
}

// IsZero reports whether no exclusions are listed.
func (e RawExclusions) IsZero() bool {
	return len(e.NotWritable) == 0 && len(e.NotReadable) == 0 && len(e.NotImplemented) == 0
}

// RawFeature is the file representation of one optional feature bit.
type RawFeature struct {
	Bit           uint8  `yaml:"bit" cbor:"1,keyasint"`
	Code          string `yaml:"code" cbor:"2,keyasint"`
	Name          string `yaml:"name,omitempty" cbor:"3,keyasint,omitempty"`
	RawExclusions `yaml:",inline" cbor:"4,keyasint,omitempty"`
}

// RawRef references an attribute or command by numeric ID or by name.
type RawRef struct {
	ID     uint32 `cbor:"1,keyasint,omitempty"`
	Name   string `cbor:"2,keyasint,omitempty"`
	ByName bool   `cbor:"3,keyasint,omitempty"`
}

// RefID returns a reference by numeric ID.
func RefID(id uint32) RawRef {
	return RawRef{ID: id}
}

// RefName returns a reference by name.
func RefName(name string) RawRef {
	return RawRef{Name: name, ByName: true}
}

// UnmarshalYAML accepts an integer (decimal or hex) or a name.
func (r *RawRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: reference must be an id or a name", node.Line)
	}
	if node.Tag == "!!int" {
		var id uint32
		if err := node.Decode(&id); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*r = RefID(id)
		return nil
	}
	name := strings.TrimSpace(node.Value)
	if name == "" {
		return fmt.Errorf("line %d: empty reference", node.Line)
	}
	*r = RefName(name)
	return nil
}

// MarshalYAML writes the reference back in its original form.
func (r RawRef) MarshalYAML() (any, error) {
	if r.ByName {
		return r.Name, nil
	}
	return r.ID, nil
}

func (r RawRef) String() string {
	if r.ByName {
		return r.Name
	}
	return fmt.Sprintf("0x%04X", r.ID)
}

// Parse parses a YAML (or JSON) catalog and builds it.
func Parse(data []byte) (*Catalog, error) {
	raw, err := ParseRaw(data)
	if err != nil {
		return nil, err
	}
	return Build(raw)
}

// ParseRaw parses a YAML (or JSON) catalog without building it.
func ParseRaw(data []byte) (*RawCatalog, error) {
	var raw RawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(raw.Clusters) == 0 {
		return nil, fmt.Errorf("catalog defines no clusters")
	}
	return &raw, nil
}

// Load reads and builds a catalog file. Files with a .cbor extension are
// decoded as compiled catalogs; everything else is parsed as YAML.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return DecodeCBOR(data)
	}
	return Parse(data)
}

// YAML renders the raw catalog as YAML.
func (r *RawCatalog) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}
