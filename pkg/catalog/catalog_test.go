package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
version: "test"
deviceTypes:
  - {id: 0x0100, name: OnOffLight}
clusters:
  - id: 0x0006
    name: OnOff
    attributes:
      - {id: 0x0000, name: OnOff, type: bool, access: R}
      - {id: 0x0007, name: OnTime, type: uint16, access: RW}
    commands:
      - {id: 0x00, name: Off}
      - id: 0x42
        name: OnWithTimedOff
        parameters:
          - {name: OnTime, type: uint16, required: true}
          - {name: Label, type: string}
    base:
      notWritable: [OnTime]
      notImplemented: [0x42]
    features:
      - {bit: 0, code: LT, name: Lighting}
`

func TestParse(t *testing.T) {
	cat, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	assert.Equal(t, "test", cat.Version())
	assert.Equal(t, 1, cat.Len())

	cl, ok := cat.Cluster(0x0006)
	require.True(t, ok)
	assert.Equal(t, "OnOff", cl.Name)

	attr, ok := cat.AttributeMetadata(0x0006, 7)
	require.True(t, ok)
	assert.Equal(t, "OnTime", attr.Name)
	assert.Equal(t, DataTypeUint16, attr.Type)
	assert.True(t, attr.Access.CanRead())
	assert.True(t, attr.Access.CanWrite())

	cmd, ok := cat.CommandMetadata(0x0006, 0x42)
	require.True(t, ok)
	assert.True(t, cmd.HasBody())
	require.Len(t, cmd.Parameters, 2)
	assert.Equal(t, "OnTime", cmd.Parameters[0].Name)
	assert.True(t, cmd.Parameters[0].Required)
	assert.Equal(t, DataTypeString, cmd.Parameters[1].Type)

	off, ok := cat.CommandMetadata(0x0006, 0x00)
	require.True(t, ok)
	assert.False(t, off.HasBody())

	_, ok = cat.AttributeMetadata(0x0006, 0x99)
	assert.False(t, ok)
	_, ok = cat.AttributeMetadata(0x9999, 0)
	assert.False(t, ok)
}

func TestParse_ResolvesBaseAndFeatures(t *testing.T) {
	cat, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	features, ok := cat.Lookup(0x0006)
	require.True(t, ok)
	require.Equal(t, 1, features.Len())
	assert.Equal(t, "LT", features.List[0].Code)
	assert.Equal(t, "Lighting", features.List[0].Name)

	assert.False(t, features.Resolve(0).IsWritable(7))
	assert.True(t, features.Resolve(1).IsWritable(7))
	assert.False(t, features.Resolve(0).IsImplemented(0x42))
	assert.True(t, features.Resolve(1).IsImplemented(0x42))

	// Names resolved from references are carried into the set.
	nw := features.Base.NotWritable[7]
	assert.Equal(t, "OnTime", nw.Name)
	assert.Equal(t, "OnWithTimedOff", features.Base.NotImplemented[0x42].Name)

	_, ok = cat.Lookup(0x9999)
	assert.False(t, ok)
}

func TestLookupNames(t *testing.T) {
	cat, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	cl, ok := cat.ClusterByName("onoff")
	require.True(t, ok)
	assert.Equal(t, uint32(0x0006), cl.ID)

	attr, ok := cl.AttributeByName("ONTIME")
	require.True(t, ok)
	assert.Equal(t, uint32(7), attr.ID)

	cmd, ok := cl.CommandByName("onwithtimedoff")
	require.True(t, ok)
	assert.Equal(t, uint32(0x42), cmd.ID)

	_, ok = cl.EventByName("StartUp")
	assert.False(t, ok)

	assert.Equal(t, "OnOffLight", cat.DeviceTypeName(0x0100))
	assert.Equal(t, "DeviceType0x9999", cat.DeviceTypeName(0x9999))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name: "unknown attribute name",
			yaml: `
clusters:
  - id: 1
    name: A
    attributes:
      - {id: 0, name: X, type: bool}
    base:
      notWritable: [Missing]
`,
			wantErr: ErrUnknownReference,
		},
		{
			name: "duplicate cluster",
			yaml: `
clusters:
  - {id: 1, name: A}
  - {id: 1, name: B}
`,
			wantErr: ErrDuplicateCluster,
		},
		{
			name: "duplicate attribute",
			yaml: `
clusters:
  - id: 1
    name: A
    attributes:
      - {id: 0, name: X, type: bool}
      - {id: 0, name: Y, type: bool}
`,
			wantErr: ErrDuplicateElement,
		},
		{
			name: "feature bit out of range",
			yaml: `
clusters:
  - id: 1
    name: A
    features:
      - {bit: 32, code: XX}
`,
			wantErr: ErrInvalidFeatureBit,
		},
		{
			name: "duplicate feature bit",
			yaml: `
clusters:
  - id: 1
    name: A
    features:
      - {bit: 0, code: XX}
      - {bit: 0, code: YY}
`,
			wantErr: ErrDuplicateElement,
		},
		{
			name: "invalid access",
			yaml: `
clusters:
  - id: 1
    name: A
    attributes:
      - {id: 0, name: X, type: bool, access: RQ}
`,
			wantErr: ErrInvalidAccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("clusters: [ {id: "))
	assert.Error(t, err)

	_, err = Parse([]byte("version: \"1\"\n"))
	assert.Error(t, err)

	_, err = Parse([]byte(`
clusters:
  - id: 1
    name: A
    base:
      notWritable: [{nested: true}]
`))
	assert.Error(t, err)
}

func TestParse_JSON(t *testing.T) {
	cat, err := Parse([]byte(`{"clusters":[{"id":6,"name":"OnOff","attributes":[{"id":7,"name":"OnTime","type":"uint16","access":"RW"}],"base":{"notWritable":[7]},"features":[{"bit":0,"code":"LT"}]}]}`))
	require.NoError(t, err)

	features, ok := cat.Lookup(6)
	require.True(t, ok)
	assert.False(t, features.Resolve(0).IsWritable(7))
	assert.True(t, features.Resolve(1).IsWritable(7))
}

func TestFeatureGapsGrantNothing(t *testing.T) {
	cat := MustBuiltin()
	features, ok := cat.Lookup(0x0201)
	require.True(t, ok)

	// HEAT, COOL, three unnamed bits, AUTO.
	require.Equal(t, 6, features.Len())
	assert.Empty(t, features.List[3].Code)

	for bit := 2; bit <= 4; bit++ {
		assert.True(t, features.Resolve(1<<uint(bit)).Equal(features.Resolve(0)), "bit %d", bit)
		assert.True(t, features.Resolve(1|1<<uint(bit)).Equal(features.Resolve(1)), "bit %d", bit)
	}
}

func TestBuiltin(t *testing.T) {
	cat, err := Builtin()
	require.NoError(t, err)

	for _, id := range []uint32{0x0003, 0x0006, 0x0008, 0x001D, 0x0028, 0x0201, 0x0402} {
		_, ok := cat.Cluster(id)
		assert.True(t, ok, "cluster 0x%04X", id)
	}

	clusters := cat.Clusters()
	for i := 1; i < len(clusters); i++ {
		assert.Less(t, clusters[i-1].ID, clusters[i].ID)
	}

	onOff, _ := cat.Lookup(0x0006)
	const onTime = 0x4001
	assert.False(t, onOff.Resolve(0).IsWritable(onTime))
	assert.True(t, onOff.Resolve(0b01).IsWritable(onTime))
	assert.False(t, onOff.Resolve(0b10).IsWritable(onTime))
	assert.True(t, onOff.Resolve(0b11).IsWritable(onTime))
	assert.Equal(t, "LT|DF", onOff.Describe(0b11))

	level, _ := cat.Lookup(0x0008)
	assert.False(t, level.Resolve(0).IsImplemented(0x08))
	assert.True(t, level.Resolve(0b100).IsImplemented(0x08))

	basic, ok := cat.Cluster(0x0028)
	require.True(t, ok)
	assert.Equal(t, []uint32{0, 1, 2, 3}, basic.EventIDs())

	// Alias anchors expand into independent parameter lists.
	withOnOff, ok := cat.CommandMetadata(0x0008, 0x04)
	require.True(t, ok)
	assert.Len(t, withOnOff.Parameters, 4)
}

func TestCBORRoundTrip(t *testing.T) {
	src := MustBuiltin()

	data, err := EncodeCBOR(src)
	require.NoError(t, err)

	again, err := EncodeCBOR(src)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding must be deterministic")

	dst, err := DecodeCBOR(data)
	require.NoError(t, err)
	assert.Equal(t, src.Version(), dst.Version())
	require.Equal(t, src.Len(), dst.Len())

	for _, cl := range src.Clusters() {
		other, ok := dst.Cluster(cl.ID)
		require.True(t, ok)
		assert.Equal(t, cl.Name, other.Name)
		assert.Equal(t, len(cl.Attributes()), len(other.Attributes()))
		assert.Equal(t, cl.Features.Len(), other.Features.Len())
		for mask := uint32(0); mask < 1<<uint(cl.Features.Len()); mask++ {
			assert.True(t, cl.Features.Resolve(mask).Equal(other.Features.Resolve(mask)),
				"cluster %s mask %b", cl.Name, mask)
		}
	}
}

func TestDecodeCBOR_Errors(t *testing.T) {
	_, err := DecodeCBOR([]byte{0xff})
	assert.Error(t, err)

	data, err := encMode.Marshal(compiled{Format: 99})
	require.NoError(t, err)
	_, err = DecodeCBOR(data)
	assert.ErrorIs(t, err, ErrCompiledFormat)

	_, err = EncodeCBOR(nil)
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(testCatalog), 0o644))

	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)

	data, err := EncodeCBOR(fromYAML)
	require.NoError(t, err)
	cborPath := filepath.Join(dir, "catalog.cbor")
	require.NoError(t, os.WriteFile(cborPath, data, 0o644))

	fromCBOR, err := Load(cborPath)
	require.NoError(t, err)
	features, ok := fromCBOR.Lookup(0x0006)
	require.True(t, ok)
	assert.True(t, features.Resolve(1).IsWritable(7))

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRawYAML(t *testing.T) {
	cat, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	out, err := cat.Raw().YAML()
	require.NoError(t, err)

	again, err := Parse(out)
	require.NoError(t, err)
	a, _ := cat.Lookup(0x0006)
	b, _ := again.Lookup(0x0006)
	assert.True(t, a.Resolve(0).Equal(b.Resolve(0)))
	assert.True(t, a.Resolve(1).Equal(b.Resolve(1)))
}
