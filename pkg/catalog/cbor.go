package catalog

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// compiledFormat is the version of the compiled catalog envelope.
const compiledFormat = 1

// ErrCompiledFormat is returned for compiled catalogs of an unknown format.
var ErrCompiledFormat = errors.New("unsupported compiled catalog format")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Deterministic output so compiled catalogs can be diffed and hashed.
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

type compiled struct {
	Format  uint8      `cbor:"1,keyasint"`
	Catalog RawCatalog `cbor:"2,keyasint"`
}

// EncodeCBOR compiles a catalog into its CBOR representation. Name
// references are stored resolved, so decoding does not depend on names.
func EncodeCBOR(c *Catalog) ([]byte, error) {
	if c == nil || c.raw == nil {
		return nil, fmt.Errorf("encoding catalog: no source")
	}
	data, err := encMode.Marshal(compiled{Format: compiledFormat, Catalog: *c.raw})
	if err != nil {
		return nil, fmt.Errorf("encoding catalog: %w", err)
	}
	return data, nil
}

// DecodeCBOR decodes and builds a compiled catalog.
func DecodeCBOR(data []byte) (*Catalog, error) {
	var env compiled
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if env.Format != compiledFormat {
		return nil, fmt.Errorf("%w: %d", ErrCompiledFormat, env.Format)
	}
	return Build(&env.Catalog)
}
