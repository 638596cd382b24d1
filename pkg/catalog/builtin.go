package catalog

import (
	"embed"
	"fmt"
	"sync"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

var (
	builtinOnce sync.Once
	builtinCat  *Catalog
	builtinErr  error
)

// Builtin returns the catalog compiled into the binary. It covers a subset
// of the Matter application clusters and is used when no catalog file is
// configured.
func Builtin() (*Catalog, error) {
	builtinOnce.Do(func() {
		data, err := builtinFS.ReadFile("builtin/matter.yaml")
		if err != nil {
			builtinErr = fmt.Errorf("reading builtin catalog: %w", err)
			return
		}
		builtinCat, builtinErr = Parse(data)
	})
	return builtinCat, builtinErr
}

// MustBuiltin is like Builtin but panics on error.
func MustBuiltin() *Catalog {
	c, err := Builtin()
	if err != nil {
		panic(err)
	}
	return c
}
