package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-expose/pkg/catalog"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLookupCluster(t *testing.T) {
	cat := catalog.MustBuiltin()

	cl, err := lookupCluster(cat, "onoff")
	require.NoError(t, err)
	assert.Equal(t, "OnOff", cl.Name)

	cl, err = lookupCluster(cat, "0x0201")
	require.NoError(t, err)
	assert.Equal(t, "Thermostat", cl.Name)

	_, err = lookupCluster(cat, "Nope")
	assert.ErrorIs(t, err, catalog.ErrClusterNotFound)
}

func TestPrintResolution(t *testing.T) {
	cl, ok := catalog.MustBuiltin().ClusterByName("OnOff")
	require.True(t, ok)

	var noFeatures bytes.Buffer
	require.NoError(t, printResolution(&noFeatures, cl, 0))
	assert.Regexp(t, `attribute\s+OnTime\s+excluded`, noFeatures.String())
	assert.Regexp(t, `command\s+OffWithEffect\s+not implemented`, noFeatures.String())

	var lighting bytes.Buffer
	require.NoError(t, printResolution(&lighting, cl, 0x1))
	assert.Contains(t, lighting.String(), "Features: 0x1 LT")
	assert.Regexp(t, `attribute\s+OnTime\s+read/write`, lighting.String())
	assert.Regexp(t, `attribute\s+OnOff\s+read\n`, lighting.String())
	assert.Regexp(t, `command\s+OffWithEffect\s+implemented`, lighting.String())

	var unknown bytes.Buffer
	require.NoError(t, printResolution(&unknown, cl, 0x80))
	assert.Contains(t, unknown.String(), "Ignored:  0x80")
}

func TestResolveCommand(t *testing.T) {
	out, err := execute(t, "resolve", "Thermostat", "0b01")
	require.NoError(t, err)
	assert.Contains(t, out, "Cluster:  Thermostat (0x0201)")
	assert.Regexp(t, `attribute\s+OccupiedCoolingSetpoint\s+excluded`, out)
	assert.Regexp(t, `attribute\s+OccupiedHeatingSetpoint\s+read/write`, out)
}

func TestDocCommandDemo(t *testing.T) {
	out, err := execute(t, "doc", "2", "--demo")
	require.NoError(t, err)
	assert.Contains(t, out, "openapi: 3.0.3")
	assert.Contains(t, out, "/api/v1/2/1/Thermostat/attribute/LocalTemperature:")
}

func TestCatalogCompile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "catalog.yaml")
	dst := filepath.Join(dir, "catalog.cbor")

	data, err := catalog.MustBuiltin().Raw().YAML()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src, data, 0o644))

	out, err := execute(t, "catalog", "compile", src, dst)
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled")

	compiled, err := catalog.Load(dst)
	require.NoError(t, err)
	assert.Equal(t, catalog.MustBuiltin().Len(), compiled.Len())
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mash-expose dev")
}
