package discovery

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTXTDefaults(t *testing.T) {
	txt := EncodeTXT(&ServiceInfo{Version: "1.2.0"})
	assert.Equal(t, TXTRecordMap{
		"txtvers": "1",
		"path":    "/html/nodes",
		"api":     "/api/v1",
		"version": "1.2.0",
	}, txt)
}

func TestTXTStringsSorted(t *testing.T) {
	strs := TXTRecordsToStrings(EncodeTXT(&ServiceInfo{Controller: "ws://ctrl:5580/ws"}))
	assert.Equal(t, []string{"api=/api/v1", "ctrl=ws://ctrl:5580/ws", "path=/html/nodes", "txtvers=1"}, strs)
}

func TestDecodeTXT(t *testing.T) {
	info, err := DecodeTXT(StringsToTXTRecords([]string{"txtvers=1", "path=/ui", "version=0.3.1", "flag"}))
	require.NoError(t, err)
	assert.Equal(t, "/ui", info.Path)
	assert.Equal(t, DefaultAPI, info.API)
	assert.Equal(t, "0.3.1", info.Version)

	_, err = DecodeTXT(TXTRecordMap{"path": "/"})
	assert.ErrorIs(t, err, ErrMissingRequired)

	_, err = DecodeTXT(TXTRecordMap{"txtvers": "2", "path": "/"})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = DecodeTXT(TXTRecordMap{"txtvers": "1"})
	assert.ErrorIs(t, err, ErrMissingRequired)
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"a=1", "b=x=y", "flag", "", "=orphan"})
	assert.Equal(t, TXTRecordMap{"a": "1", "b": "x=y", "flag": ""}, txt)
}

func TestValidateInstanceName(t *testing.T) {
	assert.NoError(t, ValidateInstanceName("kitchen"))
	assert.Error(t, ValidateInstanceName(""))
	assert.ErrorIs(t, ValidateInstanceName(strings.Repeat("x", 64)), ErrInstanceNameTooLong)
}

func TestAdvertiseRejectsInvalidInfo(t *testing.T) {
	a := NewMDNSAdvertiser(DefaultAdvertiserConfig())
	ctx := context.Background()

	err := a.Advertise(ctx, &ServiceInfo{Instance: "kitchen"})
	assert.True(t, errors.Is(err, ErrInvalidPort))

	err = a.Advertise(ctx, &ServiceInfo{Instance: strings.Repeat("x", 70), Port: 8080})
	assert.ErrorIs(t, err, ErrInstanceNameTooLong)

	assert.ErrorIs(t, a.Update(&ServiceInfo{}), ErrNotAdvertising)
	_, active := a.Info()
	assert.False(t, active)
	a.Stop()
}

func TestEntryToService(t *testing.T) {
	entry := &zeroconf.ServiceEntry{ServiceRecord: zeroconf.ServiceRecord{Instance: "kitchen", Service: ServiceType, Domain: Domain}}
	entry.HostName = "pi.local."
	entry.Port = 8080
	entry.Text = []string{"txtvers=1", "path=/html/nodes", "version=1.0.0"}
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}
	entry.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
	svc := entryToService(entry)
	require.NotNil(t, svc)
	assert.Equal(t, "kitchen", svc.Instance)
	assert.Equal(t, uint16(8080), svc.Port)
	assert.Equal(t, []string{"192.168.1.20", "fe80::1"}, svc.Addresses)
	assert.Equal(t, "http://192.168.1.20:8080/html/nodes", svc.URL())

	entry.Text = []string{"unrelated=1"}
	assert.Nil(t, entryToService(entry))
}

func TestServiceURL(t *testing.T) {
	svc := &Service{ServiceInfo: ServiceInfo{Port: 80, Path: "/html/nodes"}, Addresses: []string{"fe80::1"}}
	assert.Equal(t, "http://[fe80::1]:80/html/nodes", svc.URL())
	assert.Empty(t, (&Service{}).URL())
}

func TestAddressAggregation(t *testing.T) {
	addrs := mergeAddresses([]string{"10.0.0.1"}, []string{"10.0.0.1", "10.0.0.2"})
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, addrs)

	gone := &zeroconf.ServiceEntry{ServiceRecord: zeroconf.ServiceRecord{Instance: "kitchen", Service: ServiceType, Domain: Domain}}
	gone.AddrIPv4 = []net.IP{net.ParseIP("10.0.0.1")}
	assert.Equal(t, []string{"10.0.0.2"}, removeAddresses(addrs, gone))
}
