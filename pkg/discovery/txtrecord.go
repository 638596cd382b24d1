package discovery

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates the TXT records for info. Empty paths fall back to the
// defaults.
func EncodeTXT(info *ServiceInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyVersionFormat: TXTVersion,
		TXTKeyPath:          info.Path,
		TXTKeyAPI:           info.API,
	}
	if txt[TXTKeyPath] == "" {
		txt[TXTKeyPath] = DefaultPath
	}
	if txt[TXTKeyAPI] == "" {
		txt[TXTKeyAPI] = DefaultAPI
	}
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	if info.Controller != "" {
		txt[TXTKeyController] = info.Controller
	}
	return txt
}

// DecodeTXT parses announced TXT records. The instance name and port are
// not part of the records and stay zero.
func DecodeTXT(txt TXTRecordMap) (*ServiceInfo, error) {
	v, ok := txt[TXTKeyVersionFormat]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersionFormat)
	}
	if v != TXTVersion {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}
	path, ok := txt[TXTKeyPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyPath)
	}
	info := &ServiceInfo{
		Path:       path,
		API:        txt[TXTKeyAPI],
		Version:    txt[TXTKeyVersion],
		Controller: txt[TXTKeyController],
	}
	if info.API == "" {
		info.API = DefaultAPI
	}
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings in key
// order.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	keys := make([]string, 0, len(txt))
	for k := range txt {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	result := make([]string, 0, len(txt))
	for _, k := range keys {
		result = append(result, k+"="+txt[k])
	}
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if k == "" {
			continue
		}
		if !found {
			// Key without value (boolean flag)
			v = ""
		}
		txt[k] = v
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

func joinHostPort(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}
