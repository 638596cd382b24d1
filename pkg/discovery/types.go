package discovery

import (
	"errors"
	"time"
)

const (
	// ServiceType is the DNS-SD service type of the exposer.
	ServiceType = "_mash-expose._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultInstance is the instance name used when none is configured.
	DefaultInstance = "mash-expose"

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63

	// TXTVersion is the current TXT record format.
	TXTVersion = "1"
)

// TXT record keys.
const (
	TXTKeyVersionFormat = "txtvers"
	TXTKeyPath          = "path"
	TXTKeyAPI           = "api"
	TXTKeyVersion       = "version"
	TXTKeyController    = "ctrl"
)

// Default TXT values.
const (
	DefaultPath   = "/html/nodes"
	DefaultAPI    = "/api/v1"
	DefaultTTL    = 120 * time.Second
	DefaultBrowse = 3 * time.Second
)

// Errors.
var (
	ErrMissingRequired     = errors.New("missing required TXT record")
	ErrUnsupportedVersion  = errors.New("unsupported TXT record version")
	ErrInstanceNameTooLong = errors.New("instance name too long")
	ErrInvalidPort         = errors.New("invalid port")
	ErrNotAdvertising      = errors.New("not advertising")
)

// ServiceInfo is what an exposer announces about itself.
type ServiceInfo struct {
	Instance   string
	Port       uint16
	Path       string
	API        string
	Version    string
	Controller string
}

// Service is an exposer found on the network.
type Service struct {
	ServiceInfo
	Host      string
	Addresses []string
}

// URL returns the node index URL of the first address, or "" when the
// service has no address.
func (s *Service) URL() string {
	if len(s.Addresses) == 0 {
		return ""
	}
	return "http://" + joinHostPort(s.Addresses[0], s.Port) + s.Path
}
