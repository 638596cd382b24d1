package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Advertiser announces the exposer on the local network.
type Advertiser interface {
	// Advertise starts announcing info, replacing a previous announcement.
	Advertise(ctx context.Context, info *ServiceInfo) error

	// Update replaces the TXT records of the running announcement.
	Update(info *ServiceInfo) error

	// Stop withdraws the announcement. Stopping twice is a no-op.
	Stop()
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration

	Logger *slog.Logger
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: DefaultTTL}
}

// MDNSAdvertiser implements Advertiser using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
	info   ServiceInfo
}

var _ Advertiser = (*MDNSAdvertiser)(nil)

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// interfaces returns the network interfaces to use, nil meaning all.
func (a *MDNSAdvertiser) interfaces() []net.Interface {
	return selectInterfaces(a.config.Interface)
}

// Advertise registers the service.
func (a *MDNSAdvertiser) Advertise(_ context.Context, info *ServiceInfo) error {
	name := info.Instance
	if name == "" {
		name = DefaultInstance
	}
	if err := ValidateInstanceName(name); err != nil {
		return err
	}
	if info.Port == 0 {
		return ErrInvalidPort
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		name,
		ServiceType,
		Domain,
		int(info.Port),
		TXTRecordsToStrings(EncodeTXT(info)),
		a.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceType, err)
	}
	a.server = server
	a.info = *info
	a.info.Instance = name

	if a.config.Logger != nil {
		a.config.Logger.Info("advertising service", "instance", name, "type", ServiceType, "port", info.Port)
	}
	return nil
}

// Update replaces the TXT records. The instance name and port are fixed for
// the lifetime of an announcement.
func (a *MDNSAdvertiser) Update(info *ServiceInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotAdvertising
	}
	a.server.SetText(TXTRecordsToStrings(EncodeTXT(info)))
	a.info.Path = info.Path
	a.info.API = info.API
	a.info.Version = info.Version
	a.info.Controller = info.Controller
	return nil
}

// Stop withdraws the announcement.
func (a *MDNSAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Info returns the current announcement and whether one is active.
func (a *MDNSAdvertiser) Info() (ServiceInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.info, a.server != nil
}

func selectInterfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}
