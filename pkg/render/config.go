package render

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mash-protocol/mash-expose/pkg/devclient"
)

// DefaultMaxInFlight bounds concurrent device client calls per render.
const DefaultMaxInFlight = 16

const tracerName = "github.com/mash-protocol/mash-expose/pkg/render"

// Config configures a Renderer.
type Config struct {
	// MaxInFlight bounds the device client calls of one render.
	MaxInFlight int

	// Global attribute IDs read for every cluster instance.
	FeatureMapAttribute          uint32
	AttributeListAttribute       uint32
	AcceptedCommandListAttribute uint32

	// Logger for skipped clusters. Nil disables logging.
	Logger *slog.Logger

	// Tracer for render spans. Nil uses the global provider.
	Tracer trace.Tracer

	// Observer receives render statistics. Nil disables.
	Observer Observer
}

// DefaultConfig returns the default renderer configuration.
func DefaultConfig() Config {
	return Config{
		MaxInFlight:                  DefaultMaxInFlight,
		FeatureMapAttribute:          devclient.AttributeFeatureMap,
		AttributeListAttribute:       devclient.AttributeAttributeList,
		AcceptedCommandListAttribute: devclient.AttributeAcceptedCommandList,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = d.MaxInFlight
	}
	if c.FeatureMapAttribute == 0 {
		c.FeatureMapAttribute = d.FeatureMapAttribute
	}
	if c.AttributeListAttribute == 0 {
		c.AttributeListAttribute = d.AttributeListAttribute
	}
	if c.AcceptedCommandListAttribute == 0 {
		c.AcceptedCommandListAttribute = d.AcceptedCommandListAttribute
	}
	if c.Tracer == nil {
		c.Tracer = otel.Tracer(tracerName)
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	return c
}

// Skip reasons reported to Observer.ClusterSkipped.
const (
	SkipUnknownCluster = "unknown_cluster"
	SkipFetchError     = "fetch_error"
	SkipTemplateError  = "template_error"
)

// Observer receives render statistics.
type Observer interface {
	// ClusterSkipped is called when a cluster contributes no fragments
	// because of reason.
	ClusterSkipped(reason string)

	// FragmentsRendered is called once per cluster with the number of
	// fragments of each kind.
	FragmentsRendered(attributes, commands, events int)

	// RenderDone is called when a node render finishes.
	RenderDone(elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ClusterSkipped(string)           {}
func (nopObserver) FragmentsRendered(int, int, int) {}
func (nopObserver) RenderDone(time.Duration, error) {}
