package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mash-protocol/mash-expose/internal/metrics"
	"github.com/mash-protocol/mash-expose/pkg/catalog"
	"github.com/mash-protocol/mash-expose/pkg/devclient"
	"github.com/mash-protocol/mash-expose/pkg/render"
)

const tracerName = "github.com/mash-protocol/mash-expose/internal/api"

// Renderer produces documents and live capability sets.
type Renderer interface {
	Document(ctx context.Context, id devclient.NodeID, info render.DocumentInfo) ([]byte, error)
	Resolve(ctx context.Context, node devclient.NodeID, endpoint uint16, cluster uint32) (*render.Live, error)
	EndpointName(ep *devclient.Endpoint) string
}

// Catalog resolves cluster names used in request paths.
type Catalog interface {
	ClusterByName(name string) (*catalog.Cluster, bool)
	Version() string
	Len() int
}

// Config holds the HTTP settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// CORSOrigins lists the allowed origins; empty disables CORS headers.
	CORSOrigins []string

	// PublicURL is written into documents as the server URL. Empty derives
	// it from each request.
	PublicURL string

	Title   string
	Version string
}

// Deps holds the dependencies of the server.
type Deps struct {
	Config   Config
	Client   devclient.Client
	Renderer Renderer
	Catalog  Catalog
	Logger   *slog.Logger

	// Metrics is optional; nil disables /metrics and request metrics.
	Metrics *metrics.Metrics

	// Tracer is optional; nil uses the global provider.
	Tracer trace.Tracer
}

// Server is the HTTP server of the exposer.
type Server struct {
	cfg      Config
	client   devclient.Client
	renderer Renderer
	catalog  Catalog
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer

	handler  http.Handler
	server   *http.Server
	listener net.Listener

	// done is closed on Close so event streams end; http.Server.Shutdown
	// does not track hijacked connections.
	done chan struct{}
}

// New creates a server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Client == nil {
		return nil, errors.New("device client is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(tracerName)
	}
	if deps.Config.ShutdownTimeout <= 0 {
		deps.Config.ShutdownTimeout = 10 * time.Second
	}
	if deps.Config.Title == "" {
		deps.Config.Title = "mash-expose"
	}
	if deps.Config.Version == "" {
		deps.Config.Version = "dev"
	}

	s := &Server{
		cfg:      deps.Config,
		client:   deps.Client,
		renderer: deps.Renderer,
		catalog:  deps.Catalog,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
		done:     make(chan struct{}),
	}
	s.handler = s.buildRouter()
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listen address and serves in the background. Bind
// errors are returned; later serve errors are logged.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	s.logger.Info("HTTP server listening", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close ends event streams and waits up to the shutdown timeout for
// in-flight requests.
func (s *Server) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("HTTP server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	return nil
}
