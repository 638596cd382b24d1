package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/mash-protocol/mash-expose/internal/api"
	"github.com/mash-protocol/mash-expose/internal/metrics"
	"github.com/mash-protocol/mash-expose/internal/observability"
	"github.com/mash-protocol/mash-expose/pkg/discovery"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func (rt *app) serve(ctx context.Context) error {
	cfg := rt.cfg

	shutdownTracing, err := observability.Setup(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			rt.logger.Warn("flushing traces", "error", err)
		}
	}()

	cat, err := rt.catalog()
	if err != nil {
		return err
	}
	client, err := rt.client(ctx)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}
	r, err := rt.renderer(client, cat, m)
	if err != nil {
		return err
	}

	srv, err := api.New(api.Deps{
		Config: api.Config{
			Addr:            cfg.Server.Addr(),
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			CORSOrigins:     cfg.Server.CORSOrigins,
			PublicURL:       cfg.Server.PublicURL,
			Title:           cfg.Server.Title,
			Version:         version,
		},
		Client:   client,
		Renderer: r,
		Catalog:  cat,
		Logger:   rt.logger,
		Metrics:  m,
		Tracer:   otel.Tracer("github.com/mash-protocol/mash-expose/internal/api"),
	})
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}

	if cfg.Discovery.Enabled {
		adv := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{
			Interface: cfg.Discovery.Interface,
			TTL:       discovery.DefaultTTL,
			Logger:    rt.logger,
		})
		controller := cfg.Controller.URL
		if cfg.Controller.Demo {
			controller = "demo"
		}
		err := adv.Advertise(ctx, &discovery.ServiceInfo{
			Instance:   cfg.Discovery.Instance,
			Port:       uint16(cfg.Server.Port),
			Path:       discovery.DefaultPath,
			API:        discovery.DefaultAPI,
			Version:    version,
			Controller: controller,
		})
		if err != nil {
			rt.logger.Warn("mDNS advertisement failed", "error", err)
		} else {
			defer adv.Stop()
		}
	}

	rt.logger.Info("mash-expose started", "version", version, "address", cfg.Server.Addr(),
		"catalog_clusters", cat.Len())

	<-ctx.Done()
	rt.logger.Info("shutting down")
	if err := srv.Close(); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}
	return nil
}
