package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mash-protocol/mash-expose/internal/config"
	"github.com/mash-protocol/mash-expose/internal/metrics"
	"github.com/mash-protocol/mash-expose/pkg/catalog"
	"github.com/mash-protocol/mash-expose/pkg/connection"
	"github.com/mash-protocol/mash-expose/pkg/devclient"
	"github.com/mash-protocol/mash-expose/pkg/devclient/memory"
	"github.com/mash-protocol/mash-expose/pkg/devclient/wsclient"
	"github.com/mash-protocol/mash-expose/pkg/log"
	"github.com/mash-protocol/mash-expose/pkg/render"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "mash-expose",
	Short:         "OpenAPI documents and REST access for controller nodes",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (YAML)")
	config.RegisterFlags(rootCmd.PersistentFlags())
}

// app holds what every command builds from the configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []io.Closer
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, closer, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	slog.SetDefault(logger)
	cfg.Tracing.ServiceVersion = version
	return &app{cfg: cfg, logger: logger, closers: []io.Closer{closer}}, nil
}

// Close releases everything opened by the app, newest first.
func (rt *app) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			rt.logger.Warn("closing", "error", err)
		}
	}
}

func (rt *app) catalog() (*catalog.Catalog, error) {
	if rt.cfg.Catalog.Path == "" {
		return catalog.Builtin()
	}
	cat, err := catalog.Load(rt.cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	rt.logger.Info("catalog loaded", "path", rt.cfg.Catalog.Path,
		"version", cat.Version(), "clusters", cat.Len())
	return cat, nil
}

// client connects to the controller, or builds the demo fleet. The client
// is closed with the app.
func (rt *app) client(ctx context.Context) (devclient.Client, error) {
	if rt.cfg.Controller.Demo {
		rt.logger.Info("serving the built-in demo fleet")
		return memory.Demo(), nil
	}

	protocol, err := rt.protocolLogger()
	if err != nil {
		return nil, err
	}
	c := wsclient.New(wsclient.Config{
		URL:            rt.cfg.Controller.URL,
		RequestTimeout: rt.cfg.Controller.RequestTimeout,
		Backoff: connection.BackoffConfig{
			Initial: rt.cfg.Controller.BackoffInitial,
			Max:     rt.cfg.Controller.BackoffMax,
		},
		Logger:         rt.logger,
		ProtocolLogger: protocol,
	})

	startCtx, cancel := context.WithTimeout(ctx, rt.cfg.Controller.RequestTimeout)
	defer cancel()
	if err := c.Start(startCtx); err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, c)

	info := c.ServerInfo()
	rt.logger.Info("connected to controller", "url", rt.cfg.Controller.URL,
		"schema_version", info.SchemaVersion, "sdk_version", info.SDKVersion)
	return c, nil
}

// protocolLogger combines the traffic file and the debug log mirror.
func (rt *app) protocolLogger() (log.Logger, error) {
	var loggers []log.Logger
	if path := rt.cfg.Log.Protocol; path != "" {
		fl, err := log.NewFileLogger(path)
		if err != nil {
			return nil, fmt.Errorf("opening protocol log: %w", err)
		}
		rt.closers = append(rt.closers, fl)
		loggers = append(loggers, fl)
		rt.logger.Info("recording controller traffic", "path", path)
	}
	if rt.cfg.Log.ProtocolDebug {
		loggers = append(loggers, log.NewSlogAdapter(rt.logger))
	}
	switch len(loggers) {
	case 0:
		return nil, nil
	case 1:
		return loggers[0], nil
	default:
		return log.NewMultiLogger(loggers...), nil
	}
}

func (rt *app) renderer(client devclient.Client, cat *catalog.Catalog, m *metrics.Metrics) (*render.Renderer, error) {
	var tmpl render.Templates
	if dir := rt.cfg.Render.Templates; dir != "" {
		t, err := render.ParseTemplates(os.DirFS(dir), "*.tmpl")
		if err != nil {
			return nil, err
		}
		tmpl = t
	}
	cfg := render.Config{
		MaxInFlight: rt.cfg.Render.MaxInFlight,
		Logger:      rt.logger,
	}
	if m != nil {
		cfg.Observer = m
	}
	return render.New(client, cat, tmpl, cfg), nil
}

// requestContext bounds one-shot commands.
func requestContext(parent context.Context, rt *app) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, rt.cfg.Controller.RequestTimeout+5*time.Second)
}
