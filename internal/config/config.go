// Package config loads the exposer configuration from a YAML file,
// MASH_EXPOSE_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mash-protocol/mash-expose/internal/observability"
)

// EnvPrefix prefixes every environment override, e.g.
// MASH_EXPOSE_CONTROLLER_URL.
const EnvPrefix = "MASH_EXPOSE"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Server     ServerConfig         `mapstructure:"server"`
	Controller ControllerConfig     `mapstructure:"controller"`
	Catalog    CatalogConfig        `mapstructure:"catalog"`
	Render     RenderConfig         `mapstructure:"render"`
	Log        LogConfig            `mapstructure:"log"`
	Metrics    MetricsConfig        `mapstructure:"metrics"`
	Tracing    observability.Config `mapstructure:"tracing"`
	Discovery  DiscoveryConfig      `mapstructure:"discovery"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	PublicURL       string        `mapstructure:"public_url"` // server URL written into documents; empty derives it from the request
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	Title           string        `mapstructure:"title"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type ControllerConfig struct {
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`

	// Demo serves the built-in in-memory fleet instead of dialling URL.
	Demo bool `mapstructure:"demo"`
}

type CatalogConfig struct {
	// Path of a YAML, JSON or CBOR catalog. Empty uses the built-in catalog.
	Path string `mapstructure:"path"`
}

type RenderConfig struct {
	MaxInFlight int `mapstructure:"max_in_flight"`

	// Templates is a directory of *.tmpl files overriding the built-in
	// fragment templates.
	Templates string `mapstructure:"templates"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
	File   string `mapstructure:"file"`   // empty logs to stderr

	// Protocol is the path of the controller traffic log (.mlog). Empty
	// disables it.
	Protocol string `mapstructure:"protocol"`

	// ProtocolDebug mirrors controller traffic into the debug log.
	ProtocolDebug bool `mapstructure:"protocol_debug"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type DiscoveryConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Instance  string `mapstructure:"instance"`
	Interface string `mapstructure:"interface"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			Title:           "mash-expose",
		},
		Controller: ControllerConfig{
			URL:            "ws://localhost:5580/ws",
			RequestTimeout: 30 * time.Second,
			BackoffInitial: time.Second,
			BackoffMax:     time.Minute,
		},
		Render: RenderConfig{MaxInFlight: 16},
		Log:    LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Tracing: observability.Config{
			ServiceName: "mash-expose",
			SampleRatio: 1,
		},
		Discovery: DiscoveryConfig{Instance: "mash-expose"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.public_url", d.Server.PublicURL)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.title", d.Server.Title)

	v.SetDefault("controller.url", d.Controller.URL)
	v.SetDefault("controller.request_timeout", d.Controller.RequestTimeout)
	v.SetDefault("controller.backoff_initial", d.Controller.BackoffInitial)
	v.SetDefault("controller.backoff_max", d.Controller.BackoffMax)
	v.SetDefault("controller.demo", d.Controller.Demo)

	v.SetDefault("catalog.path", d.Catalog.Path)

	v.SetDefault("render.max_in_flight", d.Render.MaxInFlight)
	v.SetDefault("render.templates", d.Render.Templates)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.protocol", d.Log.Protocol)
	v.SetDefault("log.protocol_debug", d.Log.ProtocolDebug)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)

	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)
	v.SetDefault("tracing.sample_ratio", d.Tracing.SampleRatio)

	v.SetDefault("discovery.enabled", d.Discovery.Enabled)
	v.SetDefault("discovery.instance", d.Discovery.Instance)
	v.SetDefault("discovery.interface", d.Discovery.Interface)
}

// flagBindings maps configuration keys to the flags registered by
// RegisterFlags.
var flagBindings = map[string]string{
	"server.host":            "host",
	"server.port":            "port",
	"server.public_url":      "public-url",
	"controller.url":         "controller-url",
	"controller.demo":        "demo",
	"catalog.path":           "catalog",
	"render.max_in_flight":   "max-in-flight",
	"render.templates":       "templates",
	"log.level":              "log-level",
	"log.format":             "log-format",
	"log.file":               "log-file",
	"log.protocol":           "protocol-log",
	"log.protocol_debug":     "protocol-debug",
	"metrics.enabled":        "metrics",
	"tracing.endpoint":       "otlp-endpoint",
	"discovery.enabled":      "mdns",
	"discovery.instance":     "mdns-instance",
	"discovery.interface":    "mdns-interface",
	"controller.backoff_max": "backoff-max",
}

// RegisterFlags adds the configuration flags to fs. Flags only override
// the file and environment when set explicitly.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("host", d.Server.Host, "HTTP listen address")
	fs.Int("port", d.Server.Port, "HTTP listen port")
	fs.String("public-url", "", "base URL written into generated documents")
	fs.String("controller-url", d.Controller.URL, "controller websocket URL")
	fs.Bool("demo", false, "serve the built-in demo fleet instead of a controller")
	fs.String("catalog", "", "cluster catalog file (YAML, JSON or CBOR); empty uses the built-in catalog")
	fs.Int("max-in-flight", d.Render.MaxInFlight, "concurrent controller requests per document")
	fs.String("templates", "", "directory of fragment templates overriding the built-in ones")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log-format", d.Log.Format, "log format (text, json)")
	fs.String("log-file", "", "write logs to this file instead of stderr")
	fs.String("protocol-log", "", "record controller traffic to this .mlog file")
	fs.Bool("protocol-debug", false, "mirror controller traffic into the debug log")
	fs.Bool("metrics", d.Metrics.Enabled, "serve Prometheus metrics on /metrics")
	fs.String("otlp-endpoint", "", "OTLP/HTTP trace collector host:port")
	fs.Bool("mdns", false, "advertise the service over mDNS")
	fs.String("mdns-instance", d.Discovery.Instance, "mDNS instance name")
	fs.String("mdns-interface", "", "network interface for mDNS")
	fs.Duration("backoff-max", d.Controller.BackoffMax, "maximum controller reconnect delay")
}

// Load reads the configuration. path may be empty; fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if fs != nil {
		for key, name := range flagBindings {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.PublicURL != "" {
		if u, err := url.Parse(c.Server.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.public_url %q is not an absolute URL", c.Server.PublicURL))
		}
	}
	if !c.Controller.Demo {
		u, err := url.Parse(c.Controller.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, fmt.Errorf("controller.url %q must be a ws:// or wss:// URL", c.Controller.URL))
		}
	}
	if c.Controller.RequestTimeout <= 0 {
		errs = append(errs, errors.New("controller.request_timeout must be positive"))
	}
	if c.Render.MaxInFlight < 1 {
		errs = append(errs, fmt.Errorf("render.max_in_flight %d must be at least 1", c.Render.MaxInFlight))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio %v must be within [0,1]", c.Tracing.SampleRatio))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ParseLevel parses a slog level name.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("log.level %q: %w", s, err)
	}
	return l, nil
}
