package model

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"time"

	"github.com/drone/envsubst"
	"gopkg.in/yaml.v3"
)

const (
	LogFormatJSON = "json"
	LogFormatText = "text"

	DefaultHost               = "127.0.0.1"
	DefaultReadinessAttempts  = 300
	DefaultReadinessInterval  = 100 * time.Millisecond
	DefaultReadinessDialLimit = 500 * time.Millisecond
)

type Config struct {
	Version   int       `yaml:"version"` // fixed 0 for now
	Log       Log       `yaml:"log"`
	Server    Server    `yaml:"server"`
	Readiness Readiness `yaml:"readiness"`
}

type Log struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|text
}

// Server configures where the embedded service listens. The port is always
// assigned by the system.
type Server struct {
	Host string `yaml:"host"`
}

// Readiness is the bounded connect-probe policy used after the embedded
// service is launched.
type Readiness struct {
	Attempts    int           `yaml:"attempts"`
	Interval    time.Duration `yaml:"interval"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Version: 0,
		Log: Log{
			Level:  "info",
			Format: LogFormatJSON,
		},
		Server: Server{
			Host: DefaultHost,
		},
		Readiness: Readiness{
			Attempts:    DefaultReadinessAttempts,
			Interval:    DefaultReadinessInterval,
			DialTimeout: DefaultReadinessDialLimit,
		},
	}
}

// LoadConfig expands ${ENV} references in r, decodes the YAML on top of
// DefaultConfig and validates the result.
func LoadConfig(r io.Reader) (Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	expanded, err := envsubst.EvalEnv(string(raw))
	if err != nil {
		return Config{}, fmt.Errorf("expanding config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ServerAddr returns the configured loopback host.
func (c Config) ServerAddr() (netip.Addr, error) {
	addr, err := netip.ParseAddr(c.Server.Host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("server.host: %w", err)
	}
	if !addr.IsLoopback() {
		return netip.Addr{}, fmt.Errorf("server.host %s: %w", addr, ErrNotLoopback)
	}
	return addr, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Version != 0 {
		errs = append(errs, fmt.Errorf("config version %d is not supported, expected 0", c.Version))
	}
	if c.Log.Level != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
			errs = append(errs, fmt.Errorf("log.level %q: expected debug, info, warn or error", c.Log.Level))
		}
	}
	switch c.Log.Format {
	case "", LogFormatJSON, LogFormatText:
	default:
		errs = append(errs, fmt.Errorf("log.format %q: expected json or text", c.Log.Format))
	}
	if _, err := c.ServerAddr(); err != nil {
		errs = append(errs, err)
	}
	if c.Readiness.Attempts <= 0 {
		errs = append(errs, fmt.Errorf("readiness.attempts must be positive, got %d", c.Readiness.Attempts))
	}
	if c.Readiness.Interval <= 0 {
		errs = append(errs, fmt.Errorf("readiness.interval must be positive, got %s", c.Readiness.Interval))
	}
	if c.Readiness.DialTimeout <= 0 {
		errs = append(errs, fmt.Errorf("readiness.dial_timeout must be positive, got %s", c.Readiness.DialTimeout))
	}
	return errors.Join(errs...)
}
