package bootstrap

import (
	"log/slog"
	"net/netip"

	"github.com/CZERTAINLY/Bridge/internal/exechook"
	"github.com/CZERTAINLY/Bridge/internal/model"
)

type Option func(*Bootstrap)

// WithHost sets the loopback address to bind. Default 127.0.0.1.
func WithHost(host netip.Addr) Option {
	return func(b *Bootstrap) {
		b.host = host
	}
}

// WithRegistry sets the registry the override is installed into. The same
// registry must be the one handed to the embedded service.
func WithRegistry(r *exechook.Registry) Option {
	return func(b *Bootstrap) {
		b.hooks = r
	}
}

// WithOverride replaces process spawning for the embedded service.
func WithOverride(o Override) Option {
	return func(b *Bootstrap) {
		b.override = o
	}
}

func WithScheduler(s *Scheduler) Option {
	return func(b *Bootstrap) {
		b.scheduler = s
	}
}

func WithReadiness(r Readiness) Option {
	return func(b *Bootstrap) {
		b.readiness = r
	}
}

func WithListen(listen ListenFunc) Option {
	return func(b *Bootstrap) {
		b.listen = listen
	}
}

// FromConfig applies the server and readiness sections of cfg. A host that
// is not a loopback address is ignored with a warning and the default host
// is kept.
func FromConfig(cfg model.Config) []Option {
	opts := []Option{
		WithReadiness(Readiness{
			Attempts:    cfg.Readiness.Attempts,
			Interval:    cfg.Readiness.Interval,
			DialTimeout: cfg.Readiness.DialTimeout,
		}),
	}
	host, err := cfg.ServerAddr()
	if err != nil {
		slog.Warn("ignoring server.host, using the default", "host", cfg.Server.Host, "default", model.DefaultHost, "error", err)
		return opts
	}
	opts = append(opts, WithHost(host))
	return opts
}
