package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"time"
)

var errNotListening = errors.New("not listening")

// Readiness is the bounded connect-probe policy. The embedded service does
// not announce when it is ready, so a successful TCP connect is the signal.
type Readiness struct {
	Attempts    int
	Interval    time.Duration
	DialTimeout time.Duration
}

// waitReady dials addr up to r.Attempts times, r.Interval apart. It returns
// true on the first accepted connection.
func (r Readiness) waitReady(ctx context.Context, addr netip.AddrPort) bool {
	timer := time.NewTimer(r.Interval)
	defer timer.Stop()

	for attempt := 1; attempt <= r.Attempts; attempt++ {
		err := opened(ctx, addr, r.DialTimeout)
		if err == nil {
			slog.DebugContext(ctx, "embedded service is accepting connections", "addr", addr.String(), "attempt", attempt)
			return true
		}
		if attempt == r.Attempts {
			break
		}
		timer.Reset(r.Interval)
		select {
		case <-ctx.Done():
			slog.WarnContext(ctx, "readiness polling canceled", "addr", addr.String(), "attempt", attempt, "error", ctx.Err())
			return false
		case <-timer.C:
		}
	}
	slog.ErrorContext(ctx, "embedded service did not become reachable", "addr", addr.String(), "attempts", r.Attempts)
	return false
}

func opened(ctx context.Context, addr netip.AddrPort, timeout time.Duration) error {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return errNotListening
	}
	return conn.Close()
}
