package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"

	"github.com/CZERTAINLY/Bridge/internal/exechook"
	"github.com/CZERTAINLY/Bridge/internal/model"
)

type Status int

const (
	Success Status = iota
	BindFailed
	ReadinessTimeout
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case BindFailed:
		return "bind failed"
	case ReadinessTimeout:
		return "readiness timeout"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// codeUnknown is reported for a status without an assigned code.
const codeUnknown = -3

// Code is the value reported across the foreign boundary. Every failure is
// negative so it can never be mistaken for a port.
func (s Status) Code() int32 {
	switch s {
	case Success:
		return 0
	case BindFailed:
		return -1
	case ReadinessTimeout:
		return -2
	default:
		return codeUnknown
	}
}

// Outcome of Start. Port is zero when Status is BindFailed.
type Outcome struct {
	Port   uint16
	Status Status
}

// Service is the embedded network service. Serve must listen on addr and
// block until ctx ends or it fails.
type Service interface {
	Serve(ctx context.Context, addr netip.AddrPort) error
}

type ServiceFunc func(ctx context.Context, addr netip.AddrPort) error

func (f ServiceFunc) Serve(ctx context.Context, addr netip.AddrPort) error {
	return f(ctx, addr)
}

// Override is an execution hook that needs one-time platform setup before
// it can run commands.
type Override interface {
	exechook.Executor
	Init()
}

type ListenFunc func(network, address string) (net.Listener, error)

// Bootstrap launches one embedded service and waits until it accepts
// connections.
type Bootstrap struct {
	svc       Service
	host      netip.Addr
	hooks     *exechook.Registry
	override  Override
	scheduler *Scheduler
	readiness Readiness
	listen    ListenFunc

	mx   sync.Mutex
	addr netip.AddrPort // valid once the service task was spawned
	task *Task
}

func New(svc Service, opts ...Option) *Bootstrap {
	b := &Bootstrap{
		svc:       svc,
		host:      netip.MustParseAddr(model.DefaultHost),
		scheduler: DefaultScheduler(),
		readiness: Readiness{
			Attempts:    model.DefaultReadinessAttempts,
			Interval:    model.DefaultReadinessInterval,
			DialTimeout: model.DefaultReadinessDialLimit,
		},
		listen: net.Listen,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.hooks == nil {
		b.hooks = exechook.NewRegistry(nil)
	}
	return b
}

// Registry is the execution hook registry this Bootstrap installs into.
func (b *Bootstrap) Registry() *exechook.Registry {
	return b.hooks
}

// Task returns the supervised service task, nil before the first Start.
func (b *Bootstrap) Task() *Task {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.task
}

// Start binds an ephemeral loopback port, installs the override (if any),
// launches the service in the background and blocks until it accepts a
// connection or the readiness attempts run out. The service task keeps
// running whatever the outcome.
//
// bound, when not nil, receives the port as soon as it is known, before the
// service is launched and polled. It is not called when binding fails.
//
// Calling Start again after a launch does not bind or spawn anything: it
// reports the same port and polls readiness again.
func (b *Bootstrap) Start(ctx context.Context, bound func(port uint16)) Outcome {
	b.mx.Lock()
	defer b.mx.Unlock()

	if bound == nil {
		bound = func(uint16) {}
	}

	if b.task != nil {
		bound(b.addr.Port())
		return b.outcome(ctx, b.addr)
	}

	port, err := b.freePort()
	if err != nil {
		slog.ErrorContext(ctx, "cannot bind a loopback port", "host", b.host.String(), "error", err)
		return Outcome{Status: BindFailed}
	}
	addr := netip.AddrPortFrom(b.host, port)
	bound(port)

	if b.override != nil {
		b.override.Init()
		if err := b.hooks.Install(b.override); err != nil {
			slog.WarnContext(ctx, "execution hook not installed", "error", err)
		} else {
			slog.DebugContext(ctx, "execution hook installed")
		}
	}

	slog.InfoContext(ctx, "starting embedded service", "addr", addr.String())
	b.addr = addr
	b.task = b.scheduler.Go(context.WithoutCancel(ctx), "embedded service", func(ctx context.Context) error {
		return b.svc.Serve(ctx, addr)
	})

	return b.outcome(ctx, addr)
}

// Stop does nothing. The service is released by the host process teardown.
func (b *Bootstrap) Stop() {}

func (b *Bootstrap) outcome(ctx context.Context, addr netip.AddrPort) Outcome {
	if !b.readiness.waitReady(ctx, addr) {
		return Outcome{Port: addr.Port(), Status: ReadinessTimeout}
	}
	return Outcome{Port: addr.Port(), Status: Success}
}

// freePort asks the system for a free port on the loopback host. The
// listener is closed right away: the service binds the port itself.
func (b *Bootstrap) freePort() (uint16, error) {
	ln, err := b.listen("tcp", netip.AddrPortFrom(b.host, 0).String())
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = ln.Close()
	}()
	ap, err := netip.ParseAddrPort(ln.Addr().String())
	if err != nil {
		return 0, fmt.Errorf("parsing listener address: %w", err)
	}
	return ap.Port(), nil
}
