// Package appserver is the network service embedded in the host app. It runs
// on a loopback port and reaches the operating system only through the
// executor it is built with.
package appserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/CZERTAINLY/Bridge/internal/exechook"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	maxRequestBody    = 1 << 20
)

type Server struct {
	exec    exechook.Executor
	workdir string
	health  *health.Server
	grpc    *grpc.Server
	router  *mux.Router
}

// New returns a Server running every command through exec. Requests without
// a working directory run in the directory the process was started in.
func New(exec exechook.Executor) *Server {
	workdir, err := os.Getwd()
	if err != nil {
		workdir = os.TempDir()
	}
	s := &Server{
		exec:    exec,
		workdir: workdir,
		health:  health.NewServer(),
		grpc:    grpc.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	s.router = s.routes()
	return s
}

// Handler serves HTTP/1.1 and cleartext HTTP/2 on one port. gRPC requests
// go to the gRPC server, everything else to the router.
func (s *Server) Handler() http.Handler {
	dispatch := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ProtoMajor == 2 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc") {
			s.grpc.ServeHTTP(w, r)
			return
		}
		s.router.ServeHTTP(w, r)
	})
	return h2c.NewHandler(dispatch, &http2.Server{})
}

// Serve listens on addr and blocks until ctx ends or serving fails. It
// returns nil after a graceful shutdown.
func (s *Server) Serve(ctx context.Context, addr netip.AddrPort) error {
	ln, err := net.Listen("tcp", addr.String())
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener. ln is closed on return.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	s.health.Resume()
	slog.InfoContext(ctx, "embedded service listening", "addr", ln.Addr().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		s.health.Shutdown()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
