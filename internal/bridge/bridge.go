// Package bridge assembles the embedded service, the execution hook registry
// and the platform shim behind the two foreign entry points.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/CZERTAINLY/Bridge/internal/appserver"
	"github.com/CZERTAINLY/Bridge/internal/bootstrap"
	"github.com/CZERTAINLY/Bridge/internal/exechook"
	"github.com/CZERTAINLY/Bridge/internal/execshim"
	"github.com/CZERTAINLY/Bridge/internal/log"
	"github.com/CZERTAINLY/Bridge/internal/model"
)

// ConfigEnv names the variable holding an optional config file path.
const ConfigEnv = "BRIDGE_CONFIG"

type Bridge struct {
	boot *bootstrap.Bootstrap
}

// New wires the embedded service to a fresh registry. On platforms with a
// run primitive the shim is installed as the override. opts are applied last
// and must not replace the registry. cfg is validated first.
func New(cfg model.Config, opts ...bootstrap.Option) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	reg := exechook.NewRegistry(nil)
	all := append(bootstrap.FromConfig(cfg), bootstrap.WithRegistry(reg))
	if p, ok := execshim.Platform(); ok {
		all = append(all, bootstrap.WithOverride(execshim.New(p)))
	}
	all = append(all, opts...)
	return &Bridge{
		boot: bootstrap.New(appserver.New(reg), all...),
	}, nil
}

// Start launches the service and returns the foreign status code: 0, or a
// negative value on failure. bound receives the port once it is known.
func (b *Bridge) Start(ctx context.Context, bound func(port uint16)) int32 {
	outcome := b.boot.Start(ctx, bound)
	if outcome.Status != bootstrap.Success {
		slog.ErrorContext(ctx, "bridge start failed", "status", outcome.Status.String(), "port", outcome.Port)
	} else {
		slog.InfoContext(ctx, "bridge started", "port", outcome.Port)
	}
	return outcome.Status.Code()
}

// Stop is a no-op. The service lives until the host process exits.
func (b *Bridge) Stop() {
	b.boot.Stop()
}

// PortOrStatus folds a start result into one integer: the port on success,
// the negative status otherwise.
func PortOrStatus(port uint16, status int32) int32 {
	if status != 0 {
		return status
	}
	return int32(port)
}

var defaultBridge = sync.OnceValue(func() *Bridge {
	cfg, err := ConfigFromEnv()
	if err != nil {
		cfg = model.DefaultConfig()
	}
	slog.SetDefault(log.New(cfg.Log))
	if err != nil {
		slog.Error("ignoring bridge configuration, using defaults", "error", err)
	}
	b, err := New(cfg)
	if err != nil {
		slog.Error("ignoring bridge configuration, using defaults", "error", err)
		// defaults always validate
		b, _ = New(model.DefaultConfig())
	}
	return b
})

// Default is the process wide bridge used by the foreign entry points. It is
// configured from ConfigEnv on first use.
func Default() *Bridge {
	return defaultBridge()
}

// ConfigFromEnv loads the file named by ConfigEnv, or returns the defaults
// when the variable is unset.
func ConfigFromEnv() (model.Config, error) {
	path := os.Getenv(ConfigEnv)
	if path == "" {
		return model.DefaultConfig(), nil
	}
	return LoadFile(path)
}

func LoadFile(path string) (model.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Config{}, fmt.Errorf("opening config: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	cfg, err := model.LoadConfig(f)
	if err != nil {
		return model.Config{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return cfg, nil
}
