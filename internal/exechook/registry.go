package exechook

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/CZERTAINLY/Bridge/internal/model"
)

var (
	ErrAlreadyInstalled = errors.New("execution hook already installed")
	ErrNilExecutor      = errors.New("nil executor")
)

// Executor runs one command and reports its exit code and raw output.
// Command failures are never errors: they are encoded in the result.
type Executor interface {
	Exec(ctx context.Context, req model.ExecRequest) model.ExecResult
}

type ExecutorFunc func(ctx context.Context, req model.ExecRequest) model.ExecResult

func (f ExecutorFunc) Exec(ctx context.Context, req model.ExecRequest) model.ExecResult {
	return f(ctx, req)
}

type slot struct {
	e Executor
}

// Registry is a write-once slot for the execution hook. It is itself an
// Executor and is handed to the embedded service as its only way to run
// commands: the installed hook when there is one, the fallback otherwise.
//
// Install must happen before the service starts issuing commands.
type Registry struct {
	hook     atomic.Pointer[slot]
	fallback Executor
}

func NewRegistry(fallback Executor) *Registry {
	if fallback == nil {
		fallback = Spawn{}
	}
	return &Registry{fallback: fallback}
}

// Install sets the hook. Only the first call wins; later calls return
// ErrAlreadyInstalled and leave the installed hook untouched.
func (r *Registry) Install(e Executor) error {
	if e == nil {
		return ErrNilExecutor
	}
	if !r.hook.CompareAndSwap(nil, &slot{e: e}) {
		return ErrAlreadyInstalled
	}
	return nil
}

func (r *Registry) Installed() bool {
	return r.hook.Load() != nil
}

func (r *Registry) Exec(ctx context.Context, req model.ExecRequest) model.ExecResult {
	if s := r.hook.Load(); s != nil {
		return s.e.Exec(ctx, req)
	}
	return r.fallback.Exec(ctx, req)
}
