// Package execshim runs commands through a platform supplied "run this
// string" primitive instead of spawning processes.
//
// The primitive executes a NUL terminated command line synchronously and
// hands back a status code plus an output buffer it allocated. The shim owns
// that buffer only for as long as it takes to copy it: see copyOut.
package execshim

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"unsafe"

	"github.com/CZERTAINLY/Bridge/internal/model"
	"github.com/CZERTAINLY/Bridge/internal/shell"
)

const invalidCommandOutput = "invalid command string\n"

var ErrInvalidCommand = errors.New("command line contains a NUL byte")

// Primitive is the platform contract.
type Primitive interface {
	// Init performs the one-time platform setup.
	Init()
	// Run executes a NUL terminated command line. It returns the status code
	// and an output buffer of length bytes owned by the platform. The buffer
	// may be nil.
	Run(command []byte) (status int32, output unsafe.Pointer, length int)
	// Free releases a buffer returned by Run.
	Free(output unsafe.Pointer)
}

type Shim struct {
	p    Primitive
	once sync.Once
}

func New(p Primitive) *Shim {
	return &Shim{p: p}
}

// Init runs the platform setup exactly once, however many times it is called.
func (s *Shim) Init() {
	s.once.Do(s.p.Init)
}

// Exec runs req.Argv in req.Dir. req.Env is accepted but not forwarded to
// the primitive. The call cannot be cancelled: ctx is used for logging only
// and a hung primitive hangs the caller.
func (s *Shim) Exec(ctx context.Context, req model.ExecRequest) model.ExecResult {
	line, err := cString(shell.CommandLine(req.Argv, req.Dir))
	if err != nil {
		slog.WarnContext(ctx, "refusing to run command", "error", err)
		return model.ExecResult{ExitCode: -1, Output: []byte(invalidCommandOutput)}
	}
	if len(req.Env) > 0 {
		slog.DebugContext(ctx, "environment is not forwarded to the platform primitive", "vars", len(req.Env))
	}

	status, ptr, n := s.p.Run(line)
	return model.ExecResult{
		ExitCode: int(status),
		Output:   copyOut(s.p, ptr, n),
	}
}

// cString converts s to the primitive's NUL terminated representation.
func cString(s string) ([]byte, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, ErrInvalidCommand
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b, nil
}

// copyOut copies n bytes at ptr into Go memory and frees ptr. This is the
// only place that reads platform memory. A nil ptr or n <= 0 yields an empty
// slice and nothing is freed.
func copyOut(p Primitive, ptr unsafe.Pointer, n int) []byte {
	if ptr == nil || n <= 0 {
		return []byte{}
	}
	out := bytes.Clone(unsafe.Slice((*byte)(ptr), n))
	p.Free(ptr)
	return out
}
