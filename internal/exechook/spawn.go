package exechook

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"
	"time"

	"github.com/CZERTAINLY/Bridge/internal/model"
)

const (
	exitCodeNotFound = 127
	exitCodeUnknown  = -1
)

// Spawn runs commands as child processes with os/exec. It is the default
// used when no hook was installed. Stdout and stderr are captured into one
// buffer in the order they were written.
type Spawn struct{}

func (Spawn) Exec(ctx context.Context, req model.ExecRequest) model.ExecResult {
	if len(req.Argv) == 0 {
		return model.ExecResult{
			ExitCode: exitCodeUnknown,
			Output:   []byte(model.ErrEmptyCommand.Error() + "\n"),
		}
	}

	cmd := exec.CommandContext(ctx, req.Argv[0], req.Argv[1:]...)
	cmd.Dir = req.Dir
	cmd.Env = append(cmd.Environ(), environ(req.Env)...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	started := time.Now()
	err := cmd.Run()
	code := exitCode(err)
	if err != nil && code == exitCodeNotFound {
		buf.WriteString(err.Error())
		buf.WriteByte('\n')
	}
	slog.DebugContext(ctx, "command finished",
		"path", req.Argv[0],
		"args", len(req.Argv)-1,
		"exit_code", code,
		"duration", time.Since(started),
	)
	return model.ExecResult{ExitCode: code, Output: buf.Bytes()}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return exitCodeNotFound
	}
	if errors.Is(err, os.ErrNotExist) {
		return exitCodeNotFound
	}
	return exitCodeUnknown
}

// environ renders env as KEY=value pairs sorted by key. Appended after the
// inherited environment, the pairs take precedence.
func environ(env map[string]string) []string {
	ret := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		ret = append(ret, k+"="+env[k])
	}
	return ret
}
