package main_test

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var bridgectlPath string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		slog.Warn("integration tests with -short are ignored")
		os.Exit(0)
	}

	goBin, err := exec.LookPath("go")
	if err != nil {
		slog.Error("cannot locate go binary to build bridgectl", "error", err)
		os.Exit(1)
	}
	dir, err := os.MkdirTemp("", "bridgectl")
	if err != nil {
		slog.Error("creating build directory", "error", err)
		os.Exit(1)
	}
	bridgectlPath = filepath.Join(dir, "bridgectl")

	build := exec.Command(goBin, "build", "-o", bridgectlPath, ".")
	build.Stdout = os.Stderr
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		slog.Error("go build ./cmd/bridgectl failed", "error", err)
		_ = os.RemoveAll(dir)
		os.Exit(1)
	}

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// bridgectl prepares a command with BRIDGE_CONFIG cleared.
func bridgectl(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, bridgectlPath, args...)
	cmd.Env = append(os.Environ(), "BRIDGE_CONFIG=")
	cmd.WaitDelay = 5 * time.Second
	return cmd
}

func TestQuote(t *testing.T) {
	t.Parallel()
	out, err := bridgectl(t.Context(), "quote", "--dir", "/a b", "--", "echo", "it's").Output()
	require.NoError(t, err)
	require.Equal(t, `cd '/a b' && echo 'it'\''s'`+"\n", string(out))
}

func TestQuoteNoArgs(t *testing.T) {
	t.Parallel()
	err := bridgectl(t.Context(), "quote").Run()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1, exitErr.ExitCode())
}

func TestConfig(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    string
		then     []string
	}{
		{
			scenario: "defaults",
			then:     []string{"attempts: 300", "host: 127.0.0.1"},
		},
		{
			scenario: "file",
			given:    "readiness:\n  attempts: 7\n",
			then:     []string{"attempts: 7", "host: 127.0.0.1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			args := []string{"config"}
			if tc.given != "" {
				path := filepath.Join(t.TempDir(), "bridge.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tc.given), 0o600))
				args = append(args, "--config", path)
			}
			out, err := bridgectl(t.Context(), args...).Output()
			require.NoError(t, err)
			for _, s := range tc.then {
				require.Contains(t, string(out), s)
			}
		})
	}
}

func TestConfigInvalid(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  host: 0.0.0.0\n"), 0o600))

	var stderr bytes.Buffer
	cmd := bridgectl(t.Context(), "config", "--config", path)
	cmd.Stderr = &stderr
	err := cmd.Run()
	require.Error(t, err)
	require.Contains(t, stderr.String(), "not a loopback address")
}

func TestVersion(t *testing.T) {
	t.Parallel()
	out, err := bridgectl(t.Context(), "version").Output()
	require.NoError(t, err)
	require.Contains(t, string(out), "go:")
}

var listening = regexp.MustCompile(`^listening on 127\.0\.0\.1:(\d+)$`)

func TestServe(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	defer cancel()

	cmd := bridgectl(ctx, "serve")
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())

	line, err := bufio.NewReader(stdout).ReadString('\n')
	require.NoError(t, err)
	m := listening.FindStringSubmatch(line[:len(line)-1])
	require.NotNil(t, m, "unexpected first line %q", line)

	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%s", m[1]), time.Second)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.NoError(t, cmd.Process.Signal(os.Interrupt))
	require.NoError(t, cmd.Wait())
}
