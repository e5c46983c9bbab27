package main

import (
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CZERTAINLY/Bridge/internal/bootstrap"
	"github.com/CZERTAINLY/Bridge/internal/bridge"
	"github.com/CZERTAINLY/Bridge/internal/model"
)

func newBridge(t *testing.T, opts ...bootstrap.Option) *bridge.Bridge {
	t.Helper()
	opts = append(opts, bootstrap.WithScheduler(bootstrap.NewScheduler()))
	b, err := bridge.New(model.DefaultConfig(), opts...)
	require.NoError(t, err)
	return b
}

var exhausted = bootstrap.WithListen(func(string, string) (net.Listener, error) {
	return nil, errors.New("exhausted")
})

func TestStartServer(t *testing.T) {
	t.Parallel()
	b := newBridge(t)

	var port uint16
	require.EqualValues(t, 0, startServer(t.Context(), b, &port))
	require.NotZero(t, port)

	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(int(port))), time.Second)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// a NULL out pointer is not written
	require.EqualValues(t, 0, startServer(t.Context(), b, nil))
	b.Stop()
}

func TestStartServerBindFailed(t *testing.T) {
	t.Parallel()
	b := newBridge(t, exhausted)

	port := uint16(7)
	require.EqualValues(t, -1, startServer(t.Context(), b, &port))
	require.EqualValues(t, 7, port, "port must stay untouched")
}

func TestStartServerPort(t *testing.T) {
	t.Parallel()

	got := startServerPort(t.Context(), newBridge(t))
	require.Positive(t, got)
	require.LessOrEqual(t, got, int32(65535))

	require.EqualValues(t, -1, startServerPort(t.Context(), newBridge(t, exhausted)))
}
