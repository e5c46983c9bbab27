package main

import (
	"context"

	"github.com/CZERTAINLY/Bridge/internal/bridge"
)

// startServer writes the bound port to outPort, when not nil, and returns
// the start status.
func startServer(ctx context.Context, b *bridge.Bridge, outPort *uint16) int32 {
	return b.Start(ctx, func(port uint16) {
		if outPort != nil {
			*outPort = port
		}
	})
}

// startServerPort folds port and status into one value for JNI callers.
func startServerPort(ctx context.Context, b *bridge.Bridge) int32 {
	var port uint16
	status := startServer(ctx, b, &port)
	return bridge.PortOrStatus(port, status)
}

func main() {}
