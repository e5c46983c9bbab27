// Command bridge is built with -buildmode=c-archive or c-shared and linked
// into a mobile host app. It exports bridge_start_server and
// bridge_stop_server.
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"context"
	"unsafe"

	"github.com/CZERTAINLY/Bridge/internal/bridge"
)

// bridge_start_server launches the embedded service on a loopback port and
// blocks until it accepts connections. The port is written to outPort, when
// not NULL, as soon as it is bound. Returns 0 on success, -1 when no port
// could be bound and -2 when the service did not become reachable.
//
//export bridge_start_server
func bridge_start_server(outPort *C.uint16_t) C.int {
	status := startServer(context.Background(), bridge.Default(), (*uint16)(unsafe.Pointer(outPort)))
	return C.int(status)
}

// bridge_stop_server does nothing.
//
//export bridge_stop_server
func bridge_stop_server() {
	bridge.Default().Stop()
}
