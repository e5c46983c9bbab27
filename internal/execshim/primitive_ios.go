//go:build ios && cgo

package execshim

/*
#include <stddef.h>
#include <stdlib.h>

// Provided by the host application and resolved when it links the archive.
extern void bridge_ios_system_init(void);
extern int bridge_ios_system_run(const char *cmd, char **output, size_t *output_len);
*/
import "C"

import (
	"unsafe"
)

type systemPrimitive struct{}

func (systemPrimitive) Init() {
	C.bridge_ios_system_init()
}

func (systemPrimitive) Run(command []byte) (int32, unsafe.Pointer, int) {
	var out *C.char
	var n C.size_t
	// command is NUL terminated and not retained by the callee
	status := C.bridge_ios_system_run((*C.char)(unsafe.Pointer(&command[0])), &out, &n)
	return int32(status), unsafe.Pointer(out), int(n)
}

func (systemPrimitive) Free(output unsafe.Pointer) {
	C.free(output)
}

// Platform returns the primitive of the current platform. iOS forbids
// spawning processes, so commands go through the host's system bridge.
func Platform() (Primitive, bool) {
	return systemPrimitive{}, true
}
