//go:build android

package main

/*
#include <jni.h>
*/
import "C"

import (
	"context"

	"github.com/CZERTAINLY/Bridge/internal/bridge"
)

//export Java_com_czertainly_bridge_NativeBridge_nativeStartServerPort
func Java_com_czertainly_bridge_NativeBridge_nativeStartServerPort(env *C.JNIEnv, clazz C.jclass) C.jint {
	return C.jint(startServerPort(context.Background(), bridge.Default()))
}

//export Java_com_czertainly_bridge_NativeBridge_nativeStopServer
func Java_com_czertainly_bridge_NativeBridge_nativeStopServer(env *C.JNIEnv, clazz C.jclass) {
	bridge.Default().Stop()
}
