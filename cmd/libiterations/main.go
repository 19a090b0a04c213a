//go:build linux

// Command libiterations builds libiterations.so, a c-shared library that
// Internal-mode test programs link against to cooperate with the driver
// across many measurement windows inside one long-lived process.
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/PLEnergyDev/green-languages/pkg/signal/iterations"
)

//export next_iteration
func next_iteration() C.int32_t {
	return C.int32_t(iterations.NextIteration())
}

//export mark_end
func mark_end() {
	iterations.MarkEnd()
}

// Java_Iterations_nextIteration and Java_Iterations_markEnd give the same
// entry points JNI-compatible symbol names and signatures (leading JNIEnv*,
// jclass, both unused here) so a native method declaration on a Java class
// named Iterations resolves without a separate JNI shim.
//
//export Java_Iterations_nextIteration
func Java_Iterations_nextIteration(env unsafe.Pointer, class unsafe.Pointer) C.int32_t {
	return C.int32_t(iterations.NextIteration())
}

//export Java_Iterations_markEnd
func Java_Iterations_markEnd(env unsafe.Pointer, class unsafe.Pointer) {
	iterations.MarkEnd()
}

func main() {}
