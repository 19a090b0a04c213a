//go:build linux

// Command libmeasurements builds libmeasurements.so, a c-shared library
// that External-mode test programs link against to signal the driver once
// per process: the program is about to begin the code path under
// measurement, and the point at which it ends.
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/PLEnergyDev/green-languages/pkg/signal/measurements"
)

//export start_measurement
func start_measurement() C.int32_t {
	return C.int32_t(measurements.StartMeasurement())
}

//export end_measurement
func end_measurement() {
	measurements.EndMeasurement()
}

//export Java_Measurements_startMeasurement
func Java_Measurements_startMeasurement(env unsafe.Pointer, class unsafe.Pointer) C.int32_t {
	return C.int32_t(measurements.StartMeasurement())
}

//export Java_Measurements_endMeasurement
func Java_Measurements_endMeasurement(env unsafe.Pointer, class unsafe.Pointer) {
	measurements.EndMeasurement()
}

func main() {}
