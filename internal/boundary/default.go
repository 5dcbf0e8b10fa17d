package boundary

import "unsafe"

// std is the process-wide runtime behind the exported C functions.
var std = NewRuntime()

// Create allocates a handle on the process-wide runtime.
func Create() Handle { return std.Create() }

// Connect connects h on the process-wide runtime.
func Connect(h Handle, connStr unsafe.Pointer) Status { return std.Connect(h, connStr) }

// Execute runs sql on h on the process-wide runtime.
func Execute(h Handle, sql unsafe.Pointer, enc Encoding, fn UnitFunc) Status {
	return std.Execute(h, sql, enc, fn)
}

// Free releases h on the process-wide runtime.
func Free(h Handle) Status { return std.Free(h) }

// Metrics exposes the process-wide runtime's counters.
func Metrics(fn UnitFunc) Status { return std.Metrics(fn) }
