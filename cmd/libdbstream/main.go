// Command libdbstream builds the C shared library:
//
//	go build -buildmode=c-shared -o libdbstream.so ./cmd/libdbstream
//
// Hosts include include/dbstream.h. Handles are opaque integers; 0 is never
// valid. Buffers passed to callbacks are borrowed for the duration of the
// call only.
package main

/*
#cgo CFLAGS: -I${SRCDIR}/include
#define DBSTREAM_BUILDING
#include "dbstream.h"
*/
import "C"
import (
	"unsafe"

	"github.com/koustreak/dbstream/internal/boundary"
)

//export dbstream_create_connection
func dbstream_create_connection() C.uintptr_t {
	return C.uintptr_t(boundary.Create())
}

//export dbstream_connect
func dbstream_connect(h C.uintptr_t, connStr *C.char) C.int32_t {
	return C.int32_t(boundary.Connect(boundary.Handle(h), unsafe.Pointer(connStr)))
}

//export dbstream_execute
func dbstream_execute(h C.uintptr_t, sql *C.char, cb C.dbstream_callback, user unsafe.Pointer) C.int32_t {
	var fn boundary.UnitFunc
	if cb != nil {
		fn = func(data unsafe.Pointer, n int) {
			C.dbstream_invoke(cb, (*C.uint8_t)(data), C.size_t(n), user)
		}
	}
	return C.int32_t(boundary.Execute(boundary.Handle(h), unsafe.Pointer(sql), boundary.EncodingBinary, fn))
}

//export dbstream_execute_text
func dbstream_execute_text(h C.uintptr_t, sql *C.char, cb C.dbstream_text_callback, user unsafe.Pointer) C.int32_t {
	return C.int32_t(boundary.Execute(boundary.Handle(h), unsafe.Pointer(sql), boundary.EncodingText, textFunc(cb, user)))
}

//export dbstream_free_connection
func dbstream_free_connection(h C.uintptr_t) C.int32_t {
	return C.int32_t(boundary.Free(boundary.Handle(h)))
}

//export dbstream_metrics
func dbstream_metrics(cb C.dbstream_text_callback, user unsafe.Pointer) C.int32_t {
	return C.int32_t(boundary.Metrics(textFunc(cb, user)))
}

func textFunc(cb C.dbstream_text_callback, user unsafe.Pointer) boundary.UnitFunc {
	if cb == nil {
		return nil
	}
	return func(data unsafe.Pointer, _ int) {
		C.dbstream_invoke_text(cb, (*C.char)(data), user)
	}
}

func main() {}
