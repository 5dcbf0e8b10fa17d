package boundary

import "fmt"

// Status is the result code of every boundary call. The numeric values are
// part of the C ABI and must not change.
type Status int32

const (
	StatusSuccess               Status = 0
	StatusConnectionError       Status = 1
	StatusStringConversionError Status = 2
	StatusInvalidHandle         Status = 3
	StatusNullPointer           Status = 4
	StatusExecutionError        Status = 5
	StatusPanic                 Status = 6
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusConnectionError:
		return "connection_error"
	case StatusStringConversionError:
		return "string_conversion_error"
	case StatusInvalidHandle:
		return "invalid_handle"
	case StatusNullPointer:
		return "null_pointer"
	case StatusExecutionError:
		return "execution_error"
	case StatusPanic:
		return "panic"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Handle is the opaque value handed to the host. Zero is never a valid handle.
type Handle uintptr

// Encoding selects the payload format of an execute.
type Encoding int

const (
	// EncodingBinary delivers MessagePack maps as pointer and length.
	EncodingBinary Encoding = iota

	// EncodingText delivers NUL-terminated CSV-like lines.
	EncodingText
)

func (e Encoding) String() string {
	if e == EncodingText {
		return "text"
	}
	return "binary"
}
