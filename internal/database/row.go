package database

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// RowScanner turns rows of driver-native values into the text fields a
// Batch stores. Scan targets are allocated once per result set and reused
// for every row.
type RowScanner struct {
	dest     []any
	destPtrs []any
	fields   [][]byte
	scratch  [][]byte
}

// NewRowScanner prepares a scanner for n columns.
func NewRowScanner(n int) *RowScanner {
	s := &RowScanner{
		dest:     make([]any, n),
		destPtrs: make([]any, n),
		fields:   make([][]byte, n),
		scratch:  make([][]byte, n),
	}
	for i := range s.dest {
		s.destPtrs[i] = &s.dest[i]
	}
	return s
}

// Targets returns the pointers to pass to a driver's Scan.
func (s *RowScanner) Targets() []any { return s.destPtrs }

// Fields renders the values scanned last into text, with nil for SQL NULL.
// The result is only valid until the next call.
func (s *RowScanner) Fields() [][]byte {
	for i, v := range s.dest {
		if v == nil {
			s.fields[i] = nil
			continue
		}
		s.scratch[i] = AppendText(s.scratch[i][:0], v)
		s.fields[i] = s.scratch[i]
	}
	return s.fields
}

// AppendText appends the textual form of a driver value to dst, matching
// what a database prints for the same value in its text protocol.
func AppendText(dst []byte, v any) []byte {
	switch val := v.(type) {
	case []byte:
		return append(dst, val...)
	case string:
		return append(dst, val...)
	case int64:
		return strconv.AppendInt(dst, val, 10)
	case int32:
		return strconv.AppendInt(dst, int64(val), 10)
	case int:
		return strconv.AppendInt(dst, int64(val), 10)
	case uint64:
		return strconv.AppendUint(dst, val, 10)
	case float64:
		return appendFloat(dst, val, 64)
	case float32:
		return appendFloat(dst, float64(val), 32)
	case bool:
		if val {
			return append(dst, '1')
		}
		return append(dst, '0')
	case time.Time:
		return val.AppendFormat(dst, time.RFC3339Nano)
	default:
		return fmt.Append(dst, val)
	}
}

func appendFloat(dst []byte, f float64, bits int) []byte {
	switch {
	case math.IsInf(f, 1):
		return append(dst, "Infinity"...)
	case math.IsInf(f, -1):
		return append(dst, "-Infinity"...)
	case math.IsNaN(f):
		return append(dst, "NaN"...)
	}
	return strconv.AppendFloat(dst, f, 'g', -1, bits)
}
