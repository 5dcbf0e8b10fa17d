package codec

import (
	"math"
	"strconv"
	"strings"

	"github.com/koustreak/dbstream/internal/database"
	"github.com/tinylib/msgp/msgp"
)

// TypedName is the name of the typed binary encoding.
const TypedName = "binary"

// Map keys of the typed encoding.
const (
	KeyColumns      = "columns"
	KeyAffectedRows = "affected_rows"
)

// Typed encodes units as self-describing MessagePack maps:
//
//	header  {"columns": ["id", "name"]}
//	row     {"id": 1, "name": "test"}
//	meta    {"affected_rows": "2"}
//
// Row values are coerced per field with Coerce. NULL is nil. Invalid UTF-8
// in strings and column names is replaced with U+FFFD. Duplicate
// column names are written as repeated keys in column order.
type Typed struct{}

func (Typed) Name() string { return TypedName }

func (Typed) AppendHeader(dst []byte, cols []string) []byte {
	dst = msgp.AppendMapHeader(dst, 1)
	dst = msgp.AppendString(dst, KeyColumns)
	dst = msgp.AppendArrayHeader(dst, uint32(len(cols)))
	for _, c := range cols {
		dst = msgp.AppendString(dst, strings.ToValidUTF8(c, string(replacement)))
	}
	return dst
}

func (Typed) AppendRow(dst []byte, cols []string, b *database.Batch, row int) []byte {
	dst = msgp.AppendMapHeader(dst, uint32(len(cols)))
	for col, name := range cols {
		dst = msgp.AppendString(dst, strings.ToValidUTF8(name, string(replacement)))
		v, ok := b.At(col, row)
		if !ok {
			dst = msgp.AppendNil(dst)
			continue
		}
		dst = appendCoerced(dst, v)
	}
	return dst
}

// AppendMeta writes the count as text so that "unknown" and numbers share one type.
func (Typed) AppendMeta(dst []byte, affected string) []byte {
	dst = msgp.AppendMapHeader(dst, 1)
	dst = msgp.AppendString(dst, KeyAffectedRows)
	return msgp.AppendString(dst, affected)
}

func appendCoerced(dst, text []byte) []byte {
	switch v := Coerce(text).(type) {
	case int64:
		return msgp.AppendInt64(dst, v)
	case float64:
		return msgp.AppendFloat64(dst, v)
	default:
		// msgpack str must be UTF-8; truncation can split a rune.
		return msgp.AppendStringFromBytes(dst, validUTF8(text))
	}
}

// Coerce returns the typed value for one text field: int64 when the text
// parses as a finite whole number within int64 range, float64 when it parses
// otherwise, and the original text as a string when it does not parse.
// Leading zeros are not preserved ("02139" becomes 2139).
func Coerce(text []byte) any {
	s := string(text)
	if isHexLiteral(s) {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if !isRangeErr(err) {
			return s
		}
		// ±Inf from overflow: still numeric.
		return f
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return f
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

// isHexLiteral rejects the hexadecimal float syntax ParseFloat accepts;
// only decimal text is numeric.
func isHexLiteral(s string) bool {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}
