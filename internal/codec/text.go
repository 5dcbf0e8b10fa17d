package codec

import (
	"bytes"

	"github.com/koustreak/dbstream/internal/database"
)

// TextName is the name of the text encoding.
const TextName = "text"

const (
	Delimiter = ','
	Quote     = '"'

	// MetaPrefix starts the metadata line of a row-affecting statement.
	MetaPrefix = "__META__,affected_rows="
)

// Text encodes units as CSV-like lines without a trailing newline.
//
// The header is the column names joined by commas, unescaped. A row field
// containing a comma or a double quote is wrapped in quotes with embedded
// quotes doubled; everything else, newlines included, passes through.
// Invalid UTF-8 and NUL bytes are replaced with U+FFFD, so every line is a
// valid C string. NULL is the empty field.
type Text struct{}

func (Text) Name() string { return TextName }

func (Text) AppendHeader(dst []byte, cols []string) []byte {
	for i, c := range cols {
		if i > 0 {
			dst = append(dst, Delimiter)
		}
		dst = append(dst, textSafe([]byte(c))...)
	}
	return dst
}

func (Text) AppendRow(dst []byte, cols []string, b *database.Batch, row int) []byte {
	for col := range cols {
		if col > 0 {
			dst = append(dst, Delimiter)
		}
		v, ok := b.At(col, row)
		if !ok {
			continue
		}
		dst = AppendEscaped(dst, v)
	}
	return dst
}

func (Text) AppendMeta(dst []byte, affected string) []byte {
	dst = append(dst, MetaPrefix...)
	return append(dst, affected...)
}

// AppendEscaped appends one escaped field.
func AppendEscaped(dst, field []byte) []byte {
	field = textSafe(field)
	if bytes.IndexByte(field, Delimiter) < 0 && bytes.IndexByte(field, Quote) < 0 {
		return append(dst, field...)
	}

	dst = append(dst, Quote)
	for _, c := range field {
		if c == Quote {
			dst = append(dst, Quote)
		}
		dst = append(dst, c)
	}
	return append(dst, Quote)
}

// EscapeField returns the escaped form of one field.
func EscapeField(field string) string {
	return string(AppendEscaped(nil, []byte(field)))
}

// UnescapeField inverts EscapeField. Fields that are not quoted are
// returned unchanged.
func UnescapeField(field string) string {
	if len(field) < 2 || field[0] != Quote || field[len(field)-1] != Quote {
		return field
	}
	inner := field[1 : len(field)-1]
	out := make([]byte, 0, len(inner))
	for i := 0; i < len(inner); i++ {
		out = append(out, inner[i])
		if inner[i] == Quote && i+1 < len(inner) && inner[i+1] == Quote {
			i++
		}
	}
	return string(out)
}

// textSafe repairs UTF-8 and removes NUL bytes, which would end the line
// early for a C reader.
func textSafe(b []byte) []byte {
	b = validUTF8(b)
	if bytes.IndexByte(b, 0) < 0 {
		return b
	}
	return bytes.ReplaceAll(b, []byte{0}, replacement)
}
