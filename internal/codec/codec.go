// Package codec renders headers, rows and affected-row metadata into unit
// payloads.
//
// Two encodings exist:
//
//   - Text: one CSV-like line per unit
//   - Typed: one MessagePack map per unit, with numeric coercion
package codec

import (
	"bytes"
	"strconv"
	"unicode/utf8"

	"github.com/koustreak/dbstream/internal/database"
	"github.com/koustreak/dbstream/internal/errs"
)

// RowCountUnknown is reported when the backend cannot tell how many rows a
// statement affected.
const RowCountUnknown = "unknown"

// Encoder appends encoded payloads to dst and returns the extended slice.
// Implementations are stateless and safe for concurrent use.
type Encoder interface {
	Name() string
	AppendHeader(dst []byte, cols []string) []byte
	AppendRow(dst []byte, cols []string, b *database.Batch, row int) []byte
	AppendMeta(dst []byte, affected string) []byte
}

// AffectedText formats an affected-row count for a metadata unit.
func AffectedText(n int64, known bool) string {
	if !known {
		return RowCountUnknown
	}
	return strconv.FormatInt(n, 10)
}

// ByName returns the encoder called name ("text" or "binary").
func ByName(name string) (Encoder, error) {
	switch name {
	case TextName:
		return Text{}, nil
	case TypedName:
		return Typed{}, nil
	}
	return nil, errs.New(errs.ErrKindInvalidInput, "unknown encoding "+strconv.Quote(name))
}

var replacement = []byte(string(utf8.RuneError))

// validUTF8 returns b with invalid sequences replaced by U+FFFD.
func validUTF8(b []byte) []byte {
	if utf8.Valid(b) {
		return b
	}
	return bytes.ToValidUTF8(b, replacement)
}
