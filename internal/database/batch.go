package database

import "fmt"

// Batch is a column-major buffer of text values for up to Cap() rows.
//
// Each field is capped at the batch's field size; longer values are
// truncated and counted. The backing slices are reused across Reset calls,
// so at most one batch worth of data is resident per execute regardless of
// the size of the result set.
type Batch struct {
	cols      int
	capRows   int
	fieldCap  int
	rows      int
	values    [][]byte // values[col*capRows+row]
	nulls     []bool
	truncated int
}

// NewBatch allocates a batch for cols columns, rows rows and fields of at
// most fieldCap bytes.
func NewBatch(cols, rows, fieldCap int) *Batch {
	if cols < 0 || rows <= 0 || fieldCap <= 0 {
		panic(fmt.Sprintf("database: invalid batch shape cols=%d rows=%d field=%d", cols, rows, fieldCap))
	}
	return &Batch{
		cols:     cols,
		capRows:  rows,
		fieldCap: fieldCap,
		values:   make([][]byte, cols*rows),
		nulls:    make([]bool, cols*rows),
	}
}

// NumCols returns the number of columns.
func (b *Batch) NumCols() int { return b.cols }

// Len returns the number of rows currently held.
func (b *Batch) Len() int { return b.rows }

// Cap returns the maximum number of rows.
func (b *Batch) Cap() int { return b.capRows }

// Full reports whether no more rows fit.
func (b *Batch) Full() bool { return b.rows == b.capRows }

// FieldCap returns the per-field byte cap.
func (b *Batch) FieldCap() int { return b.fieldCap }

// Truncated returns how many fields were cut to FieldCap since the last Reset.
func (b *Batch) Truncated() int { return b.truncated }

// Reset empties the batch, keeping its buffers.
func (b *Batch) Reset() {
	b.rows = 0
	b.truncated = 0
}

// AppendRow copies one row into the batch. A nil field is SQL NULL; a
// non-nil empty field is the empty string. fields is not retained.
//
// Appending to a full batch or with the wrong number of fields is a bug in
// the calling backend and panics.
func (b *Batch) AppendRow(fields [][]byte) {
	if b.rows == b.capRows {
		panic(fmt.Sprintf("database: append to full batch (cap %d)", b.capRows))
	}
	if len(fields) != b.cols {
		panic(fmt.Sprintf("database: row has %d fields, batch has %d columns", len(fields), b.cols))
	}

	for col, f := range fields {
		idx := col*b.capRows + b.rows
		if f == nil {
			b.nulls[idx] = true
			b.values[idx] = b.values[idx][:0]
			continue
		}
		if len(f) > b.fieldCap {
			f = f[:b.fieldCap]
			b.truncated++
		}
		b.nulls[idx] = false
		b.values[idx] = append(b.values[idx][:0], f...)
	}
	b.rows++
}

// At returns the text of the field at (col, row). ok is false for SQL NULL.
// The returned slice is only valid until the next Reset.
func (b *Batch) At(col, row int) (val []byte, ok bool) {
	if col < 0 || col >= b.cols || row < 0 || row >= b.rows {
		panic(fmt.Sprintf("database: batch index (%d,%d) out of range (%d,%d)", col, row, b.cols, b.rows))
	}
	idx := col*b.capRows + row
	if b.nulls[idx] {
		return nil, false
	}
	return b.values[idx], true
}
