package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_AppendAndAt(t *testing.T) {
	b := NewBatch(2, 3, 16)
	assert.Equal(t, 2, b.NumCols())
	assert.Equal(t, 3, b.Cap())
	assert.Equal(t, 0, b.Len())

	b.AppendRow([][]byte{[]byte("1"), []byte("alice")})
	b.AppendRow([][]byte{[]byte("2"), nil})
	b.AppendRow([][]byte{[]byte("3"), {}})

	require.True(t, b.Full())

	v, ok := b.At(1, 0)
	assert.True(t, ok)
	assert.Equal(t, "alice", string(v))

	_, ok = b.At(1, 1)
	assert.False(t, ok, "nil field is NULL")

	v, ok = b.At(1, 2)
	assert.True(t, ok, "empty field is not NULL")
	assert.Empty(t, v)
}

func TestBatch_CopiesInput(t *testing.T) {
	b := NewBatch(1, 1, 16)
	src := []byte("abc")
	b.AppendRow([][]byte{src})
	src[0] = 'z'

	v, _ := b.At(0, 0)
	assert.Equal(t, "abc", string(v))
}

func TestBatch_Truncates(t *testing.T) {
	b := NewBatch(2, 1, 4)
	b.AppendRow([][]byte{[]byte("abcdefgh"), []byte("abcd")})

	v, _ := b.At(0, 0)
	assert.Equal(t, "abcd", string(v))
	v, _ = b.At(1, 0)
	assert.Equal(t, "abcd", string(v))
	assert.Equal(t, 1, b.Truncated())
}

func TestBatch_ResetReuses(t *testing.T) {
	b := NewBatch(1, 2, 8)
	b.AppendRow([][]byte{[]byte("long-one")})
	b.AppendRow([][]byte{nil})
	b.Reset()

	assert.Equal(t, 0, b.Len())
	assert.False(t, b.Full())

	b.AppendRow([][]byte{[]byte("x")})
	b.AppendRow([][]byte{[]byte("y")})
	v, ok := b.At(0, 1)
	assert.True(t, ok, "NULL flag is cleared on reuse")
	assert.Equal(t, "y", string(v))
}

func TestBatch_Overflow(t *testing.T) {
	b := NewBatch(1, 1, 8)
	b.AppendRow([][]byte{[]byte("a")})
	assert.Panics(t, func() { b.AppendRow([][]byte{[]byte("b")}) })
}

func TestBatch_WrongWidth(t *testing.T) {
	b := NewBatch(2, 1, 8)
	assert.Panics(t, func() { b.AppendRow([][]byte{[]byte("a")}) })
}

func TestBatch_OutOfRange(t *testing.T) {
	b := NewBatch(1, 2, 8)
	b.AppendRow([][]byte{[]byte("a")})
	assert.Panics(t, func() { b.At(0, 1) })
	assert.Panics(t, func() { b.At(1, 0) })
}

func TestNewBatch_InvalidShape(t *testing.T) {
	assert.Panics(t, func() { NewBatch(1, 0, 8) })
	assert.Panics(t, func() { NewBatch(1, 1, 0) })
}

func TestTrimPrefix(t *testing.T) {
	rest, ok := TrimPrefix("MySQL://u:p@tcp(h)/db", "mysql://")
	assert.True(t, ok)
	assert.Equal(t, "u:p@tcp(h)/db", rest)

	_, ok = TrimPrefix("my", "mysql://")
	assert.False(t, ok)

	rest, ok = TrimPrefix("postgresql://h", "postgres://", "postgresql://")
	assert.True(t, ok)
	assert.Equal(t, "h", rest)
}
