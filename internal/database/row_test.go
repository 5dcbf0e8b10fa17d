package database

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppendText(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "bytes", in: []byte("raw"), want: "raw"},
		{name: "string", in: "text", want: "text"},
		{name: "int64", in: int64(-42), want: "-42"},
		{name: "int32", in: int32(7), want: "7"},
		{name: "uint64", in: uint64(math.MaxUint64), want: "18446744073709551615"},
		{name: "float64", in: 1.5, want: "1.5"},
		{name: "float64 whole", in: 3.0, want: "3"},
		{name: "float32", in: float32(0.25), want: "0.25"},
		{name: "infinity", in: math.Inf(1), want: "Infinity"},
		{name: "nan", in: math.NaN(), want: "NaN"},
		{name: "bool true", in: true, want: "1"},
		{name: "bool false", in: false, want: "0"},
		{name: "time", in: ts, want: "2024-03-01T12:30:00Z"},
		{name: "other", in: struct{ A int }{A: 1}, want: "{1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(AppendText(nil, tt.in)))
		})
	}
}

func TestRowScanner(t *testing.T) {
	s := NewRowScanner(3)
	targets := s.Targets()
	assert.Len(t, targets, 3)

	*(targets[0].(*any)) = int64(1)
	*(targets[1].(*any)) = nil
	*(targets[2].(*any)) = []byte("x")

	fields := s.Fields()
	assert.Equal(t, "1", string(fields[0]))
	assert.Nil(t, fields[1])
	assert.Equal(t, "x", string(fields[2]))

	*(targets[1].(*any)) = "back"
	fields = s.Fields()
	assert.Equal(t, "back", string(fields[1]))
}
