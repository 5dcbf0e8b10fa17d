package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_ResultSet(t *testing.T) {
	c := &Collector{}
	e := NewEmitter(c)

	e.Header([]byte("id,name"))
	e.Row([]byte("1,a"))
	e.Row([]byte("2,b"))

	require.Len(t, c.Units, 3)
	for i, u := range c.Units {
		assert.Equal(t, uint64(i), u.Seq)
	}
	assert.Equal(t, KindHeader, c.Units[0].Kind)
	assert.Equal(t, KindRow, c.Units[2].Kind)
	assert.Equal(t, []string{"id,name", "1,a", "2,b"}, c.Strings())
	assert.Equal(t, uint64(3), e.Units())
	assert.Equal(t, uint64(2), e.Rows())
}

func TestEmitter_Meta(t *testing.T) {
	c := &Collector{}
	e := NewEmitter(c)
	e.Meta([]byte("m"))

	require.Len(t, c.Units, 1)
	assert.Equal(t, KindMeta, c.Units[0].Kind)
	assert.Equal(t, uint64(0), e.Rows())
}

func TestEmitter_Violations(t *testing.T) {
	tests := []struct {
		name string
		run  func(e *Emitter)
	}{
		{name: "row first", run: func(e *Emitter) { e.Row(nil) }},
		{name: "two headers", run: func(e *Emitter) { e.Header(nil); e.Header(nil) }},
		{name: "meta after header", run: func(e *Emitter) { e.Header(nil); e.Meta(nil) }},
		{name: "two metas", run: func(e *Emitter) { e.Meta(nil); e.Meta(nil) }},
		{name: "row after meta", run: func(e *Emitter) { e.Meta(nil); e.Row(nil) }},
		{name: "header after meta", run: func(e *Emitter) { e.Meta(nil); e.Header(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { tt.run(NewEmitter(Discard)) })
		})
	}
}

func TestCollector_CopiesData(t *testing.T) {
	c := &Collector{}
	buf := []byte("abc")
	c.Consume(Unit{Kind: KindRow, Data: buf})
	buf[0] = 'z'
	assert.Equal(t, "abc", string(c.Data()[0]))
}

func TestConsumerFunc(t *testing.T) {
	var got []Kind
	e := NewEmitter(ConsumerFunc(func(u Unit) { got = append(got, u.Kind) }))
	e.Header(nil)
	e.Row(nil)
	assert.Equal(t, []Kind{KindHeader, KindRow}, got)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "header", KindHeader.String())
	assert.Equal(t, "row", KindRow.String())
	assert.Equal(t, "meta", KindMeta.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
