// Package stream defines the ordered unit protocol between the executor and
// its consumer.
//
// One execute produces either
//
//	Header, Row, Row, ...      (statement returned a result set)
//
// or
//
//	Meta                       (statement affected rows)
//
// Units are delivered synchronously, in order, with Seq counting up from 0.
// A unit's Data is only valid for the duration of the Consume call.
package stream

import "fmt"

// Kind tells what a unit carries.
type Kind int

const (
	KindHeader Kind = iota
	KindRow
	KindMeta
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindRow:
		return "row"
	case KindMeta:
		return "meta"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Unit is one encoded record.
type Unit struct {
	Kind Kind
	Seq  uint64
	Data []byte
}

// Consumer receives units. It may transform or discard them but must not
// retain Data after returning.
type Consumer interface {
	Consume(u Unit)
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(u Unit)

func (f ConsumerFunc) Consume(u Unit) { f(u) }

// Discard drops every unit.
var Discard Consumer = ConsumerFunc(func(Unit) {})

type state int

const (
	stateStart state = iota
	stateRows
	stateDone
)

// Emitter forwards units to a Consumer and enforces the protocol. Any
// out-of-order emit is a programming error and panics.
type Emitter struct {
	c     Consumer
	state state
	seq   uint64
	rows  uint64
}

// NewEmitter wraps c.
func NewEmitter(c Consumer) *Emitter {
	return &Emitter{c: c}
}

// Header emits the column header. It must be the first unit.
func (e *Emitter) Header(data []byte) {
	if e.state != stateStart {
		panic("stream: header after first unit")
	}
	e.state = stateRows
	e.emit(KindHeader, data)
}

// Row emits one row. A header must have been emitted.
func (e *Emitter) Row(data []byte) {
	if e.state != stateRows {
		panic("stream: row without header")
	}
	e.rows++
	e.emit(KindRow, data)
}

// Meta emits the affected-row metadata. It must be the only unit.
func (e *Emitter) Meta(data []byte) {
	if e.state != stateStart {
		panic("stream: metadata after first unit")
	}
	e.state = stateDone
	e.emit(KindMeta, data)
}

// Units returns how many units were emitted.
func (e *Emitter) Units() uint64 { return e.seq }

// Rows returns how many row units were emitted.
func (e *Emitter) Rows() uint64 { return e.rows }

func (e *Emitter) emit(k Kind, data []byte) {
	u := Unit{Kind: k, Seq: e.seq, Data: data}
	e.seq++
	e.c.Consume(u)
}

// Collector keeps a copy of every unit it receives.
type Collector struct {
	Units []Unit
}

// Consume copies u.
func (c *Collector) Consume(u Unit) {
	u.Data = append([]byte(nil), u.Data...)
	c.Units = append(c.Units, u)
}

// Data returns the payloads in order.
func (c *Collector) Data() [][]byte {
	out := make([][]byte, len(c.Units))
	for i, u := range c.Units {
		out[i] = u.Data
	}
	return out
}

// Strings returns the payloads in order as strings.
func (c *Collector) Strings() []string {
	out := make([]string, len(c.Units))
	for i, u := range c.Units {
		out[i] = string(u.Data)
	}
	return out
}
