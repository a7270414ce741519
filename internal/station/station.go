// Package station implements reservation stations and load/store buffers:
// the renaming slots that buffer an in-flight operation and its operands
// until both are known.
package station

import (
	"github.com/maemo32/tomasim/internal/isa"
	"github.com/maemo32/tomasim/internal/tagid"
)

// State is where a slot sits in the free -> issued -> executing -> finished
// -> (written back, then free again) lifecycle of spec.md §3.
type State uint8

const (
	Free State = iota
	Issued
	Executing
	Finished
)

// Operand holds either a known value or a pending producer tag. Exactly one
// of the two is "live" at a time: Tag.Valid() true means the value is
// meaningless until the tag clears.
type Operand struct {
	Value int64
	Tag   tagid.Tag
}

// Ready reports whether the operand's value is usable now.
func (o Operand) Ready() bool { return !o.Tag.Valid() }

// Resolve replaces the operand with a known value, clearing any pending tag.
func (o *Operand) Resolve(v int64) {
	o.Value = v
	o.Tag = tagid.None
}

// WakeIfMatches resolves the operand if it is waiting on producer,
// reporting whether it woke.
func (o *Operand) WakeIfMatches(producer tagid.Tag, value int64) bool {
	if o.Tag.Valid() && o.Tag == producer {
		o.Resolve(value)
		return true
	}
	return false
}

// Station is one reservation-station slot serving integer-ALU, FP-add, or
// FP-mul category operations — the three categories share an identical
// shape per spec.md §3.
type Station struct {
	ID        tagid.Tag
	State     State
	Op        isa.Op
	Vj, Vk    Operand
	A         int64 // immediate, or branch target
	Dest      int   // destination register index; meaningless unless HasDest
	DestFP    bool
	HasDest   bool // false for branches, which write no register
	Remaining int
	Inst      *isa.Instruction
}

// Busy reports whether the slot holds an in-flight operation.
func (s *Station) Busy() bool { return s.State != Free }

// Ready reports whether both operands are resolved (start-of-execution may
// still be refused this cycle by the structural-hazard check).
func (s *Station) Ready() bool { return s.Vj.Ready() && s.Vk.Ready() }

// Reset clears the slot back to Free, keeping its stable identifier.
func (s *Station) Reset() { *s = Station{ID: s.ID} }

// LoadBuffer is one load-buffer slot: a memory read awaiting its effective
// address, then its cache latency. Base holds the base register's
// value-or-tag; the effective address is Base.Value+Offset once ready.
type LoadBuffer struct {
	ID        tagid.Tag
	State     State
	Op        isa.Op
	Base      Operand
	Offset    int64
	Dest      int
	DestFP    bool
	Remaining int
	Order     int // monotonic issue sequence number, for store disambiguation
	Inst      *isa.Instruction
}

func (l *LoadBuffer) Busy() bool { return l.State != Free }

// AddressReady reports whether the base register operand has resolved.
func (l *LoadBuffer) AddressReady() bool { return l.Base.Ready() }

// Address returns the effective address; only meaningful once AddressReady.
func (l *LoadBuffer) Address() int64 { return l.Base.Value + l.Offset }

func (l *LoadBuffer) Reset() { *l = LoadBuffer{ID: l.ID} }

// StoreBuffer is one store-buffer slot: a memory write awaiting its
// effective address and its value, either of which may still be pending on
// a producer.
type StoreBuffer struct {
	ID        tagid.Tag
	State     State
	Op        isa.Op
	Base      Operand
	Offset    int64
	Value     Operand
	Remaining int
	Order     int // monotonic issue sequence number, for store disambiguation
	Inst      *isa.Instruction
}

func (s *StoreBuffer) Busy() bool { return s.State != Free }

// AddressReady reports whether the effective address has been computed.
func (s *StoreBuffer) AddressReady() bool { return s.Base.Ready() }

// Address returns the effective address; only meaningful once AddressReady.
func (s *StoreBuffer) Address() int64 { return s.Base.Value + s.Offset }

// Ready reports whether both the address and the value to store are known.
func (s *StoreBuffer) Ready() bool { return s.AddressReady() && s.Value.Ready() }

func (s *StoreBuffer) Reset() { *s = StoreBuffer{ID: s.ID} }
