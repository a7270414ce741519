// Package regfile implements the architectural register files (32 integer,
// 32 FP, 64-bit signed) and the register status table that records which
// station/buffer owns each register's next write.
package regfile

import "github.com/maemo32/tomasim/internal/tagid"

const NumRegisters = 32

// File is a 32-entry array of 64-bit signed registers. Integer index 0,
// when used as a File for the integer file, is pinned to zero by the
// caller (Bank below enforces this); FP files have no such pin.
type File [NumRegisters]int64

// Bank holds both the integer and FP register files, enforcing the
// integer-register-0-is-always-zero rule of spec.md §3.
type Bank struct {
	Int File
	FP  File
}

// ReadInt returns the integer register value; register 0 always reads 0.
func (b *Bank) ReadInt(idx int) int64 {
	if idx == 0 {
		return 0
	}
	return b.Int[idx]
}

// WriteInt writes the integer register value; writes to register 0 are
// silently ignored.
func (b *Bank) WriteInt(idx int, v int64) {
	if idx == 0 {
		return
	}
	b.Int[idx] = v
}

// ReadFP returns the FP register's raw 64-bit value.
func (b *Bank) ReadFP(idx int) int64 { return b.FP[idx] }

// WriteFP writes the FP register's raw 64-bit value.
func (b *Bank) WriteFP(idx int, v int64) { b.FP[idx] = v }

// Clone returns a by-value copy (Bank is already a value type of arrays, so
// this is a plain copy, kept as a named method for symmetry with the rest
// of the engine's Clone-based snapshot machinery).
func (b Bank) Clone() Bank { return b }

// Status is the register status table: per-register optional owner tag.
// Invariant (spec.md §3): a tag is set if and only if some station/buffer
// is in flight and will write that register.
type Status struct {
	Int [NumRegisters]tagid.Tag
	FP  [NumRegisters]tagid.Tag
}

// OwnerInt returns the owner tag for integer register idx, or the zero Tag
// if none is set.
func (s *Status) OwnerInt(idx int) tagid.Tag { return s.Int[idx] }

// SetOwnerInt records that tag will write integer register idx. A no-op
// for register 0.
func (s *Status) SetOwnerInt(idx int, tag tagid.Tag) {
	if idx == 0 {
		return
	}
	s.Int[idx] = tag
}

// ClearOwnerInt clears the owner tag for integer register idx if it still
// equals tag (a later producer may have already claimed it).
func (s *Status) ClearOwnerInt(idx int, tag tagid.Tag) {
	if idx == 0 {
		return
	}
	if s.Int[idx] == tag {
		s.Int[idx] = tagid.None
	}
}

// OwnerFP returns the owner tag for FP register idx, or the zero Tag if
// none is set.
func (s *Status) OwnerFP(idx int) tagid.Tag { return s.FP[idx] }

// SetOwnerFP records that tag will write FP register idx.
func (s *Status) SetOwnerFP(idx int, tag tagid.Tag) { s.FP[idx] = tag }

// ClearOwnerFP clears the owner tag for FP register idx if it still equals
// tag.
func (s *Status) ClearOwnerFP(idx int, tag tagid.Tag) {
	if s.FP[idx] == tag {
		s.FP[idx] = tagid.None
	}
}

// Clone returns a by-value copy.
func (s Status) Clone() Status { return s }
