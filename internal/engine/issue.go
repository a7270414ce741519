package engine

import (
	"github.com/maemo32/tomasim/internal/isa"
	"github.com/maemo32/tomasim/internal/station"
)

func findFreeStation(s []station.Station) int {
	for i := range s {
		if !s[i].Busy() {
			return i
		}
	}
	return -1
}

func findFreeLoadBuf(s []station.LoadBuffer) int {
	for i := range s {
		if !s[i].Busy() {
			return i
		}
	}
	return -1
}

func findFreeStoreBuf(s []station.StoreBuffer) int {
	for i := range s {
		if !s[i].Busy() {
			return i
		}
	}
	return -1
}

func (e *Engine) resolveIntOperand(reg int) station.Operand {
	if tag := e.status.OwnerInt(reg); tag.Valid() {
		return station.Operand{Tag: tag}
	}
	return station.Operand{Value: e.regs.ReadInt(reg)}
}

func (e *Engine) resolveFPOperand(reg int) station.Operand {
	if tag := e.status.OwnerFP(reg); tag.Valid() {
		return station.Operand{Tag: tag}
	}
	return station.Operand{Value: e.regs.ReadFP(reg)}
}

// issueOne attempts to place the instruction at the current PC into a free
// station/buffer. It is a benign no-op when fetch is stalled, the PC has
// run off the end of the program, or no matching slot is free (spec.md
// §4.4.1 step 5, §4.4.6).
func (e *Engine) issueOne(currentCycle int) bool {
	if e.fetchStall || e.pc < 0 || e.pc >= len(e.program) {
		return false
	}
	inst := e.program[e.pc]

	var ok bool
	switch isa.ClassOf(inst.Op) {
	case isa.ClassIntALU:
		ok = e.issueIntALU(inst)
	case isa.ClassFPAdd:
		ok = e.issueFP(e.fpAddStations, inst)
	case isa.ClassFPMul:
		ok = e.issueFP(e.fpMulStations, inst)
	case isa.ClassLoad:
		ok = e.issueLoad(inst)
	case isa.ClassStore:
		ok = e.issueStore(inst)
	}
	if !ok {
		return false
	}

	inst.Stamps = isa.NewStamps()
	inst.Stamps.Issue = currentCycle
	e.pc++
	if isa.IsBranch(inst.Op) {
		e.fetchStall = true
	}
	e.issueSeq++
	return true
}

func (e *Engine) issueIntALU(inst *isa.Instruction) bool {
	idx := findFreeStation(e.intStations)
	if idx < 0 {
		return false
	}
	st := &e.intStations[idx]
	st.State = station.Issued
	st.Op = inst.Op
	st.Inst = inst

	switch inst.Op {
	case isa.ADDI, isa.SUBI:
		st.Vj = e.resolveIntOperand(inst.Src1)
		st.Vk = station.Operand{Value: inst.Imm}
		st.A = inst.Imm
		st.HasDest = true
		st.Dest = inst.Dest
		st.DestFP = false
		e.status.SetOwnerInt(inst.Dest, st.ID)
	case isa.BEQ, isa.BNE:
		st.Vj = e.resolveIntOperand(inst.Src1)
		st.Vk = e.resolveIntOperand(inst.Src2)
		st.A = inst.Imm
		st.HasDest = false
	}
	return true
}

func (e *Engine) issueFP(stations []station.Station, inst *isa.Instruction) bool {
	idx := findFreeStation(stations)
	if idx < 0 {
		return false
	}
	st := &stations[idx]
	st.State = station.Issued
	st.Op = inst.Op
	st.Inst = inst
	st.Vj = e.resolveFPOperand(inst.Src1)
	st.Vk = e.resolveFPOperand(inst.Src2)
	st.HasDest = true
	st.Dest = inst.Dest
	st.DestFP = true
	e.status.SetOwnerFP(inst.Dest, st.ID)
	return true
}

func (e *Engine) issueLoad(inst *isa.Instruction) bool {
	idx := findFreeLoadBuf(e.loadBufs)
	if idx < 0 {
		return false
	}
	l := &e.loadBufs[idx]
	l.State = station.Issued
	l.Op = inst.Op
	l.Inst = inst
	l.Base = e.resolveIntOperand(inst.Src1)
	l.Offset = inst.Imm
	l.Dest = inst.Dest
	l.DestFP = inst.MemFP
	l.Order = e.issueSeq
	if inst.MemFP {
		e.status.SetOwnerFP(inst.Dest, l.ID)
	} else {
		e.status.SetOwnerInt(inst.Dest, l.ID)
	}
	return true
}

func (e *Engine) issueStore(inst *isa.Instruction) bool {
	idx := findFreeStoreBuf(e.storeBufs)
	if idx < 0 {
		return false
	}
	s := &e.storeBufs[idx]
	s.State = station.Issued
	s.Op = inst.Op
	s.Inst = inst
	s.Base = e.resolveIntOperand(inst.Src1)
	s.Offset = inst.Imm
	s.Order = e.issueSeq
	if inst.MemFP {
		s.Value = e.resolveFPOperand(inst.Src2)
	} else {
		s.Value = e.resolveIntOperand(inst.Src2)
	}
	return true
}
