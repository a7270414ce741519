package engine

import (
	"github.com/maemo32/tomasim/internal/isa"
	"github.com/maemo32/tomasim/internal/station"
	"github.com/maemo32/tomasim/internal/tagid"
)

type wbKind int

const (
	wbIntALU wbKind = iota
	wbFPAdd
	wbFPMul
	wbLoad
)

type wbCandidate struct {
	id   tagid.Tag
	inst *isa.Instruction
	kind wbKind
	idx  int
}

func eligible(state station.State, inst *isa.Instruction, currentCycle int) bool {
	return state == station.Finished && inst.Stamps.WriteBack == isa.Unset && inst.Stamps.ExecEnd < currentCycle
}

// countDependents counts stations/buffers whose pending operand, address,
// or value tag names id — the primary ranking key for the single CDB.
func (e *Engine) countDependents(id tagid.Tag) int {
	n := 0
	count := func(t tagid.Tag) {
		if t == id {
			n++
		}
	}
	for i := range e.intStations {
		count(e.intStations[i].Vj.Tag)
		count(e.intStations[i].Vk.Tag)
	}
	for i := range e.fpAddStations {
		count(e.fpAddStations[i].Vj.Tag)
		count(e.fpAddStations[i].Vk.Tag)
	}
	for i := range e.fpMulStations {
		count(e.fpMulStations[i].Vj.Tag)
		count(e.fpMulStations[i].Vk.Tag)
	}
	for i := range e.loadBufs {
		count(e.loadBufs[i].Base.Tag)
	}
	for i := range e.storeBufs {
		count(e.storeBufs[i].Base.Tag)
		count(e.storeBufs[i].Value.Tag)
	}
	return n
}

// broadcast posts (id, value) to every station/buffer waiting on id,
// resolving their pending operand.
func (e *Engine) broadcast(id tagid.Tag, value int64) {
	for i := range e.intStations {
		st := &e.intStations[i]
		st.Vj.WakeIfMatches(id, value)
		st.Vk.WakeIfMatches(id, value)
	}
	for i := range e.fpAddStations {
		st := &e.fpAddStations[i]
		st.Vj.WakeIfMatches(id, value)
		st.Vk.WakeIfMatches(id, value)
	}
	for i := range e.fpMulStations {
		st := &e.fpMulStations[i]
		st.Vj.WakeIfMatches(id, value)
		st.Vk.WakeIfMatches(id, value)
	}
	for i := range e.loadBufs {
		e.loadBufs[i].Base.WakeIfMatches(id, value)
	}
	for i := range e.storeBufs {
		e.storeBufs[i].Base.WakeIfMatches(id, value)
		e.storeBufs[i].Value.WakeIfMatches(id, value)
	}
}

func computeALU(op isa.Op, vj, vk, a int64) int64 {
	switch op {
	case isa.ADDI:
		return vj + a
	case isa.SUBI:
		return vj - a
	case isa.ADD_S, isa.ADD_D:
		return vj + vk
	case isa.SUB_S, isa.SUB_D:
		return vj - vk
	case isa.MUL_S, isa.MUL_D:
		return vj * vk
	case isa.DIV_S, isa.DIV_D:
		if vk == 0 {
			// Documented concession (spec.md §9): FP divide-by-zero yields 0
			// rather than trapping.
			return 0
		}
		return vj / vk
	default:
		return 0
	}
}

func evaluateBranch(op isa.Op, vj, vk int64) bool {
	switch op {
	case isa.BEQ:
		return vj == vk
	case isa.BNE:
		return vj != vk
	default:
		return false
	}
}

// writeback implements spec.md §4.4.1 step 2: arbitrate the single CDB
// transaction for this cycle among every eligible station/buffer.
func (e *Engine) writeback(currentCycle int) (bool, error) {
	var cands []wbCandidate
	for i := range e.intStations {
		st := &e.intStations[i]
		if eligible(st.State, st.Inst, currentCycle) {
			cands = append(cands, wbCandidate{st.ID, st.Inst, wbIntALU, i})
		}
	}
	for i := range e.fpAddStations {
		st := &e.fpAddStations[i]
		if eligible(st.State, st.Inst, currentCycle) {
			cands = append(cands, wbCandidate{st.ID, st.Inst, wbFPAdd, i})
		}
	}
	for i := range e.fpMulStations {
		st := &e.fpMulStations[i]
		if eligible(st.State, st.Inst, currentCycle) {
			cands = append(cands, wbCandidate{st.ID, st.Inst, wbFPMul, i})
		}
	}
	for i := range e.loadBufs {
		l := &e.loadBufs[i]
		if eligible(l.State, l.Inst, currentCycle) {
			cands = append(cands, wbCandidate{l.ID, l.Inst, wbLoad, i})
		}
	}
	if len(cands) == 0 {
		return false, nil
	}

	winner := cands[0]
	winnerDep := e.countDependents(winner.id)
	for _, c := range cands[1:] {
		dep := e.countDependents(c.id)
		if betterCandidate(dep, c.inst, winnerDep, winner.inst) {
			winner, winnerDep = c, dep
		}
	}

	switch winner.kind {
	case wbIntALU:
		e.writebackStation(&e.intStations[winner.idx], currentCycle)
	case wbFPAdd:
		e.writebackStation(&e.fpAddStations[winner.idx], currentCycle)
	case wbFPMul:
		e.writebackStation(&e.fpMulStations[winner.idx], currentCycle)
	case wbLoad:
		if err := e.writebackLoad(&e.loadBufs[winner.idx], currentCycle); err != nil {
			return false, err
		}
	}
	return true, nil
}

// betterCandidate orders by highest dependent count, then earliest
// exec-start, then earliest issue (spec.md §4.4.1 step 2).
func betterCandidate(dep int, inst *isa.Instruction, bestDep int, best *isa.Instruction) bool {
	if dep != bestDep {
		return dep > bestDep
	}
	if inst.Stamps.ExecStart != best.Stamps.ExecStart {
		return inst.Stamps.ExecStart < best.Stamps.ExecStart
	}
	return inst.Stamps.Issue < best.Stamps.Issue
}

func (e *Engine) writebackStation(st *station.Station, currentCycle int) {
	if isa.IsBranch(st.Op) {
		if evaluateBranch(st.Op, st.Vj.Value, st.Vk.Value) {
			e.pc = int(st.A)
		}
		e.fetchStall = false
	} else {
		value := computeALU(st.Op, st.Vj.Value, st.Vk.Value, st.A)
		if st.HasDest {
			e.writeDest(st.Dest, st.DestFP, st.ID, value)
		}
		e.broadcast(st.ID, value)
	}
	st.Inst.Stamps.WriteBack = currentCycle
	st.Reset()
}

func (e *Engine) writebackLoad(l *station.LoadBuffer, currentCycle int) error {
	value, err := e.cache.Load(int(l.Address()), isa.IsDouble(l.Op))
	if err != nil {
		return err
	}
	e.writeDest(l.Dest, l.DestFP, l.ID, value)
	e.broadcast(l.ID, value)
	l.Inst.Stamps.WriteBack = currentCycle
	l.Reset()
	return nil
}

func (e *Engine) writeDest(reg int, fp bool, producer tagid.Tag, value int64) {
	if fp {
		if e.status.OwnerFP(reg) == producer {
			e.regs.WriteFP(reg, value)
			e.status.ClearOwnerFP(reg, producer)
		}
		return
	}
	if e.status.OwnerInt(reg) == producer {
		e.regs.WriteInt(reg, value)
		e.status.ClearOwnerInt(reg, producer)
	}
}
