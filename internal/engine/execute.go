package engine

import (
	"sort"

	"github.com/maemo32/tomasim/internal/isa"
	"github.com/maemo32/tomasim/internal/station"
	"github.com/maemo32/tomasim/internal/tagid"
)

func (e *Engine) tryReserve(end int, id tagid.Tag) bool {
	if _, collide := e.reserved[end]; collide {
		return false
	}
	e.reserved[end] = id
	return true
}

// loadReady implements the address-based disambiguation of spec.md §3: a
// load may not start while any older store in the buffer has an unknown
// address or the same address as the load.
func (e *Engine) loadReady(l *station.LoadBuffer) bool {
	if l.State != station.Issued || !l.AddressReady() {
		return false
	}
	addr := l.Address()
	for i := range e.storeBufs {
		sb := &e.storeBufs[i]
		if !sb.Busy() || sb.Order >= l.Order {
			continue
		}
		if !sb.AddressReady() {
			return false
		}
		if sb.Address() == addr {
			return false
		}
	}
	return true
}

// startExecutions implements spec.md §4.4.1 step 3: start every idle,
// ready station/buffer whose predicted end cycle does not collide with an
// already-executing unit.
func (e *Engine) startExecutions(currentCycle int) {
	for i := range e.intStations {
		st := &e.intStations[i]
		if st.State != station.Issued || !st.Ready() {
			continue
		}
		e.tryStartStation(st, e.cfg.LatencyIntALU, currentCycle)
	}
	for i := range e.fpAddStations {
		st := &e.fpAddStations[i]
		if st.State != station.Issued || !st.Ready() {
			continue
		}
		e.tryStartStation(st, e.cfg.LatencyFPAdd, currentCycle)
	}
	for i := range e.fpMulStations {
		st := &e.fpMulStations[i]
		if st.State != station.Issued || !st.Ready() {
			continue
		}
		lat := e.cfg.LatencyFPMul
		if isa.IsDiv(st.Op) {
			lat = e.cfg.LatencyFPDiv
		}
		e.tryStartStation(st, lat, currentCycle)
	}
	for i := range e.loadBufs {
		l := &e.loadBufs[i]
		if !e.loadReady(l) {
			continue
		}
		lat := e.cfg.LatencyLoadBase + e.cache.ProbeLatency(int(l.Address()))
		end := currentCycle + lat - 1
		if !e.tryReserve(end, l.ID) {
			continue
		}
		if l.Inst.Stamps.ExecStart == isa.Unset {
			l.Inst.Stamps.ExecStart = currentCycle
		}
		l.Remaining = lat
		l.State = station.Executing
	}
	for i := range e.storeBufs {
		s := &e.storeBufs[i]
		if s.State != station.Issued || !s.Ready() {
			continue
		}
		lat := e.cfg.LatencyStoreBase + e.cache.ProbeLatency(int(s.Address()))
		end := currentCycle + lat - 1
		if !e.tryReserve(end, s.ID) {
			continue
		}
		if s.Inst.Stamps.ExecStart == isa.Unset {
			s.Inst.Stamps.ExecStart = currentCycle
		}
		s.Remaining = lat
		s.State = station.Executing
	}
}

func (e *Engine) tryStartStation(st *station.Station, latency, currentCycle int) {
	end := currentCycle + latency - 1
	if !e.tryReserve(end, st.ID) {
		return
	}
	if st.Inst.Stamps.ExecStart == isa.Unset {
		st.Inst.Stamps.ExecStart = currentCycle
	}
	st.Remaining = latency
	st.State = station.Executing
}

// decrementExecuting implements spec.md §4.4.1 step 4, returning how many
// units were executing (and thus decremented) this cycle.
func (e *Engine) decrementExecuting(currentCycle int) int {
	count := 0
	finish := func(remaining *int, stamps *isa.Stamps, state *station.State) {
		count++
		*remaining--
		if *remaining == 0 {
			stamps.ExecEnd = currentCycle
			*state = station.Finished
			delete(e.reserved, currentCycle)
		}
	}
	for i := range e.intStations {
		st := &e.intStations[i]
		if st.State == station.Executing {
			finish(&st.Remaining, &st.Inst.Stamps, &st.State)
		}
	}
	for i := range e.fpAddStations {
		st := &e.fpAddStations[i]
		if st.State == station.Executing {
			finish(&st.Remaining, &st.Inst.Stamps, &st.State)
		}
	}
	for i := range e.fpMulStations {
		st := &e.fpMulStations[i]
		if st.State == station.Executing {
			finish(&st.Remaining, &st.Inst.Stamps, &st.State)
		}
	}
	for i := range e.loadBufs {
		l := &e.loadBufs[i]
		if l.State == station.Executing {
			finish(&l.Remaining, &l.Inst.Stamps, &l.State)
		}
	}
	for i := range e.storeBufs {
		s := &e.storeBufs[i]
		if s.State == station.Executing {
			finish(&s.Remaining, &s.Inst.Stamps, &s.State)
		}
	}
	return count
}

// commitStores implements spec.md §4.4.1 step 1. Eligible stores are
// committed in program order so that, if more than one finishes the same
// cycle, memory visibility still respects issue order.
func (e *Engine) commitStores(currentCycle int) (bool, error) {
	type pending struct {
		idx   int
		order int
	}
	var eligible []pending
	for i := range e.storeBufs {
		s := &e.storeBufs[i]
		if s.State == station.Finished && s.Inst.Stamps.WriteBack == isa.Unset && s.Inst.Stamps.ExecEnd < currentCycle {
			eligible = append(eligible, pending{i, s.Order})
		}
	}
	sort.Slice(eligible, func(a, b int) bool { return eligible[a].order < eligible[b].order })

	committed := false
	for _, p := range eligible {
		s := &e.storeBufs[p.idx]
		if err := e.cache.Store(int(s.Address()), s.Value.Value, isa.IsDouble(s.Op)); err != nil {
			return committed, err
		}
		s.Inst.Stamps.WriteBack = currentCycle
		s.Reset()
		committed = true
	}
	return committed, nil
}
