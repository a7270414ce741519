package engine

import (
	"github.com/maemo32/tomasim/internal/cache"
	"github.com/maemo32/tomasim/internal/isa"
	"github.com/maemo32/tomasim/internal/station"
)

// State is a read-only snapshot of everything spec.md §6 requires a caller
// to be able to inspect at any point: the program counter, the station and
// buffer contents, integer and FP register files, cache metadata and
// counters, and per-instruction cycle stamps. The register status table is
// not included. It is built fresh from live engine
// state (not from the rewind history) so a caller watching a running
// engine always sees the current cycle.
type State struct {
	Cycle      int
	PC         int
	FetchStall bool
	Done       bool

	IntStations   []station.Station
	FPAddStations []station.Station
	FPMulStations []station.Station
	LoadBufs      []station.LoadBuffer
	StoreBufs     []station.StoreBuffer

	IntRegs [32]int64
	FPRegs  [32]int64

	CacheSets        [][]cache.LineInfo
	CacheHits        uint64
	CacheMisses      uint64
	InstructionStamp []isa.Stamps
}

// Observe returns a by-value copy of the engine's current observable state.
func (e *Engine) Observe() State {
	hits, misses := e.cache.Stats()
	stamps := make([]isa.Stamps, len(e.program))
	for i, inst := range e.program {
		stamps[i] = inst.Stamps
	}
	return State{
		Cycle:            e.cycle,
		PC:               e.pc,
		FetchStall:       e.fetchStall,
		Done:             e.Done(),
		IntStations:      cloneStations(e.intStations),
		FPAddStations:    cloneStations(e.fpAddStations),
		FPMulStations:    cloneStations(e.fpMulStations),
		LoadBufs:         cloneLoadBufs(e.loadBufs),
		StoreBufs:        cloneStoreBufs(e.storeBufs),
		IntRegs:          e.regs.Int,
		FPRegs:           e.regs.FP,
		CacheSets:        e.cache.Sets(),
		CacheHits:        hits,
		CacheMisses:      misses,
		InstructionStamp: stamps,
	}
}
