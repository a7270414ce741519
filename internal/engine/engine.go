// Package engine implements the pipeline engine: the synchronous,
// single-threaded cycle stepper that coordinates issue, execution,
// single-CDB write-back, and in-order store commit across reservation
// stations, load/store buffers, the register file and status table, and
// the cache. See spec.md §4.4 for the authoritative per-cycle ordering.
package engine

import (
	"log/slog"

	"github.com/maemo32/tomasim/internal/cache"
	"github.com/maemo32/tomasim/internal/errs"
	"github.com/maemo32/tomasim/internal/isa"
	"github.com/maemo32/tomasim/internal/regfile"
	"github.com/maemo32/tomasim/internal/station"
	"github.com/maemo32/tomasim/internal/store"
	"github.com/maemo32/tomasim/internal/tagid"
)

// Config holds every construction-time parameter: the decoded program,
// per-category station/buffer counts, functional-unit latencies, and the
// cache geometry. All counts and latencies must be positive.
type Config struct {
	Program []*isa.Instruction

	NumIntALU   int
	NumFPAdd    int
	NumFPMul    int
	NumLoadBuf  int
	NumStoreBuf int

	LatencyIntALU    int
	LatencyFPAdd     int
	LatencyFPMul     int
	LatencyFPDiv     int
	LatencyLoadBase  int
	LatencyStoreBase int

	Cache   cache.Config
	MemSize int
}

func (c Config) validate() error {
	if c.NumIntALU <= 0 || c.NumFPAdd <= 0 || c.NumFPMul <= 0 || c.NumLoadBuf <= 0 || c.NumStoreBuf <= 0 {
		return errs.BadConfigf("engine.New", "station/buffer counts must all be positive: %+v", c)
	}
	if c.LatencyIntALU <= 0 || c.LatencyFPAdd <= 0 || c.LatencyFPMul <= 0 || c.LatencyFPDiv <= 0 ||
		c.LatencyLoadBase <= 0 || c.LatencyStoreBase <= 0 {
		return errs.BadConfigf("engine.New", "latencies must all be positive: %+v", c)
	}
	if c.MemSize <= 0 {
		return errs.BadConfigf("engine.New", "mem_size must be positive, got %d", c.MemSize)
	}
	return nil
}

// CycleResult reports non-fatal outcomes of a single NextCycle call.
type CycleResult struct {
	// NoProgress is set when nothing issued, no unit was executing, and no
	// write-back or commit occurred — the program has terminated or
	// deadlocked (spec.md §7).
	NoProgress bool
}

// Engine owns the entire machine: PC, cycle counter, fetch-stall bit,
// station/buffer pools, register file and status, cache, backing store,
// and the reverse-stepping history.
type Engine struct {
	cfg Config

	program    []*isa.Instruction
	pc         int
	cycle      int
	fetchStall bool
	issueSeq   int

	intStations   []station.Station
	fpAddStations []station.Station
	fpMulStations []station.Station
	loadBufs      []station.LoadBuffer
	storeBufs     []station.StoreBuffer

	regs   regfile.Bank
	status regfile.Status

	store *store.Store
	cache *cache.Cache

	// reserved maps a predicted end-cycle to the identifier of the unit
	// that will finish there, modelling the single CDB by refusing to
	// start a second unit with a colliding end cycle (spec.md §4.4.1 step 3).
	reserved map[int]tagid.Tag

	history []*Snapshot
}

// New validates cfg and constructs an Engine ready to run cfg.Program.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	st := store.New(cfg.MemSize)
	c, err := cache.New(cfg.Cache, st)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:           cfg,
		program:       cfg.Program,
		intStations:   make([]station.Station, cfg.NumIntALU),
		fpAddStations: make([]station.Station, cfg.NumFPAdd),
		fpMulStations: make([]station.Station, cfg.NumFPMul),
		loadBufs:      make([]station.LoadBuffer, cfg.NumLoadBuf),
		storeBufs:     make([]station.StoreBuffer, cfg.NumStoreBuf),
		store:         st,
		cache:         c,
		reserved:      make(map[int]tagid.Tag),
	}
	for i := range e.intStations {
		e.intStations[i].ID = tagid.New(tagid.IntALU, i)
	}
	for i := range e.fpAddStations {
		e.fpAddStations[i].ID = tagid.New(tagid.FPAdd, i)
	}
	for i := range e.fpMulStations {
		e.fpMulStations[i].ID = tagid.New(tagid.FPMul, i)
	}
	for i := range e.loadBufs {
		e.loadBufs[i].ID = tagid.New(tagid.Load, i)
	}
	for i := range e.storeBufs {
		e.storeBufs[i].ID = tagid.New(tagid.Store, i)
	}

	slog.Info("engine constructed",
		"program_len", len(e.program),
		"int_alu", cfg.NumIntALU, "fp_add", cfg.NumFPAdd, "fp_mul", cfg.NumFPMul,
		"load_buf", cfg.NumLoadBuf, "store_buf", cfg.NumStoreBuf)

	e.history = append(e.history, e.snapshot())
	return e, nil
}

// Cycle returns the current cycle number (0 before any NextCycle call).
func (e *Engine) Cycle() int { return e.cycle }

// PC returns the current program counter.
func (e *Engine) PC() int { return e.pc }

// FetchStall reports whether issue is currently stalled (an in-flight
// branch has not yet written back).
func (e *Engine) FetchStall() bool { return e.fetchStall }

// Done reports whether the PC has run past the end of the program.
func (e *Engine) Done() bool { return e.pc >= len(e.program) }

// NextCycle advances the machine by exactly one cycle, running the fixed
// phase order of spec.md §4.4.1: commit stores, write back on the CDB,
// start ready executions, decrement executing countdowns, issue one
// instruction, then snapshot.
func (e *Engine) NextCycle() (CycleResult, error) {
	currentCycle := e.cycle + 1
	var res CycleResult

	committed, err := e.commitStores(currentCycle)
	if err != nil {
		return res, err
	}
	wroteBack, err := e.writeback(currentCycle)
	if err != nil {
		return res, err
	}
	e.startExecutions(currentCycle)
	decremented := e.decrementExecuting(currentCycle)
	issued := e.issueOne(currentCycle)

	e.cycle = currentCycle
	res.NoProgress = !committed && !wroteBack && !issued && decremented == 0

	e.history = append(e.history, e.snapshot())
	return res, nil
}

// PreviousCycle pops the most recent cycle off the history and restores the
// engine to the prior state, including PC, cycle counter, and all
// station/buffer/register/cache state. Returns false if already at the
// initial (pre-run) state.
func (e *Engine) PreviousCycle() bool {
	if len(e.history) <= 1 {
		return false
	}
	e.history = e.history[:len(e.history)-1]
	e.restore(e.history[len(e.history)-1])
	return true
}

// HistoryDepth returns how many snapshots (including the initial one) are
// currently retained.
func (e *Engine) HistoryDepth() int { return len(e.history) }
