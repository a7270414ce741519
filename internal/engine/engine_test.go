package engine

import (
	"reflect"
	"testing"

	"github.com/maemo32/tomasim/internal/asm"
	"github.com/maemo32/tomasim/internal/cache"
	"github.com/maemo32/tomasim/internal/tagid"
)

func baseConfig(t *testing.T, src string) Config {
	t.Helper()
	program, err := asm.Assemble(src)
	if err != nil {
		t.Fatalf("assembling program: %v", err)
	}
	return Config{
		Program:          program,
		NumIntALU:        2,
		NumFPAdd:         1,
		NumFPMul:         1,
		NumLoadBuf:       1,
		NumStoreBuf:      1,
		LatencyIntALU:    1,
		LatencyFPAdd:     2,
		LatencyFPMul:     4,
		LatencyFPDiv:     8,
		LatencyLoadBase:  1,
		LatencyStoreBase: 1,
		Cache: cache.Config{
			CacheSize:     64,
			BlockSize:     16,
			Associativity: 2,
			HitLatency:    1,
			MissPenalty:   10,
		},
		MemSize: 4096,
	}
}

func runUntilNoProgress(t *testing.T, e *Engine, cap int) {
	t.Helper()
	for i := 0; i < cap; i++ {
		res, err := e.NextCycle()
		if err != nil {
			t.Fatalf("NextCycle: %v", err)
		}
		if res.NoProgress {
			return
		}
	}
	t.Fatalf("program did not reach NoProgress within %d cycles", cap)
}

// TestIntegerImmediateChain covers the dependent ADDI/SUBI pair: the second
// instruction's issue cycle follows the first by one, its exec-start occurs
// no earlier than the first's write-back, and the final register value is
// correct.
func TestIntegerImmediateChain(t *testing.T) {
	cfg := baseConfig(t, "ADDI R1, R0, 24\nSUBI R1, R1, 8\n")
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	runUntilNoProgress(t, e, 100)

	prog := cfg.Program
	if prog[1].Stamps.Issue != prog[0].Stamps.Issue+1 {
		t.Errorf("second issue cycle = %d, want %d", prog[1].Stamps.Issue, prog[0].Stamps.Issue+1)
	}
	if prog[1].Stamps.ExecStart < prog[0].Stamps.WriteBack {
		t.Errorf("second exec-start (%d) precedes first write-back (%d)", prog[1].Stamps.ExecStart, prog[0].Stamps.WriteBack)
	}
	if got := e.Observe().IntRegs[1]; got != 16 {
		t.Errorf("R1 = %d, want 16", got)
	}
}

// TestRAWForwardsThroughCDB checks that the second instruction issues with a
// pending tag naming the first's station, and that its exec-start lands
// exactly on the first's write-back cycle (single-cycle forwarding).
func TestRAWForwardsThroughCDB(t *testing.T) {
	cfg := baseConfig(t, "ADDI R1, R0, 5\nADDI R2, R1, 7\n")
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.NextCycle(); err != nil { // cycle 1: issue first ADDI
		t.Fatal(err)
	}
	if _, err := e.NextCycle(); err != nil { // cycle 2: start first, issue second
		t.Fatal(err)
	}

	st := e.Observe()
	producer := tagid.New(tagid.IntALU, 0)
	second := st.IntStations[1]
	if !second.Vj.Tag.Valid() || second.Vj.Tag != producer {
		t.Fatalf("second instruction's Vj tag = %v, want %v", second.Vj.Tag, producer)
	}

	runUntilNoProgress(t, e, 100)
	prog := cfg.Program
	if prog[1].Stamps.ExecStart != prog[0].Stamps.WriteBack {
		t.Errorf("second exec-start (%d) != first write-back (%d)", prog[1].Stamps.ExecStart, prog[0].Stamps.WriteBack)
	}
	if got := e.Observe().IntRegs[2]; got != 12 {
		t.Errorf("R2 = %d, want 12", got)
	}
}

// TestLoopWithBNE runs a three-iteration countdown loop and checks it exits
// cleanly with fetch-stall cleared and the PC past the branch.
func TestLoopWithBNE(t *testing.T) {
	src := "ADDI R1, R0, 24\nLOOP: SUBI R1, R1, 8\nBNE R1, R0, LOOP\n"
	cfg := baseConfig(t, src)
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	runUntilNoProgress(t, e, 500)

	st := e.Observe()
	if st.IntRegs[1] != 0 {
		t.Errorf("R1 = %d, want 0", st.IntRegs[1])
	}
	if st.FetchStall {
		t.Error("fetch-stall should be clear once the final branch writes back")
	}
	if !st.Done {
		t.Error("PC should have advanced past the final branch")
	}
}

// TestCacheHitMissTiming mirrors the canonical cache scenario: two
// doublewords sharing a block after the first install, then a third in a
// different block, ending with one hit and two misses.
func TestCacheHitMissTiming(t *testing.T) {
	src := "LD F0, 0(R0)\nLD F1, 8(R0)\nLD F2, 100(R0)\n"
	cfg := baseConfig(t, src)
	cfg.LatencyLoadBase = 2
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	runUntilNoProgress(t, e, 200)

	prog := cfg.Program
	durations := make([]int, 3)
	for i, inst := range prog {
		durations[i] = inst.Stamps.ExecEnd - inst.Stamps.ExecStart + 1
	}
	if durations[0] != 13 {
		t.Errorf("load 0 duration = %d, want 13", durations[0])
	}
	if durations[1] != 3 {
		t.Errorf("load 8 duration = %d, want 3", durations[1])
	}
	if durations[2] != 13 {
		t.Errorf("load 100 duration = %d, want 13", durations[2])
	}

	st := e.Observe()
	if st.CacheHits != 1 || st.CacheMisses != 2 {
		t.Errorf("cache stats = (%d hits, %d misses), want (1, 2)", st.CacheHits, st.CacheMisses)
	}
}

// TestLoadBlockedByOlderStore checks that a load to the same address as an
// older, not-yet-committed store cannot begin execution until that store
// commits.
func TestLoadBlockedByOlderStore(t *testing.T) {
	cfg := baseConfig(t, "SD F0, 0(R0)\nLD F1, 0(R0)\n")
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	runUntilNoProgress(t, e, 200)

	prog := cfg.Program
	store, load := prog[0], prog[1]
	if load.Stamps.ExecStart < store.Stamps.WriteBack {
		t.Errorf("load exec-start (%d) precedes store commit (%d)", load.Stamps.ExecStart, store.Stamps.WriteBack)
	}
}

// TestReverseStepFidelity checks that stepping forward N cycles and then
// backward N cycles restores every observable field exactly.
func TestReverseStepFidelity(t *testing.T) {
	cfg := baseConfig(t, "ADDI R1, R0, 24\nSUBI R1, R1, 8\n")
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	initial := e.Observe()

	const steps = 6
	for i := 0; i < steps; i++ {
		if _, err := e.NextCycle(); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < steps; i++ {
		if !e.PreviousCycle() {
			t.Fatalf("PreviousCycle() returned false at step %d", i)
		}
	}

	if !reflect.DeepEqual(initial, e.Observe()) {
		t.Errorf("state after round-trip does not match initial state\nwant %+v\ngot  %+v", initial, e.Observe())
	}
	if e.PreviousCycle() {
		t.Error("PreviousCycle() at the initial state should return false")
	}
}

func TestBadConfigRejected(t *testing.T) {
	cfg := baseConfig(t, "ADDI R1, R0, 1\n")
	cfg.NumIntALU = 0
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for zero station count")
	}
}
