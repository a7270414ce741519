// Command tomasim is the CLI front-end for the Tomasulo simulator engine:
// run a program to completion, single-step it, inspect per-cycle state, or
// batch many programs concurrently.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/maemo32/tomasim/internal/asm"
	"github.com/maemo32/tomasim/internal/batch"
	"github.com/maemo32/tomasim/internal/cache"
	"github.com/maemo32/tomasim/internal/engine"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tomasim",
		Short: "Cycle-accurate Tomasulo dynamic-scheduling simulator",
	}

	rootCmd.AddCommand(newRunCmd(), newStepCmd(), newInspectCmd(), newBatchCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// engineFlags holds the construction parameters shared by run/step/inspect.
type engineFlags struct {
	source    string
	numInt    int
	numFPAdd  int
	numFPMul  int
	numLoad   int
	numStore  int
	latInt    int
	latFPAdd  int
	latFPMul  int
	latFPDiv  int
	latLoad   int
	latStore  int
	cacheSize int
	blockSize int
	assoc     int
	hitLat    int
	missPen   int
	memSize   int
}

func (f *engineFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.source, "program", "", "path to assembly source (required)")
	cmd.Flags().IntVar(&f.numInt, "int-alu", 2, "number of integer-ALU reservation stations")
	cmd.Flags().IntVar(&f.numFPAdd, "fp-add", 2, "number of FP-add reservation stations")
	cmd.Flags().IntVar(&f.numFPMul, "fp-mul", 2, "number of FP-mul reservation stations")
	cmd.Flags().IntVar(&f.numLoad, "load-buf", 2, "number of load buffers")
	cmd.Flags().IntVar(&f.numStore, "store-buf", 2, "number of store buffers")
	cmd.Flags().IntVar(&f.latInt, "lat-int", 1, "integer-ALU latency")
	cmd.Flags().IntVar(&f.latFPAdd, "lat-fp-add", 2, "FP-add latency")
	cmd.Flags().IntVar(&f.latFPMul, "lat-fp-mul", 4, "FP-mul latency")
	cmd.Flags().IntVar(&f.latFPDiv, "lat-fp-div", 8, "FP-div latency")
	cmd.Flags().IntVar(&f.latLoad, "lat-load", 1, "load base latency (before cache probe)")
	cmd.Flags().IntVar(&f.latStore, "lat-store", 1, "store base latency (before cache probe)")
	cmd.Flags().IntVar(&f.cacheSize, "cache-size", 64, "cache size in bytes")
	cmd.Flags().IntVar(&f.blockSize, "block-size", 16, "cache block size in bytes")
	cmd.Flags().IntVar(&f.assoc, "associativity", 2, "cache associativity")
	cmd.Flags().IntVar(&f.hitLat, "hit-latency", 1, "cache hit latency")
	cmd.Flags().IntVar(&f.missPen, "miss-penalty", 10, "cache miss penalty")
	cmd.Flags().IntVar(&f.memSize, "mem-size", 4096, "backing store size in bytes")
}

func (f *engineFlags) build() (*engine.Engine, error) {
	if f.source == "" {
		return nil, fmt.Errorf("--program is required")
	}
	src, err := os.ReadFile(f.source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.source, err)
	}
	program, err := asm.Assemble(string(src))
	if err != nil {
		return nil, err
	}
	cfg := engine.Config{
		Program:          program,
		NumIntALU:        f.numInt,
		NumFPAdd:         f.numFPAdd,
		NumFPMul:         f.numFPMul,
		NumLoadBuf:       f.numLoad,
		NumStoreBuf:      f.numStore,
		LatencyIntALU:    f.latInt,
		LatencyFPAdd:     f.latFPAdd,
		LatencyFPMul:     f.latFPMul,
		LatencyFPDiv:     f.latFPDiv,
		LatencyLoadBase:  f.latLoad,
		LatencyStoreBase: f.latStore,
		Cache: cache.Config{
			CacheSize:     f.cacheSize,
			BlockSize:     f.blockSize,
			Associativity: f.assoc,
			HitLatency:    f.hitLat,
			MissPenalty:   f.missPen,
		},
		MemSize: f.memSize,
	}
	return engine.New(cfg)
}

func newRunCmd() *cobra.Command {
	var f engineFlags
	var maxCycles int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a program to completion or a cycle bound",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := f.build()
			if err != nil {
				return err
			}
			cycles := 0
			for cycles < maxCycles {
				cr, err := e.NextCycle()
				if err != nil {
					return err
				}
				cycles++
				if cr.NoProgress {
					break
				}
			}
			st := e.Observe()
			fmt.Printf("ran %d cycles, PC=%d, done=%v, cache hits=%d misses=%d\n",
				cycles, st.PC, st.Done, st.CacheHits, st.CacheMisses)
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().IntVar(&maxCycles, "max-cycles", 10_000, "safety bound on cycles to run")
	return cmd
}

func newStepCmd() *cobra.Command {
	var f engineFlags
	var steps int
	var reverse bool
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Advance (or reverse) the engine by a number of cycles and print its state",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := f.build()
			if err != nil {
				return err
			}
			for i := 0; i < steps; i++ {
				if reverse {
					if !e.PreviousCycle() {
						slog.Warn("previous_cycle: already at initial state")
						break
					}
					continue
				}
				if _, err := e.NextCycle(); err != nil {
					return err
				}
			}
			return printState(e.Observe())
		},
	}
	f.bind(cmd)
	cmd.Flags().IntVar(&steps, "steps", 1, "number of cycles to step")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "step backward instead of forward")
	return cmd
}

func newInspectCmd() *cobra.Command {
	var f engineFlags
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the engine's initial observable state as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := f.build()
			if err != nil {
				return err
			}
			return printState(e.Observe())
		},
	}
	f.bind(cmd)
	return cmd
}

func printState(st engine.State) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

func newBatchCmd() *cobra.Command {
	var maxCycles int
	cmd := &cobra.Command{
		Use:   "batch [program...]",
		Short: "Run several programs concurrently with identical engine parameters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs := make([]batch.Job, 0, len(args))
			for _, path := range args {
				src, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				program, err := asm.Assemble(string(src))
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				jobs = append(jobs, batch.Job{
					Name: path,
					Config: engine.Config{
						Program:          program,
						NumIntALU:        2,
						NumFPAdd:         2,
						NumFPMul:         2,
						NumLoadBuf:       2,
						NumStoreBuf:      2,
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
					},
					MaxCycles: maxCycles,
				})
			}
			results, err := batch.Run(context.Background(), jobs)
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.Err != nil {
					fmt.Printf("%s: error: %v\n", r.Name, r.Err)
					continue
				}
				fmt.Printf("%s: %d cycles, no_progress=%v, cache hits=%d misses=%d\n",
					r.Name, r.Cycles, r.NoProgress, r.CacheHits, r.CacheMiss)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxCycles, "max-cycles", 10_000, "safety bound on cycles per job")
	return cmd
}
