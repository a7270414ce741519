// Package batch runs independent programs through independent engines
// concurrently. Unlike the teacher's WorkerPool (a shared result table
// guarded by a mutex), each job here owns its own engine.Engine end to end,
// so there is no shared mutable state to protect — an errgroup.Group is
// sufficient in place of the teacher's manual channel+WaitGroup plumbing.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/maemo32/tomasim/internal/engine"
)

// Job is one program to run to completion or to a maximum cycle bound.
type Job struct {
	Name      string
	Config    engine.Config
	MaxCycles int
}

// Result reports how one job ended.
type Result struct {
	Name       string
	Cycles     int
	NoProgress bool
	CacheHits  uint64
	CacheMiss  uint64
	Err        error
}

// Run executes every job on its own engine.Engine concurrently, returning
// one Result per job in the same order jobs were given. A single job's
// construction or runtime error is captured on its own Result and does not
// cancel the others.
func Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = runOne(ctx, job)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func runOne(ctx context.Context, job Job) Result {
	res := Result{Name: job.Name}
	e, err := engine.New(job.Config)
	if err != nil {
		res.Err = err
		return res
	}
	for res.Cycles < job.MaxCycles {
		select {
		case <-ctx.Done():
			res.Err = ctx.Err()
			return res
		default:
		}
		cr, err := e.NextCycle()
		if err != nil {
			res.Err = err
			return res
		}
		res.Cycles++
		if cr.NoProgress {
			res.NoProgress = true
			break
		}
	}
	st := e.Observe()
	res.CacheHits = st.CacheHits
	res.CacheMiss = st.CacheMisses
	return res
}
