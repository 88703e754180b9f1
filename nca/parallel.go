package nca

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum cell count worth fanning out. Below this
// the goroutine overhead outweighs the work per row.
const parallelThreshold = 64

// ParallelExecutor runs the same update contract as Executor but fans cell
// updates out across a worker pool, one worker per CPU by default. Within a
// step no worker observes another's writes: all reads hit the front buffer,
// all writes land in the back buffer, and the swap after the WaitGroup
// barrier commits the step for every cell at once.
type ParallelExecutor struct {
	inner      *Executor
	numWorkers int
}

// NewParallelExecutor builds a pooled executor over a substrate.
func NewParallelExecutor(params *Params, sub *Substrate, opts ExecutorOptions) (*ParallelExecutor, error) {
	inner, err := NewExecutor(params, sub, opts)
	if err != nil {
		return nil, err
	}
	return &ParallelExecutor{
		inner:      inner,
		numWorkers: runtime.GOMAXPROCS(0),
	}, nil
}

// Substrate returns the current committed state.
func (e *ParallelExecutor) Substrate() *Substrate { return e.inner.cur }

// Steps returns how many full steps have completed.
func (e *ParallelExecutor) Steps() int { return e.inner.steps }

// Step advances the whole grid by one update. Rows are distributed across
// workers; the step completes only when every cell has been written.
func (e *ParallelExecutor) Step() {
	in := e.inner
	if in.cur.Cells() < parallelThreshold || e.numWorkers < 2 {
		in.Step()
		return
	}

	cfg := in.cur.cfg
	rows := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < e.numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Per-worker scratch, reused across rows.
			input := make([]float32, cfg.InpDim)
			out := make([]float32, cfg.OutChs)
			for y := range rows {
				for x := 0; x < in.cur.width; x++ {
					in.Gather(x, y, input)
					in.params.Apply(input, out)
					if in.opts.Clamp01 {
						clamp01(out)
					}
					in.next.ApplyOutput(x, y, out)
				}
			}
		}()
	}

	for y := 0; y < in.cur.height; y++ {
		rows <- y
	}
	close(rows)
	wg.Wait()

	in.cur, in.next = in.next, in.cur
	in.steps++
}

// Run advances the grid by n steps.
func (e *ParallelExecutor) Run(n int) {
	for i := 0; i < n; i++ {
		e.Step()
	}
}
