package nca

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Executor runs the automaton sequentially on the CPU. It is the reference
// implementation every other backend is measured against: cells are updated
// in row-major order, each reading only the previous step's committed state
// via a ping-pong pair of substrates.
type Executor struct {
	params *Params
	cur    *Substrate
	next   *Substrate
	opts   ExecutorOptions
	steps  int
}

// ExecutorOptions are the knobs the update contract delegates to the
// surrounding executor. The zero value is the default configuration:
// zero-vector boundary, pure affine update.
type ExecutorOptions struct {
	// Boundary fixes the out-of-grid sampling policy.
	Boundary BoundaryPolicy
	// Clamp01 clamps every written channel into [0, 1] after the affine
	// transform. Off by default: the core update is pure affine.
	Clamp01 bool
	// AliveThreshold, when positive, zeroes input contributions below the
	// threshold (alive masking). Off by default.
	AliveThreshold float32
}

// NewExecutor builds an executor over a substrate. The substrate is not
// copied; the caller hands over ownership until the executor is discarded.
// The parameter buffer and substrate must share one Config.
func NewExecutor(params *Params, sub *Substrate, opts ExecutorOptions) (*Executor, error) {
	if params.Config() != sub.Config() {
		return nil, fmt.Errorf("params configured for %d channels, substrate for %d",
			params.Config().InpChs, sub.Config().InpChs)
	}
	return &Executor{
		params: params,
		cur:    sub,
		next:   sub.Clone(),
		opts:   opts,
	}, nil
}

// Substrate returns the current committed state.
func (e *Executor) Substrate() *Substrate { return e.cur }

// Steps returns how many full steps have completed.
func (e *Executor) Steps() int { return e.steps }

// Step advances the whole grid by one update: every cell's output is
// computed from the current substrate and written to the back buffer, then
// the buffers swap. The swap is the full-grid barrier — no cell of step n+1
// observes anything but step n's committed state.
func (e *Executor) Step() {
	cfg := e.cur.cfg
	input := make([]float32, cfg.InpDim)
	out := make([]float32, cfg.OutChs)

	for y := 0; y < e.cur.height; y++ {
		for x := 0; x < e.cur.width; x++ {
			e.Gather(x, y, input)
			e.params.Apply(input, out)
			if e.opts.Clamp01 {
				clamp01(out)
			}
			e.next.ApplyOutput(x, y, out)
		}
	}

	e.cur, e.next = e.next, e.cur
	e.steps++
}

// Run advances the grid by n steps.
func (e *Executor) Run(n int) {
	for i := 0; i < n; i++ {
		e.Step()
	}
}

// Gather fills input (length InpDim) with the concatenated channel vectors
// of the cell's neighborhood, in neighborhood order, applying the boundary
// policy for samples outside the grid.
func (e *Executor) Gather(x, y int, input []float32) {
	cfg := e.cur.cfg
	for ni, off := range Neighborhood() {
		dst := input[ni*cfg.InpChs : (ni+1)*cfg.InpChs]
		nx, ny, ok := e.opts.Boundary.Resolve(x+off.DX, y+off.DY, e.cur.width, e.cur.height)
		if !ok {
			for i := range dst {
				dst[i] = 0
			}
			continue
		}
		copy(dst, e.cur.Cell(nx, ny))
		if t := e.opts.AliveThreshold; t > 0 {
			for i, v := range dst {
				if v < t {
					dst[i] = 0
				}
			}
		}
	}
}

// Apply computes the dense affine update out = W*input + b. Accumulation is
// in float64 so the result does not drift with summation order.
func (p *Params) Apply(input, out []float32) {
	if len(input) != p.cfg.InpDim || len(out) != p.cfg.OutChs {
		panic(fmt.Sprintf("affine shapes: input %d (want %d), out %d (want %d)",
			len(input), p.cfg.InpDim, len(out), p.cfg.OutChs))
	}
	for o := 0; o < p.cfg.OutChs; o++ {
		acc := float64(p.Bias(o))
		row := p.buf[o*p.cfg.InpDim : (o+1)*p.cfg.InpDim]
		for i, w := range row {
			acc += float64(w) * float64(input[i])
		}
		out[o] = float32(acc)
	}
}

// VerifyCell recomputes one cell's update through gonum's dense matrix path
// and compares it against the scalar loop. Divergence beyond tol means the
// affine implementation itself is broken, not the inputs.
func (e *Executor) VerifyCell(x, y int, tol float64) error {
	cfg := e.cur.cfg
	input := make([]float32, cfg.InpDim)
	e.Gather(x, y, input)

	out := make([]float32, cfg.OutChs)
	e.params.Apply(input, out)

	w := mat.NewDense(cfg.OutChs, cfg.InpDim, toFloat64(e.params.buf[:cfg.NWeights]))
	b := mat.NewVecDense(cfg.OutChs, toFloat64(e.params.buf[cfg.NWeights:]))
	in := mat.NewVecDense(cfg.InpDim, toFloat64(input))

	var got mat.VecDense
	got.MulVec(w, in)
	got.AddVec(&got, b)

	if !floats.EqualApprox(got.RawVector().Data, toFloat64(out), tol) {
		return fmt.Errorf("%w: cell (%d,%d) matrix path %v vs scalar %v",
			ErrDivergence, x, y, got.RawVector().Data, out)
	}
	return nil
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func clamp01(vals []float32) {
	for i, v := range vals {
		if v < 0 {
			vals[i] = 0
		} else if v > 1 {
			vals[i] = 1
		}
	}
}
