package nca

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Params is the flat, read-only parameter buffer consumed by the update
// kernel: the weight matrix in row-major (out, in) order at [0, NWeights),
// followed by the bias vector at [NWeights, NParams). Trainers and
// initializers must produce exactly this shape and order.
type Params struct {
	cfg Config
	buf []float32
}

// NewParams wraps a flat buffer after validating its length against the
// configured NParams. The buffer is not copied; the caller must not mutate
// it while an executor step is in flight.
func NewParams(cfg Config, buf []float32) (*Params, error) {
	if len(buf) != cfg.NParams {
		return nil, fmt.Errorf("%w: expected %d scalars, got %d", ErrParamLength, cfg.NParams, len(buf))
	}
	return &Params{cfg: cfg, buf: buf}, nil
}

// ConcatParams builds a parameter buffer from separate weight and bias
// slices, validating each length.
func ConcatParams(cfg Config, weights, biases []float32) (*Params, error) {
	if len(weights) != cfg.NWeights {
		return nil, fmt.Errorf("%w: expected %d weights, got %d", ErrParamLength, cfg.NWeights, len(weights))
	}
	if len(biases) != cfg.NBiases {
		return nil, fmt.Errorf("%w: expected %d biases, got %d", ErrParamLength, cfg.NBiases, len(biases))
	}
	buf := make([]float32, 0, cfg.NParams)
	buf = append(buf, weights...)
	buf = append(buf, biases...)
	return &Params{cfg: cfg, buf: buf}, nil
}

// NewZeroParams allocates an all-zero parameter buffer.
func NewZeroParams(cfg Config) *Params {
	return &Params{cfg: cfg, buf: make([]float32, cfg.NParams)}
}

// Config returns the size contract the buffer was validated against.
func (p *Params) Config() Config { return p.cfg }

// Raw returns the flat buffer: weights [0, NWeights), biases [NWeights,
// NParams). Treated as read-only by every executor.
func (p *Params) Raw() []float32 { return p.buf }

// Weight returns the coefficient applied to input channel in when producing
// output channel out.
func (p *Params) Weight(out, in int) float32 {
	return p.buf[out*p.cfg.InpDim+in]
}

// SetWeight writes one coefficient. Mutation must happen between steps,
// never concurrently with a kernel pass.
func (p *Params) SetWeight(out, in int, v float32) {
	p.buf[out*p.cfg.InpDim+in] = v
}

// Bias returns the bias for output channel out.
func (p *Params) Bias(out int) float32 {
	return p.buf[p.cfg.NWeights+out]
}

// SetBias writes one bias value.
func (p *Params) SetBias(out int, v float32) {
	p.buf[p.cfg.NWeights+out] = v
}

// InitRandom fills the buffer with draws from N(0, 0.2), the initialization
// used before any training pass. A nil src uses the default gonum source.
func (p *Params) InitRandom(src rand.Source) {
	dist := distuv.Normal{Mu: 0, Sigma: 0.2, Src: src}
	for i := range p.buf {
		p.buf[i] = float32(dist.Rand())
	}
}
