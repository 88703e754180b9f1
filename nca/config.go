// Package nca implements the compute core of a Neural Cellular Automaton:
// the channel layout, neighborhood topology, flat parameter buffer, grid
// substrate, and the per-cell affine update executed either sequentially or
// across a worker pool. The gpu package provides the WebGPU backend for the
// same update contract.
package nca

import "fmt"

// Fixed channel contract. Collaborators (trainer, renderer) validate their
// buffer shapes against these.
const (
	// VisChs is the number of visible channels (one RO or RW slice).
	VisChs = 4
	// HidChs is the number of hidden channels.
	HidChs = 2

	// InpChs is the per-cell state width as read: RO + RW + HID.
	InpChs = 2*VisChs + HidChs
	// OutChs is the per-cell update width as written: visible + hidden.
	OutChs = VisChs + HidChs

	// InpDim is the concatenated neighborhood input width.
	InpDim = NhbdLen * InpChs

	NWeights = OutChs * InpDim
	NBiases  = OutChs
	NParams  = NWeights + NBiases

	// MaxGridSize is the per-dispatch cell ceiling (30x30). A hardware
	// parallelism budget, not a mathematical limit: larger grids must be
	// partitioned into multiple dispatches by the caller.
	MaxGridSize = 30 * 30
)

// Config is the immutable channel/size contract shared by every component.
// The zero value is not usable; construct via NewConfig or DefaultConfig.
// All derived counts are computed once so producers and consumers agree on
// buffer shapes by construction.
type Config struct {
	VisChs int
	HidChs int

	InpChs   int
	OutChs   int
	InpDim   int
	NWeights int
	NBiases  int
	NParams  int
}

// NewConfig derives the full size contract from the two free channel counts.
func NewConfig(visChs, hidChs int) (Config, error) {
	if visChs < 0 || hidChs < 0 {
		return Config{}, fmt.Errorf("channel counts must be non-negative, got vis=%d hid=%d", visChs, hidChs)
	}
	c := Config{
		VisChs: visChs,
		HidChs: hidChs,
	}
	c.InpChs = 2*visChs + hidChs
	c.OutChs = visChs + hidChs
	c.InpDim = NhbdLen * c.InpChs
	c.NWeights = c.OutChs * c.InpDim
	c.NBiases = c.OutChs
	c.NParams = c.NWeights + c.NBiases
	return c, nil
}

// DefaultConfig returns the fixed contract matching the package constants.
func DefaultConfig() Config {
	c, _ := NewConfig(VisChs, HidChs)
	return c
}

// RO returns the read-only visible slice of a cell's state vector: the
// visible state as observed by neighbors this step.
func (c Config) RO(cell []float32) []float32 {
	c.checkCell(cell)
	return cell[0:c.VisChs:c.VisChs]
}

// RW returns the read-write visible slice: written during this step, never
// read by neighbors (they read RO).
func (c Config) RW(cell []float32) []float32 {
	c.checkCell(cell)
	return cell[c.VisChs : 2*c.VisChs : 2*c.VisChs]
}

// Hidden returns the hidden channel slice.
func (c Config) Hidden(cell []float32) []float32 {
	c.checkCell(cell)
	return cell[2*c.VisChs : c.InpChs : c.InpChs]
}

// VisibleOut returns the visible portion of an update output vector. These
// values become the next step's RO/RW pair.
func (c Config) VisibleOut(out []float32) []float32 {
	c.checkOut(out)
	return out[0:c.VisChs:c.VisChs]
}

// HiddenOut returns the hidden portion of an update output vector.
func (c Config) HiddenOut(out []float32) []float32 {
	c.checkOut(out)
	return out[c.VisChs : c.OutChs : c.OutChs]
}

func (c Config) checkCell(cell []float32) {
	if len(cell) != c.InpChs {
		panic(fmt.Sprintf("cell vector has %d channels, layout expects %d", len(cell), c.InpChs))
	}
}

func (c Config) checkOut(out []float32) {
	if len(out) != c.OutChs {
		panic(fmt.Sprintf("output vector has %d channels, layout expects %d", len(out), c.OutChs))
	}
}
