package nca

import "fmt"

// Substrate is the lattice the automaton operates on: one InpChs-wide channel
// vector per cell, cell-major, row by row. The RO slice of each cell holds
// the previous step's committed visible state; RW and HID are written during
// the current step.
type Substrate struct {
	cfg    Config
	data   []float32
	width  int
	height int
}

// NewSubstrate allocates a zeroed substrate, rejecting grids whose cell
// count exceeds MaxGridSize before any compute can be dispatched over them.
func NewSubstrate(cfg Config, width, height int) (*Substrate, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("substrate dimensions must be positive, got %dx%d", width, height)
	}
	if width*height > MaxGridSize {
		return nil, fmt.Errorf("%w: %dx%d = %d cells, max %d", ErrGridTooLarge, width, height, width*height, MaxGridSize)
	}
	return &Substrate{
		cfg:    cfg,
		data:   make([]float32, width*height*cfg.InpChs),
		width:  width,
		height: height,
	}, nil
}

// SubstrateFromData wraps an existing flat state buffer, validating both the
// grid bound and the buffer length against the channel contract.
func SubstrateFromData(cfg Config, width, height int, data []float32) (*Substrate, error) {
	s, err := NewSubstrate(cfg, width, height)
	if err != nil {
		return nil, err
	}
	if len(data) != len(s.data) {
		return nil, fmt.Errorf("state buffer length %d, expected %d (%dx%d cells x %d channels)",
			len(data), len(s.data), width, height, cfg.InpChs)
	}
	s.data = data
	return s, nil
}

func (s *Substrate) Width() int     { return s.width }
func (s *Substrate) Height() int    { return s.height }
func (s *Substrate) Cells() int     { return s.width * s.height }
func (s *Substrate) Config() Config { return s.cfg }

// Data returns the flat state buffer in the external interchange layout:
// per-cell RO+RW+HID vectors, cell-major.
func (s *Substrate) Data() []float32 { return s.data }

// Cell returns the full channel vector of the cell at (x, y).
func (s *Substrate) Cell(x, y int) []float32 {
	s.check(x, y)
	base := (y*s.width + x) * s.cfg.InpChs
	return s.data[base : base+s.cfg.InpChs : base+s.cfg.InpChs]
}

// Visible returns the committed (RO) visible channels of the cell at (x, y).
func (s *Substrate) Visible(x, y int) []float32 {
	return s.cfg.RO(s.Cell(x, y))
}

// Hidden returns the hidden channels of the cell at (x, y).
func (s *Substrate) Hidden(x, y int) []float32 {
	return s.cfg.Hidden(s.Cell(x, y))
}

// Clone deep-copies the substrate.
func (s *Substrate) Clone() *Substrate {
	data := make([]float32, len(s.data))
	copy(data, s.data)
	return &Substrate{cfg: s.cfg, data: data, width: s.width, height: s.height}
}

// Commit promotes every cell's RW slice into its RO slice: the step barrier
// after which neighbors observe the newly written visible state. Executors
// call this once all cells of a step have been written, never mid-step.
func (s *Substrate) Commit() {
	for base := 0; base < len(s.data); base += s.cfg.InpChs {
		cell := s.data[base : base+s.cfg.InpChs]
		copy(s.cfg.RO(cell), s.cfg.RW(cell))
	}
}

// ApplyOutput writes one cell's update output: the visible portion becomes
// both the RO and RW slices (committed next-state), the hidden portion
// replaces HID.
func (s *Substrate) ApplyOutput(x, y int, out []float32) {
	cell := s.Cell(x, y)
	vis := s.cfg.VisibleOut(out)
	copy(s.cfg.RO(cell), vis)
	copy(s.cfg.RW(cell), vis)
	copy(s.cfg.Hidden(cell), s.cfg.HiddenOut(out))
}

func (s *Substrate) check(x, y int) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		panic(fmt.Sprintf("cell (%d,%d) outside %dx%d substrate", x, y, s.width, s.height))
	}
}
