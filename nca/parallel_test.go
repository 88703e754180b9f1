package nca

import "testing"

// TestParallelMatchesSequential runs both executors from the same initial
// state with random parameters; their committed states must agree within
// tolerance after several steps.
func TestParallelMatchesSequential(t *testing.T) {
	cfg := DefaultConfig()
	p := NewZeroParams(cfg)
	p.InitRandom(nil)

	s, err := NewSubstrate(cfg, 30, 30)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < s.Height(); y++ {
		for x := 0; x < s.Width(); x++ {
			vis := s.Visible(x, y)
			vis[0] = float32(x) / 30
			vis[1] = float32(y) / 30
		}
	}

	seq, err := NewExecutor(p, s.Clone(), ExecutorOptions{Clamp01: true})
	if err != nil {
		t.Fatal(err)
	}
	par, err := NewParallelExecutor(p, s, ExecutorOptions{Clamp01: true})
	if err != nil {
		t.Fatal(err)
	}

	const steps = 3
	seq.Run(steps)
	par.Run(steps)

	if err := CompareStates(par.Substrate().Data(), seq.Substrate().Data(), DefaultTolerance); err != nil {
		t.Errorf("parallel diverged from sequential: %v", err)
	}
	if par.Steps() != steps {
		t.Errorf("Steps() = %d, want %d", par.Steps(), steps)
	}
}

// TestParallelSmallGrid exercises the single-threaded fallback below the
// fan-out threshold.
func TestParallelSmallGrid(t *testing.T) {
	cfg := DefaultConfig()
	p := NewZeroParams(cfg)
	p.SetBias(0, 0.5)

	s, _ := NewSubstrate(cfg, 2, 2)
	par, err := NewParallelExecutor(p, s, ExecutorOptions{})
	if err != nil {
		t.Fatal(err)
	}
	par.Step()

	if got := par.Substrate().Visible(0, 0)[0]; got != 0.5 {
		t.Errorf("visible ch0: got %v, want 0.5", got)
	}
}
