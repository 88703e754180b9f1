package gpu

import (
	"errors"
	"testing"

	"github.com/openfluke/enca/nca"
)

func requireGPU(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode: skipping GPU tests")
	}
	if !Available() {
		t.Skip("no WebGPU adapter available")
	}
}

// TestExecutorRejectsOversizedGrid: the dispatch ceiling holds even when a
// substrate is assembled through the interchange path.
func TestExecutorRejectsOversizedGrid(t *testing.T) {
	cfg := nca.DefaultConfig()
	if _, err := nca.NewSubstrate(cfg, 17, 53); !errors.Is(err, nca.ErrGridTooLarge) {
		t.Fatal("expected substrate construction to reject 901 cells")
	}
	// 900 cells builds a substrate fine; the executor accepts it only with a
	// working device, so just exercise the validation order here.
	s, err := nca.NewSubstrate(cfg, 30, 30)
	if err != nil {
		t.Fatal(err)
	}
	small, _ := nca.NewConfig(2, 1)
	if _, err := NewExecutor(nca.NewZeroParams(small), s, nca.ExecutorOptions{}); err == nil {
		t.Error("mismatched configs should be rejected before touching the device")
	}
}

// TestGPUBiasOnly mirrors the CPU bias-only property on the device.
func TestGPUBiasOnly(t *testing.T) {
	requireGPU(t)

	cfg := nca.DefaultConfig()
	p := nca.NewZeroParams(cfg)
	bias := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	for o, b := range bias {
		p.SetBias(o, b)
	}

	s, _ := nca.NewSubstrate(cfg, 3, 3)
	e, err := NewExecutor(p, s, nca.ExecutorOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Cleanup()

	if err := e.Step(1); err != nil {
		t.Fatal(err)
	}
	sub, err := e.Substrate()
	if err != nil {
		t.Fatal(err)
	}

	want := []float32{0.1, 0.2, 0.3, 0.4, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	cell := sub.Cell(1, 1)
	for i := range want {
		if diff := cell[i] - want[i]; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("channel %d: got %v, want %v", i, cell[i], want[i])
		}
	}
}

// TestGPUMatchesCPU verifies the kernel against the sequential reference
// across boundary policies and multiple steps.
func TestGPUMatchesCPU(t *testing.T) {
	requireGPU(t)

	cfg := nca.DefaultConfig()
	p := nca.NewZeroParams(cfg)
	p.InitRandom(nil)

	for _, policy := range []nca.BoundaryPolicy{nca.BoundaryZero, nca.BoundaryClamp, nca.BoundaryWrap} {
		s, err := nca.NewSubstrate(cfg, 8, 8)
		if err != nil {
			t.Fatal(err)
		}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				s.Visible(x, y)[0] = float32(x*8+y) / 64
			}
		}

		opts := nca.ExecutorOptions{Boundary: policy, Clamp01: true}
		if err := VerifyAgainstCPU(p, s, opts, 4, nca.DefaultTolerance); err != nil {
			t.Errorf("policy %v: %v", policy, err)
		}
	}
}

// TestGPUAliveMaskingMatchesCPU: the baked threshold branch must mask the
// same inputs the CPU gather masks.
func TestGPUAliveMaskingMatchesCPU(t *testing.T) {
	requireGPU(t)

	cfg := nca.DefaultConfig()
	p := nca.NewZeroParams(cfg)
	p.InitRandom(nil)

	s, err := nca.NewSubstrate(cfg, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	// Values straddling the threshold so masking actually changes outputs.
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			s.Visible(x, y)[0] = float32(x*8+y) / 64
		}
	}

	opts := nca.ExecutorOptions{AliveThreshold: 0.5, Clamp01: true}
	if err := VerifyAgainstCPU(p, s, opts, 4, nca.DefaultTolerance); err != nil {
		t.Errorf("alive masking: %v", err)
	}
}
