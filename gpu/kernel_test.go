package gpu

import (
	"strings"
	"testing"

	"github.com/openfluke/enca/nca"
)

func specFor(w, h int, b nca.BoundaryPolicy) KernelSpec {
	return KernelSpec{Config: nca.DefaultConfig(), Width: w, Height: h, Boundary: b}
}

// TestGenerateShaderConstants: the WGSL bakes the exact size contract.
func TestGenerateShaderConstants(t *testing.T) {
	src := specFor(3, 3, nca.BoundaryZero).GenerateShader()

	for _, want := range []string{
		"const W : i32 = 3;",
		"const H : i32 = 3;",
		"const VIS_CHS : i32 = 4;",
		"const INP_CHS : i32 = 10;",
		"const OUT_CHS : i32 = 6;",
		"const INP_DIM : i32 = 50;",
		"const N_WEIGHTS : i32 = 300;",
		"array<f32, 50>",
		"@workgroup_size(64)",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("shader missing %q", want)
		}
	}
}

// TestGenerateShaderNeighborhood: the offset tables follow the fixed
// north, west, center, east, south order.
func TestGenerateShaderNeighborhood(t *testing.T) {
	src := specFor(3, 3, nca.BoundaryZero).GenerateShader()
	if !strings.Contains(src, "array<i32, 5>(0, -1, 0, 1, 0)") {
		t.Error("x offsets wrong or reordered")
	}
	if !strings.Contains(src, "array<i32, 5>(-1, 0, 0, 0, 1)") {
		t.Error("y offsets wrong or reordered")
	}
}

// TestGenerateShaderBoundary: each policy emits its own sampling code.
func TestGenerateShaderBoundary(t *testing.T) {
	zero := specFor(3, 3, nca.BoundaryZero).GenerateShader()
	if !strings.Contains(zero, "return -1;") {
		t.Error("zero policy should emit the out-of-grid sentinel")
	}

	clamp := specFor(3, 3, nca.BoundaryClamp).GenerateShader()
	if !strings.Contains(clamp, "clamp(nx, 0, W - 1)") {
		t.Error("clamp policy should emit coordinate clamping")
	}

	wrap := specFor(3, 3, nca.BoundaryWrap).GenerateShader()
	if !strings.Contains(wrap, "((nx % W) + W) % W") {
		t.Error("wrap policy should emit modular wrapping")
	}
}

// TestGenerateShaderClamp01 is only present when requested.
func TestGenerateShaderClamp01(t *testing.T) {
	spec := specFor(3, 3, nca.BoundaryZero)
	if strings.Contains(spec.GenerateShader(), "clamp(acc, 0.0, 1.0)") {
		t.Error("clamp01 emitted without being enabled")
	}
	spec.Clamp01 = true
	if !strings.Contains(spec.GenerateShader(), "clamp(acc, 0.0, 1.0)") {
		t.Error("clamp01 enabled but not emitted")
	}
}

// TestGenerateShaderAliveMasking: the threshold branch is baked into the
// gather only when masking is enabled, with the configured value.
func TestGenerateShaderAliveMasking(t *testing.T) {
	spec := specFor(3, 3, nca.BoundaryZero)
	if strings.Contains(spec.GenerateShader(), "v = 0.0;") {
		t.Error("masking emitted without being enabled")
	}
	spec.AliveThreshold = 0.5
	src := spec.GenerateShader()
	if !strings.Contains(src, "if (v < 0.5)") || !strings.Contains(src, "v = 0.0;") {
		t.Error("masking enabled but threshold branch not emitted")
	}
}

// TestWorkgroups covers the dispatch ceiling arithmetic.
func TestWorkgroups(t *testing.T) {
	cases := []struct {
		w, h int
		want uint32
	}{
		{3, 3, 1},
		{8, 8, 1},
		{9, 8, 2},
		{30, 30, 15}, // the full MaxGridSize grid
	}
	for _, tc := range cases {
		if got := specFor(tc.w, tc.h, nca.BoundaryZero).Workgroups(); got != tc.want {
			t.Errorf("%dx%d: got %d workgroups, want %d", tc.w, tc.h, got, tc.want)
		}
	}
}
