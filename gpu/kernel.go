package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/enca/nca"
)

// workgroupSize is the invocation count per workgroup. Grids are capped at
// nca.MaxGridSize cells, so a dispatch is at most ceil(900/64) groups.
const workgroupSize = 64

// KernelSpec fixes everything the generated shader bakes in: the channel
// contract, the grid dimensions, and the executor-level policies. One spec
// compiles to one pipeline; changing the grid size means a new pipeline.
type KernelSpec struct {
	Config         nca.Config
	Width          int
	Height         int
	Boundary       nca.BoundaryPolicy
	Clamp01        bool
	AliveThreshold float32
}

// GenerateShader emits the WGSL update kernel for this spec. One invocation
// per cell: gather the 5-neighborhood's channel vectors from the committed
// state buffer, apply the dense affine transform, and write the cell's
// next-state vector (visible outputs landing in both the RO and RW slices).
func (k KernelSpec) GenerateShader() string {
	cfg := k.Config

	var boundary string
	switch k.Boundary {
	case nca.BoundaryClamp:
		boundary = `let cx = clamp(nx, 0, W - 1);
	let cy = clamp(ny, 0, H - 1);
	return (cy * W + cx) * INP_CHS;`
	case nca.BoundaryWrap:
		boundary = `let wx = ((nx % W) + W) % W;
	let wy = ((ny % H) + H) % H;
	return (wy * W + wx) * INP_CHS;`
	default: // zero: out-of-grid samples contribute a zero vector
		boundary = `if (nx < 0 || nx >= W || ny < 0 || ny >= H) {
		return -1;
	}
	return (ny * W + nx) * INP_CHS;`
	}

	clampStmt := ""
	if k.Clamp01 {
		clampStmt = "acc = clamp(acc, 0.0, 1.0);"
	}

	// Alive masking zeroes sampled inputs below the threshold, matching the
	// CPU executor's gather.
	maskStmt := ""
	if k.AliveThreshold > 0 {
		maskStmt = fmt.Sprintf(`if (v < %g) {
					v = 0.0;
				}`, k.AliveThreshold)
	}

	return fmt.Sprintf(`
const W : i32 = %d;
const H : i32 = %d;
const VIS_CHS : i32 = %d;
const INP_CHS : i32 = %d;
const OUT_CHS : i32 = %d;
const INP_DIM : i32 = %d;
const N_WEIGHTS : i32 = %d;

var<private> off_x : array<i32, 5> = array<i32, 5>(0, -1, 0, 1, 0);
var<private> off_y : array<i32, 5> = array<i32, 5>(-1, 0, 0, 0, 1);

@group(0) @binding(0) var<storage, read> state : array<f32>;
@group(0) @binding(1) var<storage, read_write> next : array<f32>;
@group(0) @binding(2) var<storage, read> params : array<f32>;

fn sample_base(nx: i32, ny: i32) -> i32 {
	%s
}

@compute @workgroup_size(%d)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
	let cell = i32(gid.x);
	if (cell >= W * H) {
		return;
	}
	let x = cell %% W;
	let y = cell / W;

	var input : array<f32, %d>;
	for (var n: i32 = 0; n < 5; n++) {
		let base = sample_base(x + off_x[n], y + off_y[n]);
		for (var c: i32 = 0; c < INP_CHS; c++) {
			if (base < 0) {
				input[n * INP_CHS + c] = 0.0;
			} else {
				var v = state[base + c];
				%s
				input[n * INP_CHS + c] = v;
			}
		}
	}

	let out_base = cell * INP_CHS;
	for (var o: i32 = 0; o < OUT_CHS; o++) {
		var acc : f32 = params[N_WEIGHTS + o];
		let row = o * INP_DIM;
		for (var i: i32 = 0; i < INP_DIM; i++) {
			acc += params[row + i] * input[i];
		}
		%s
		// Visible outputs become the next RO/RW pair; hidden outputs land
		// at VIS_CHS + o which is the HID slice for o >= VIS_CHS.
		next[out_base + VIS_CHS + o] = acc;
		if (o < VIS_CHS) {
			next[out_base + o] = acc;
		}
	}
}
`, k.Width, k.Height, cfg.VisChs, cfg.InpChs, cfg.OutChs, cfg.InpDim, cfg.NWeights,
		boundary, workgroupSize, cfg.InpDim, maskStmt, clampStmt)
}

// Workgroups returns the dispatch width for this spec's grid.
func (k KernelSpec) Workgroups() uint32 {
	cells := uint32(k.Width * k.Height)
	return (cells + workgroupSize - 1) / workgroupSize
}

func (k KernelSpec) compile(c *Context, label string) (*wgpu.ComputePipeline, *wgpu.BindGroupLayout, error) {
	module, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label + "_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: k.GenerateShader()},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("shader compile: %v", err)
	}
	defer module.Release()

	// Explicit layout; "auto" misbehaves under WASM.
	bgl, err := c.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: label + "_BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}}, // state
			{Binding: 1, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}},         // next
			{Binding: 2, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}}, // params
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create bgl: %v", err)
	}

	layout, err := c.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + "_Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create pipeline layout: %v", err)
	}

	pipeline, err := c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label + "_Pipe",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline create: %v", err)
	}
	return pipeline, bgl, nil
}
