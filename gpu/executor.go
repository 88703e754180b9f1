package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/enca/nca"
)

// Executor runs the update kernel on the GPU. The committed state and the
// step's output live in separate storage buffers: every invocation reads the
// state buffer and writes the next buffer, then the encoder copies next back
// over state. That copy is the full-grid step barrier.
type Executor struct {
	Spec KernelSpec

	pipeline        *wgpu.ComputePipeline
	bindGroupLayout *wgpu.BindGroupLayout
	bindGroup       *wgpu.BindGroup

	StateBuffer   *wgpu.Buffer
	NextBuffer    *wgpu.Buffer
	ParamBuffer   *wgpu.Buffer
	StagingBuffer *wgpu.Buffer

	workgroupsX uint32
	stateLen    int
	steps       int
}

// NewExecutor compiles the kernel for the substrate's dimensions and uploads
// the initial state and parameters. The parameter buffer stays read-only for
// the lifetime of the executor. Grid and parameter shapes were validated
// when the nca values were constructed; the dispatch ceiling is re-checked
// here because this is the last point before GPU work is scheduled.
func NewExecutor(params *nca.Params, sub *nca.Substrate, opts nca.ExecutorOptions) (*Executor, error) {
	if cells := sub.Cells(); cells > nca.MaxGridSize {
		return nil, fmt.Errorf("%w: %d cells, max %d", nca.ErrGridTooLarge, cells, nca.MaxGridSize)
	}
	if params.Config() != sub.Config() {
		return nil, fmt.Errorf("params configured for %d channels, substrate for %d",
			params.Config().InpChs, sub.Config().InpChs)
	}

	c, err := GetContext()
	if err != nil {
		return nil, err
	}

	e := &Executor{
		Spec: KernelSpec{
			Config:         sub.Config(),
			Width:          sub.Width(),
			Height:         sub.Height(),
			Boundary:       opts.Boundary,
			Clamp01:        opts.Clamp01,
			AliveThreshold: opts.AliveThreshold,
		},
		stateLen: len(sub.Data()),
	}
	e.workgroupsX = e.Spec.Workgroups()

	if err := e.allocate(c, params, sub); err != nil {
		e.Cleanup()
		return nil, err
	}
	if e.pipeline, e.bindGroupLayout, err = e.Spec.compile(c, "NCA"); err != nil {
		e.Cleanup()
		return nil, err
	}
	if err := e.createBindGroup(c); err != nil {
		e.Cleanup()
		return nil, err
	}
	return e, nil
}

func (e *Executor) allocate(c *Context, params *nca.Params, sub *nca.Substrate) error {
	var err error
	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc

	if e.StateBuffer, err = NewFloatBuffer(sub.Data(), storage); err != nil {
		return fmt.Errorf("state buf: %v", err)
	}
	e.NextBuffer, err = c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "NCA_Next",
		Size:  uint64(e.stateLen * 4),
		Usage: storage,
	})
	if err != nil {
		return fmt.Errorf("next buf: %v", err)
	}
	if e.ParamBuffer, err = NewFloatBuffer(params.Raw(), wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
		return fmt.Errorf("param buf: %v", err)
	}
	e.StagingBuffer, err = c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "NCA_Staging",
		Size:  uint64(e.stateLen * 4),
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("staging buf: %v", err)
	}
	return nil
}

func (e *Executor) createBindGroup(c *Context) error {
	var err error
	e.bindGroup, err = c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "NCA_Bind",
		Layout: e.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: e.StateBuffer, Size: e.StateBuffer.GetSize()},
			{Binding: 1, Buffer: e.NextBuffer, Size: e.NextBuffer.GetSize()},
			{Binding: 2, Buffer: e.ParamBuffer, Size: e.ParamBuffer.GetSize()},
		},
	})
	return err
}

// Steps returns how many full steps have completed.
func (e *Executor) Steps() int { return e.steps }

// Step advances the grid by n updates in a single submission. Each update
// dispatches the kernel then copies the next buffer over the state buffer,
// so update i+1 observes exactly update i's committed state.
func (e *Executor) Step(n int) error {
	if n <= 0 {
		return nil
	}
	c, err := GetContext()
	if err != nil {
		return err
	}

	enc, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	Log("dispatching %d step(s), %d workgroups", n, e.workgroupsX)
	for i := 0; i < n; i++ {
		pass := enc.BeginComputePass(nil)
		pass.SetPipeline(e.pipeline)
		pass.SetBindGroup(0, e.bindGroup, nil)
		pass.DispatchWorkgroups(e.workgroupsX, 1, 1)
		pass.End()
		enc.CopyBufferToBuffer(e.NextBuffer, 0, e.StateBuffer, 0, e.StateBuffer.GetSize())
	}
	enc.CopyBufferToBuffer(e.StateBuffer, 0, e.StagingBuffer, 0, e.StateBuffer.GetSize())

	cmd, err := enc.Finish(nil)
	if err != nil {
		return err
	}
	c.Queue.Submit(cmd)
	e.steps += n
	return nil
}

// ReadState downloads the committed state as a flat buffer in the external
// interchange layout. After a Step the staging buffer already holds the
// state, so the extra device round trip is only needed before the first
// dispatch.
func (e *Executor) ReadState() ([]float32, error) {
	if e.steps == 0 {
		return ReadBuffer(e.StateBuffer, e.stateLen)
	}
	return readStaging(e.StagingBuffer, e.stateLen)
}

func readStaging(buf *wgpu.Buffer, size int) ([]float32, error) {
	c, err := GetContext()
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	var mapErr error
	err = buf.MapAsync(wgpu.MapModeRead, 0, buf.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("map failed: %v", status)
		}
		close(done)
	})
	if err != nil {
		return nil, fmt.Errorf("MapAsync failed: %v", err)
	}

Loop:
	for {
		c.Device.Poll(true, nil)
		select {
		case <-done:
			break Loop
		default:
		}
	}
	if mapErr != nil {
		return nil, mapErr
	}

	data := buf.GetMappedRange(0, uint(buf.GetSize()))
	defer buf.Unmap()
	if data == nil {
		return nil, fmt.Errorf("mapped range nil")
	}
	out := make([]float32, size)
	copy(out, wgpu.FromBytes[float32](data))
	return out, nil
}

// Substrate downloads the committed state into a fresh substrate.
func (e *Executor) Substrate() (*nca.Substrate, error) {
	data, err := e.ReadState()
	if err != nil {
		return nil, err
	}
	return nca.SubstrateFromData(e.Spec.Config, e.Spec.Width, e.Spec.Height, data)
}

// Cleanup releases all GPU resources.
func (e *Executor) Cleanup() {
	if e.StateBuffer != nil {
		e.StateBuffer.Destroy()
	}
	if e.NextBuffer != nil {
		e.NextBuffer.Destroy()
	}
	if e.ParamBuffer != nil {
		e.ParamBuffer.Destroy()
	}
	if e.StagingBuffer != nil {
		e.StagingBuffer.Destroy()
	}
	if e.pipeline != nil {
		e.pipeline.Release()
	}
	if e.bindGroup != nil {
		e.bindGroup.Release()
	}
}

// VerifyAgainstCPU runs n steps on both this executor and the sequential
// reference from the same initial substrate and compares the committed
// states within tol. Divergence past tolerance is a kernel bug.
func VerifyAgainstCPU(params *nca.Params, sub *nca.Substrate, opts nca.ExecutorOptions, n int, tol float64) error {
	ref, err := nca.NewExecutor(params, sub.Clone(), opts)
	if err != nil {
		return err
	}
	ref.Run(n)

	e, err := NewExecutor(params, sub, opts)
	if err != nil {
		return err
	}
	defer e.Cleanup()
	if err := e.Step(n); err != nil {
		return err
	}
	got, err := e.ReadState()
	if err != nil {
		return err
	}
	return nca.CompareStates(got, ref.Substrate().Data(), tol)
}
