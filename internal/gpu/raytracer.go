//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// ErrInstanceFailed is wrapped by every error returned from a Raytracer
// that has entered StateFailed.
var ErrInstanceFailed = errors.New("wgpu: raytracer instance failed")

// fenceTimeout bounds the wait for one dispatch to complete.
const fenceTimeout = 5 * time.Second

// State is the lifecycle state of a Raytracer.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateDispatching
	StateReadingBack

	// StateFailed is terminal. The instance must be closed and replaced.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitializing:
		return "Initializing"
	case StateReady:
		return "Ready"
	case StateDispatching:
		return "Dispatching"
	case StateReadingBack:
		return "ReadingBack"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Raytracer renders jobs with the WGSL compute program on a wgpu/hal device.
//
// Lifecycle:
//
//	Uninitialized → Initializing → Ready → Dispatching → ReadingBack → Ready
//	                     ↓                      ↓             ↓
//	                   Failed ←─────────────────┴─────────────┘
//
// A Raytracer serializes its renders and is safe for concurrent use.
type Raytracer struct {
	mu sync.Mutex

	state   State
	failErr error

	instance       hal.Instance
	device         hal.Device
	queue          hal.Queue
	externalDevice bool // true when using a shared device (don't destroy on Close)
	adapterName    string

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	profiler *MemoryProfiler
}

// NewRaytracer creates an uninitialized Raytracer. A zero budget uses
// DefaultBudgetBytes.
func NewRaytracer(budgetBytes uint64) *Raytracer {
	return &Raytracer{profiler: NewMemoryProfiler(budgetBytes)}
}

// State returns the current lifecycle state.
func (r *Raytracer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// AdapterName returns the name of the selected adapter, or "" for a
// shared device.
func (r *Raytracer) AdapterName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.adapterName
}

// Open creates a Vulkan instance, selects an adapter (discrete, then
// integrated, else the first), opens a device and builds the pipeline.
func (r *Raytracer) Open() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.beginInitLocked("open"); err != nil || r.state == StateReady {
		return err
	}

	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return r.failInitLocked(raytrace.ErrGPUAdapterUnavailable, "backend",
			errors.New("vulkan backend not available"))
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return r.failInitLocked(raytrace.ErrGPUAdapterUnavailable, "create instance", err)
	}
	r.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return r.failInitLocked(raytrace.ErrGPUAdapterUnavailable, "enumerate adapters",
			errors.New("no GPU adapters found"))
	}
	selected := selectAdapter(adapters)

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return r.failInitLocked(raytrace.ErrGPUInitializationFailed, "open device", err)
	}
	r.device = openDev.Device
	r.queue = openDev.Queue
	r.adapterName = selected.Info.Name

	if err := r.createPipelineLocked(); err != nil {
		return r.failInitLocked(raytrace.ErrGPUInitializationFailed, "create pipeline", err)
	}
	r.state = StateReady
	slogger().Info("wgpu: raytracer initialized", "adapter", r.adapterName)
	return nil
}

// OpenWithDevice builds the pipeline on an externally owned device. Close
// does not destroy the device or queue.
func (r *Raytracer) OpenWithDevice(device hal.Device, queue hal.Queue) error {
	if device == nil || queue == nil {
		return raytrace.NewGPUError(raytrace.ErrGPUInitializationFailed, "open shared device",
			errors.New("nil device or queue"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.beginInitLocked("open shared device"); err != nil || r.state == StateReady {
		return err
	}
	r.device = device
	r.queue = queue
	r.externalDevice = true

	if err := r.createPipelineLocked(); err != nil {
		return r.failInitLocked(raytrace.ErrGPUInitializationFailed, "create pipeline", err)
	}
	r.state = StateReady
	slogger().Info("wgpu: raytracer initialized on shared device")
	return nil
}

// beginInitLocked moves Uninitialized to Initializing. It returns nil
// without a transition when already Ready. Caller must hold mu.
func (r *Raytracer) beginInitLocked(op string) error {
	switch r.state {
	case StateUninitialized:
		r.state = StateInitializing
		return nil
	case StateReady:
		return nil
	case StateFailed:
		return raytrace.NewGPUError(raytrace.ErrGPUInitializationFailed, op,
			fmt.Errorf("%w: %w", ErrInstanceFailed, r.failErr))
	default:
		return raytrace.NewGPUError(raytrace.ErrGPUInitializationFailed, op,
			fmt.Errorf("unexpected state %s", r.state))
	}
}

// failInitLocked releases partial resources and enters StateFailed.
// Caller must hold mu.
func (r *Raytracer) failInitLocked(kind error, op string, err error) error {
	r.releaseLocked()
	r.state = StateFailed
	r.failErr = err
	slogger().Warn("wgpu: raytracer init failed", "op", op, "err", err)
	return raytrace.NewGPUError(kind, op, err)
}

func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			return &adapters[i]
		}
	}
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return &adapters[i]
		}
	}
	return &adapters[0]
}

// createPipelineLocked compiles the WGSL program and builds the bind group
// layout (bindings 0..5), pipeline layout and compute pipeline.
func (r *Raytracer) createPipelineLocked() error {
	spirv, err := compileShaderToSPIRV(raytraceShaderSource)
	if err != nil {
		return err
	}
	shader, err := createShaderModule(r.device, "raytrace", spirv)
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	r.shader = shader

	uniform := &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
	readOnly := &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
	bindLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "raytrace_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: uniform},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: uniform},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: readOnly},
			{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: readOnly},
			{Binding: 4, Visibility: gputypes.ShaderStageCompute, Buffer: readOnly},
			{Binding: 5, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	r.bindLayout = bindLayout

	pipeLayout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "raytrace_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{r.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	pipeline, err := r.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "raytrace_pipeline", Layout: r.pipeLayout,
		Compute: hal.ComputeState{Module: r.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	r.pipeline = pipeline
	return nil
}

// =============================================================================
// Render
// =============================================================================

// renderBuffers are the per-render device buffers.
type renderBuffers struct {
	params, camera, spheres, planes, lights, output, staging hal.Buffer
}

// Render renders one complete pass of job on the device.
//
// Buffer creation or budget errors return ErrGPUBufferAllocationFailed and
// leave the Raytracer Ready. Encoding, submission, fence and readback
// errors return ErrGPUDispatchFailed and move it to StateFailed.
func (r *Raytracer) Render(job raytrace.Job) (*raytrace.PixelBuffer, error) {
	if err := job.Validate(); err != nil {
		return nil, raytrace.NewGPUError(raytrace.ErrFallbackToCPU, "validate", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateReady:
	case StateFailed:
		return nil, raytrace.NewGPUError(raytrace.ErrGPUDispatchFailed, "render",
			fmt.Errorf("%w: %w", ErrInstanceFailed, r.failErr))
	default:
		return nil, raytrace.NewGPUError(raytrace.ErrGPUInitializationFailed, "render",
			fmt.Errorf("raytracer not ready (state %s)", r.state))
	}

	plan := PlanBuffers(job)
	if err := r.profiler.Check(plan); err != nil {
		return nil, raytrace.NewGPUError(raytrace.ErrGPUBufferAllocationFailed, "plan", err)
	}
	r.profiler.Reset()

	var live []allocation
	defer func() { r.destroyBuffers(live) }()

	bufs, live, err := r.createBuffers(plan, live)
	if err != nil {
		return nil, raytrace.NewGPUError(raytrace.ErrGPUBufferAllocationFailed, "create buffers", err)
	}

	packed := PackJob(job)
	r.queue.WriteBuffer(bufs.params, 0, packed.Params.Marshal())
	r.queue.WriteBuffer(bufs.camera, 0, packed.Camera.Marshal())
	r.queue.WriteBuffer(bufs.spheres, 0, MarshalSpheres(packed.Spheres))
	r.queue.WriteBuffer(bufs.planes, 0, MarshalPlanes(packed.Planes))
	r.queue.WriteBuffer(bufs.lights, 0, MarshalLights(packed.Lights))

	bindGroup, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "raytrace_bind", Layout: r.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: bufs.params.NativeHandle(), Offset: 0, Size: plan.Params}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: bufs.camera.NativeHandle(), Offset: 0, Size: plan.Camera}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: bufs.spheres.NativeHandle(), Offset: 0, Size: plan.Spheres}},
			{Binding: 3, Resource: gputypes.BufferBinding{Buffer: bufs.planes.NativeHandle(), Offset: 0, Size: plan.Planes}},
			{Binding: 4, Resource: gputypes.BufferBinding{Buffer: bufs.lights.NativeHandle(), Offset: 0, Size: plan.Lights}},
			{Binding: 5, Resource: gputypes.BufferBinding{Buffer: bufs.output.NativeHandle(), Offset: 0, Size: plan.Output}},
		},
	})
	if err != nil {
		return nil, raytrace.NewGPUError(raytrace.ErrGPUBufferAllocationFailed, "create bind group", err)
	}
	defer r.device.DestroyBindGroup(bindGroup)

	w, h := packed.Params.Width, packed.Params.Height
	r.state = StateDispatching
	if err := r.dispatch(bindGroup, bufs, w, h, plan.Output); err != nil {
		return nil, r.failRenderLocked("dispatch", err)
	}

	r.state = StateReadingBack
	readback := make([]byte, plan.Staging)
	if err := r.queue.ReadBuffer(bufs.staging, 0, readback); err != nil {
		return nil, r.failRenderLocked("readback", err)
	}

	out := decodePixels(readback, job.Params.Width, job.Params.Height)
	r.state = StateReady
	return out, nil
}

// dispatch encodes the compute pass and the output→staging copy, submits
// and waits on the fence.
func (r *Raytracer) dispatch(bindGroup hal.BindGroup, bufs renderBuffers, w, h uint32, outputSize uint64) error {
	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "raytrace_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("raytrace"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	gx, gy, gz := dispatchSize(w, h)
	slogger().Debug("wgpu: dispatch", "width", w, "height", h, "groups_x", gx, "groups_y", gy)

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "raytrace_pass"})
	pass.SetPipeline(r.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(gx, gy, gz)
	pass.End()

	encoder.CopyBufferToBuffer(bufs.output, bufs.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: outputSize},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	fence, err := r.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer r.device.DestroyFence(fence)

	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := r.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !fenceOK {
		return fmt.Errorf("wait for GPU: timed out after %v", fenceTimeout)
	}
	return nil
}

// failRenderLocked enters StateFailed after a dispatch or readback error.
// Caller must hold mu.
func (r *Raytracer) failRenderLocked(op string, err error) error {
	r.state = StateFailed
	r.failErr = err
	slogger().Warn("wgpu: raytrace render failed", "op", op, "err", err)
	return raytrace.NewGPUError(raytrace.ErrGPUDispatchFailed, op, err)
}

// allocation is a live device buffer and its size.
type allocation struct {
	buf  hal.Buffer
	size uint64
}

// createBuffers creates the seven buffers of plan. Every created buffer is
// appended to live, also on error, so the caller can destroy them.
func (r *Raytracer) createBuffers(plan BufferPlan, live []allocation) (renderBuffers, []allocation, error) {
	var bufs renderBuffers
	specs := []struct {
		label string
		size  uint64
		usage gputypes.BufferUsage
		dst   *hal.Buffer
	}{
		{bufParams, plan.Params, gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst, &bufs.params},
		{bufCamera, plan.Camera, gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst, &bufs.camera},
		{bufSpheres, plan.Spheres, gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst, &bufs.spheres},
		{bufPlanes, plan.Planes, gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst, &bufs.planes},
		{bufLights, plan.Lights, gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst, &bufs.lights},
		{bufOutput, plan.Output, gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc, &bufs.output},
		{bufStaging, plan.Staging, gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst, &bufs.staging},
	}

	for _, s := range specs {
		buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "raytrace_" + s.label, Size: s.size, Usage: s.usage,
		})
		if err != nil {
			return bufs, live, fmt.Errorf("create %s buffer (%d bytes): %w", s.label, s.size, err)
		}
		*s.dst = buf
		live = append(live, allocation{buf: buf, size: s.size})
		r.profiler.Alloc(s.label, s.size)
		slogger().Debug("wgpu: buffer created", "label", s.label, "bytes", s.size)
	}
	return bufs, live, nil
}

func (r *Raytracer) destroyBuffers(live []allocation) {
	for _, a := range live {
		r.device.DestroyBuffer(a.buf)
		r.profiler.Free(a.size)
	}
}

// MemoryReport returns the buffers allocated by the last Render.
func (r *Raytracer) MemoryReport() raytrace.MemoryReport {
	return r.profiler.Report()
}

// Close releases the pipeline and, unless shared, the device and instance.
// A closed Raytracer returns to StateUninitialized unless it had failed.
func (r *Raytracer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked()
	if r.state != StateFailed {
		r.state = StateUninitialized
	}
}

// releaseLocked destroys everything the Raytracer owns. Caller must hold mu.
func (r *Raytracer) releaseLocked() {
	if r.device != nil {
		if r.pipeline != nil {
			r.device.DestroyComputePipeline(r.pipeline)
		}
		if r.pipeLayout != nil {
			r.device.DestroyPipelineLayout(r.pipeLayout)
		}
		if r.bindLayout != nil {
			r.device.DestroyBindGroupLayout(r.bindLayout)
		}
		if r.shader != nil {
			r.device.DestroyShaderModule(r.shader)
		}
	}
	r.pipeline, r.pipeLayout, r.bindLayout, r.shader = nil, nil, nil, nil

	if !r.externalDevice {
		if r.device != nil {
			r.device.Destroy()
		}
		if r.instance != nil {
			r.instance.Destroy()
		}
	}
	r.device, r.queue, r.instance = nil, nil, nil
	r.externalDevice = false
}
