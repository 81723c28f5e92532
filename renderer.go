package raytrace

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Frame is the output of one completed render pass.
type Frame struct {
	Buffer *PixelBuffer

	// Pass is the 1-based pass number and Passes the planned total.
	// Both are 1 for a non-adaptive render.
	Pass   int
	Passes int

	// Samples is the per-pixel sample count of this pass.
	Samples int

	// Backend is the backend that actually produced Buffer.
	Backend Backend

	// Memory is the device footprint; nil for CPU frames.
	Memory *MemoryReport

	// FallbackErr is the GPU failure that caused this frame to be rendered
	// on the CPU, or the earlier failure that disabled the GPU.
	FallbackErr error

	Elapsed time.Duration
}

type gpuState int

const (
	gpuUntried gpuState = iota
	gpuActive
	gpuDisabled
)

// Renderer selects a backend and renders frames, falling back from GPU to
// CPU on any GPU failure. The fallback is one-directional: once the GPU has
// failed, the Renderer stays on the CPU.
//
// A Renderer serializes its passes and is safe for concurrent use.
type Renderer struct {
	cfg Config
	cpu *SoftwareRenderer

	mu          sync.Mutex
	closed      bool
	state       gpuState
	accel       GPUAccelerator
	fallbackErr error
}

// NewRenderer creates a Renderer. The GPU accelerator, if requested, is
// constructed lazily on the first render.
func NewRenderer(opts ...Option) *Renderer {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Renderer{
		cfg: cfg,
		cpu: NewSoftwareRenderer(cfg.Workers),
	}
}

// Config returns the Renderer configuration.
func (r *Renderer) Config() Config {
	return r.cfg
}

// ActiveBackend returns the backend the next frame will be rendered with,
// as far as is known without attempting GPU initialization.
func (r *Renderer) ActiveBackend() Backend {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg.Backend == BackendGPU && r.state != gpuDisabled {
		return BackendGPU
	}
	return BackendCPU
}

// FallbackErr returns the GPU failure that disabled the GPU backend, if any.
func (r *Renderer) FallbackErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fallbackErr
}

// Close releases the accelerator and the CPU worker pool. Later renders
// return ErrRendererClosed. Close is safe to call multiple times.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.accel != nil {
		untrackAccelerator(r)
		r.accel.Close()
		r.accel = nil
	}
	r.cpu.Close()
}

// Render renders job once at job.Params.Samples.
func (r *Renderer) Render(ctx context.Context, job Job) (*Frame, error) {
	f, err := r.renderPass(ctx, job)
	if err != nil {
		return nil, err
	}
	f.Pass, f.Passes = 1, 1
	return f, nil
}

// Run renders job according to the configuration: progressively when
// Config.Adaptive is set, otherwise as a single pass. emit receives every
// completed frame; it may be nil.
func (r *Renderer) Run(ctx context.Context, job Job, emit func(*Frame) error) (*Frame, error) {
	if r.cfg.Adaptive {
		return r.RenderProgressive(ctx, job, emit)
	}
	f, err := r.Render(ctx, job)
	if err != nil {
		return nil, err
	}
	if emit != nil {
		if err := emit(f); err != nil {
			return f, err
		}
	}
	return f, nil
}

func (r *Renderer) renderPass(ctx context.Context, job Job) (*Frame, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRendererClosed
	}

	start := time.Now()
	frame := &Frame{Samples: job.Params.Samples}

	if accel := r.acquireGPULocked(); accel != nil {
		buf, err := accel.Render(job)
		if err == nil {
			mem := accel.MemoryReport()
			frame.Buffer = buf
			frame.Backend = BackendGPU
			frame.Memory = &mem
			frame.Elapsed = time.Since(start)
			Logger().Debug("gpu pass complete",
				"samples", frame.Samples, "elapsed", frame.Elapsed, "peak_bytes", mem.PeakBytes)
			return frame, nil
		}
		r.disableGPULocked("render", err)
	}
	frame.FallbackErr = r.fallbackErr

	buf, err := r.cpu.Render(ctx, job)
	if err != nil {
		return nil, err
	}
	frame.Buffer = buf
	frame.Backend = BackendCPU
	frame.Elapsed = time.Since(start)
	return frame, nil
}

// acquireGPULocked returns the ready accelerator, constructing it on first
// use. It returns nil when the CPU backend is requested or the GPU has been
// disabled. Caller must hold mu.
func (r *Renderer) acquireGPULocked() GPUAccelerator {
	if r.cfg.Backend != BackendGPU {
		return nil
	}
	switch r.state {
	case gpuActive:
		return r.accel
	case gpuDisabled:
		return nil
	}

	name, factory := RegisteredAccelerator()
	if r.cfg.accelerator != nil {
		name, factory = "injected", r.cfg.accelerator
	}
	if factory == nil {
		r.disableGPULocked("lookup", NewGPUError(ErrGPUAdapterUnavailable, "lookup",
			errors.New("no GPU accelerator registered")))
		return nil
	}

	accel := factory()
	if accel == nil {
		r.disableGPULocked("construct", NewGPUError(ErrGPUInitializationFailed, "construct",
			errors.New("accelerator factory returned nil")))
		return nil
	}
	propagateLogger(accel, Logger())
	r.accel = accel

	if err := accel.Init(); err != nil {
		r.disableGPULocked("init", err)
		return nil
	}

	r.state = gpuActive
	trackAccelerator(r, accel)
	Logger().Info("gpu backend ready", "accelerator", name, "impl", accel.Name())
	return accel
}

// disableGPULocked records a GPU failure, releases the accelerator and
// switches this Renderer to the CPU for good. Caller must hold mu.
func (r *Renderer) disableGPULocked(op string, err error) {
	if !IsGPUError(err) {
		kind := ErrGPUDispatchFailed
		if op == "init" {
			kind = ErrGPUInitializationFailed
		}
		err = NewGPUError(kind, op, err)
	}
	r.fallbackErr = err
	r.state = gpuDisabled
	if r.accel != nil {
		untrackAccelerator(r)
		r.accel.Close()
		r.accel = nil
	}
	Logger().Warn("gpu backend failed, falling back to CPU", "op", op, "err", err)
}
