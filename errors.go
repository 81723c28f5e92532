package raytrace

import (
	"errors"
	"fmt"
)

// Error kinds. GPU kinds are always recoverable by falling back to the CPU
// renderer; Renderer never returns them to the caller.
var (
	// ErrGeometryDegenerate names caller-side degenerate input (zero-radius
	// spheres, forward parallel to up). It is documented but not checked on
	// the hot path: degenerate rays simply miss.
	ErrGeometryDegenerate = errors.New("raytrace: degenerate geometry")

	// ErrGPUAdapterUnavailable is returned when no GPU backend or adapter exists.
	ErrGPUAdapterUnavailable = errors.New("raytrace: no GPU adapter available")

	// ErrGPUInitializationFailed is returned when device or pipeline setup fails.
	ErrGPUInitializationFailed = errors.New("raytrace: GPU initialization failed")

	// ErrGPUBufferAllocationFailed is returned when a device buffer cannot be
	// created or the request exceeds the memory budget.
	ErrGPUBufferAllocationFailed = errors.New("raytrace: GPU buffer allocation failed")

	// ErrGPUDispatchFailed is returned when encoding, submission, the fence
	// wait or readback fails.
	ErrGPUDispatchFailed = errors.New("raytrace: GPU dispatch failed")

	// ErrFallbackToCPU indicates the accelerator declined the job.
	ErrFallbackToCPU = errors.New("raytrace: falling back to CPU rendering")

	// ErrRendererClosed is returned by Render on a closed renderer.
	ErrRendererClosed = errors.New("raytrace: renderer closed")

	// ErrInvalidParams is returned for out-of-range RenderParams or a nil scene.
	ErrInvalidParams = errors.New("raytrace: invalid render parameters")
)

// GPUError records a failed GPU operation.
// Kind is one of the ErrGPU* sentinels; Err is the underlying cause.
type GPUError struct {
	Kind error
	Op   string
	Err  error
}

func (e *GPUError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *GPUError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewGPUError wraps err as a GPU failure of the given kind.
func NewGPUError(kind error, op string, err error) *GPUError {
	return &GPUError{Kind: kind, Op: op, Err: err}
}

// IsGPUError reports whether err is any of the recoverable GPU kinds.
func IsGPUError(err error) bool {
	return errors.Is(err, ErrGPUAdapterUnavailable) ||
		errors.Is(err, ErrGPUInitializationFailed) ||
		errors.Is(err, ErrGPUBufferAllocationFailed) ||
		errors.Is(err, ErrGPUDispatchFailed) ||
		errors.Is(err, ErrFallbackToCPU)
}
