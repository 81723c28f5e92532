package raytrace

import (
	"errors"
	"sync"
)

// GPUAccelerator is an optional GPU rendering backend.
//
// Implementations are provided by GPU backend packages and registered via
// blank import:
//
//	import _ "github.com/gogpu/raytrace/gpu" // enables the wgpu backend
//
// An accelerator instance is single-use after failure: once Init or Render
// has failed, the Renderer closes it and continues on the CPU.
type GPUAccelerator interface {
	// Name returns the accelerator name (e.g., "wgpu").
	Name() string

	// Init acquires the device and builds the compute pipeline.
	Init() error

	// Render renders one complete pass. Errors are GPU kinds
	// (see IsGPUError) and are recovered by CPU fallback.
	Render(job Job) (*PixelBuffer, error)

	// MemoryReport returns the device buffer footprint of the last Render.
	MemoryReport() MemoryReport

	// Close releases device resources.
	Close()
}

// AcceleratorFactory constructs a fresh, uninitialized accelerator.
type AcceleratorFactory func() GPUAccelerator

var (
	accelMu      sync.RWMutex
	accelName    string
	accelFactory AcceleratorFactory
)

// RegisterAccelerator registers the factory used when a Renderer is asked
// for the GPU backend. Only one factory can be registered; subsequent calls
// replace the previous one.
//
// Typical usage in GPU backend packages:
//
//	func init() {
//	    raytrace.RegisterAccelerator("wgpu", func() raytrace.GPUAccelerator {
//	        return gpuimpl.NewAccelerator()
//	    })
//	}
func RegisterAccelerator(name string, factory AcceleratorFactory) error {
	if factory == nil {
		return errors.New("raytrace: accelerator factory must not be nil")
	}
	accelMu.Lock()
	accelName = name
	accelFactory = factory
	accelMu.Unlock()
	return nil
}

// RegisteredAccelerator returns the registered factory and its name, or a
// nil factory if none was registered.
func RegisteredAccelerator() (string, AcceleratorFactory) {
	accelMu.RLock()
	defer accelMu.RUnlock()
	return accelName, accelFactory
}

// Accelerators in use by open Renderers, kept so SetLogger can reach them.
var (
	liveMu     sync.Mutex
	liveAccels = make(map[*Renderer]GPUAccelerator)
)

func trackAccelerator(r *Renderer, a GPUAccelerator) {
	liveMu.Lock()
	liveAccels[r] = a
	liveMu.Unlock()
}

func untrackAccelerator(r *Renderer) {
	liveMu.Lock()
	delete(liveAccels, r)
	liveMu.Unlock()
}

// liveAccelerators returns a snapshot of the accelerators in use.
func liveAccelerators() []GPUAccelerator {
	liveMu.Lock()
	defer liveMu.Unlock()
	out := make([]GPUAccelerator, 0, len(liveAccels))
	for _, a := range liveAccels {
		out = append(out, a)
	}
	return out
}
