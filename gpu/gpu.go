//go:build !nogpu

// Package gpu registers the wgpu compute accelerator for raytrace.
//
// Import this package to let a Renderer configured with BackendGPU run the
// ray tracer as a WGSL compute program through wgpu/hal (Vulkan). If the
// GPU cannot be initialized the Renderer logs a warning and renders on the
// CPU.
//
// Usage:
//
//	import _ "github.com/gogpu/raytrace/gpu" // enable GPU rendering
package gpu

import (
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/raytrace"
	gpuimpl "github.com/gogpu/raytrace/internal/gpu"
)

// Name is the registered accelerator name.
const Name = "wgpu"

var (
	providerMu sync.RWMutex
	provider   gpucontext.DeviceProvider
)

func init() {
	if err := raytrace.RegisterAccelerator(Name, newAccelerator); err != nil {
		raytrace.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

func newAccelerator() raytrace.GPUAccelerator {
	a := gpuimpl.NewAccelerator()

	providerMu.RLock()
	p := provider
	providerMu.RUnlock()

	if p != nil {
		if err := a.SetDeviceProvider(p); err != nil {
			raytrace.Logger().Warn("shared GPU device rejected, opening own device", "err", err)
		}
	}
	return a
}

// SetDeviceProvider makes accelerators created after this call use a shared
// GPU device from an external provider (e.g., gogpu) instead of opening
// their own. The provider must also implement HalDevice() any and
// HalQueue() any for direct HAL access. Pass nil to go back to a private
// device.
//
// Renderers that already initialized the GPU keep their current device.
func SetDeviceProvider(p gpucontext.DeviceProvider) error {
	if p != nil {
		if err := gpuimpl.CheckDeviceProvider(p); err != nil {
			return err
		}
	}
	providerMu.Lock()
	provider = p
	providerMu.Unlock()
	return nil
}
