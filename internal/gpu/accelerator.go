//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace"
)

// Accelerator adapts Raytracer to raytrace.GPUAccelerator.
//
// By default Init opens its own Vulkan device. After SetDeviceProvider, Init
// builds the pipeline on the provider's shared device instead.
type Accelerator struct {
	mu sync.Mutex

	rt *Raytracer

	sharedDevice hal.Device
	sharedQueue  hal.Queue
}

var _ raytrace.GPUAccelerator = (*Accelerator)(nil)

// NewAccelerator creates an accelerator with the default memory budget.
func NewAccelerator() *Accelerator {
	return &Accelerator{rt: NewRaytracer(DefaultBudgetBytes)}
}

func (a *Accelerator) Name() string { return "wgpu" }

// slogger returns the logger configured with raytrace.SetLogger.
func slogger() *slog.Logger { return raytrace.Logger() }

// SetDeviceProvider makes Init use a shared device from provider. The
// provider must also implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func (a *Accelerator) SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	device, queue, err := halFromProvider(provider)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.sharedDevice = device
	a.sharedQueue = queue
	return nil
}

// CheckDeviceProvider reports whether provider exposes a usable HAL device
// and queue.
func CheckDeviceProvider(provider gpucontext.DeviceProvider) error {
	_, _, err := halFromProvider(provider)
	return err
}

func halFromProvider(provider gpucontext.DeviceProvider) (hal.Device, hal.Queue, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if provider == nil {
		return nil, nil, errors.New("wgpu: nil device provider")
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, fmt.Errorf("wgpu: provider %T does not expose HAL types", provider)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, errors.New("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, errors.New("wgpu: provider HalQueue is not hal.Queue")
	}
	return device, queue, nil
}

// Init opens the device and builds the compute pipeline.
func (a *Accelerator) Init() error {
	a.mu.Lock()
	device, queue := a.sharedDevice, a.sharedQueue
	a.mu.Unlock()

	if device != nil {
		return a.rt.OpenWithDevice(device, queue)
	}
	return a.rt.Open()
}

// Render renders one pass on the device.
func (a *Accelerator) Render(job raytrace.Job) (*raytrace.PixelBuffer, error) {
	return a.rt.Render(job)
}

// MemoryReport returns the buffer footprint of the last Render.
func (a *Accelerator) MemoryReport() raytrace.MemoryReport {
	return a.rt.MemoryReport()
}

// State returns the raytracer lifecycle state.
func (a *Accelerator) State() State {
	return a.rt.State()
}

// Close releases device resources.
func (a *Accelerator) Close() {
	a.rt.Close()
}
