//go:build !nogpu

package gpu

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace"
)

var errBoom = errors.New("boom")

// plainProvider is a DeviceProvider without HAL accessors.
type plainProvider struct{}

func (plainProvider) Device() gpucontext.Device             { return nil }
func (plainProvider) Queue() gpucontext.Queue               { return nil }
func (plainProvider) Adapter() gpucontext.Adapter           { return nil }
func (plainProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }

// halProvider exposes a HAL device and queue.
type halProvider struct {
	plainProvider
	device hal.Device
	queue  hal.Queue
}

func (p halProvider) HalDevice() any { return p.device }
func (p halProvider) HalQueue() any  { return p.queue }

func TestAcceleratorName(t *testing.T) {
	var a raytrace.GPUAccelerator = NewAccelerator()
	if a.Name() != "wgpu" {
		t.Errorf("Name = %q, want wgpu", a.Name())
	}
}

func TestCheckDeviceProvider(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	tests := []struct {
		name     string
		provider gpucontext.DeviceProvider
		wantErr  bool
	}{
		{"nil", nil, true},
		{"no HAL accessors", plainProvider{}, true},
		{"nil HAL device", halProvider{queue: queue}, true},
		{"nil HAL queue", halProvider{device: device}, true},
		{"valid", halProvider{device: device, queue: queue}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDeviceProvider(tt.provider)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckDeviceProvider() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAcceleratorSharedDevice(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	a := NewAccelerator()
	if err := a.SetDeviceProvider(halProvider{device: device, queue: queue}); err != nil {
		t.Fatalf("SetDeviceProvider: %v", err)
	}
	if err := a.Init(); err != nil {
		skipOnNagaLimitation(t, err)
		t.Fatalf("Init: %v", err)
	}
	if a.State() != StateReady {
		t.Errorf("state = %v, want Ready", a.State())
	}

	a.Close()
	if a.State() != StateUninitialized {
		t.Errorf("state after Close = %v, want Uninitialized", a.State())
	}
}

func TestAcceleratorRejectsProviderWithoutHAL(t *testing.T) {
	a := NewAccelerator()
	if err := a.SetDeviceProvider(plainProvider{}); err == nil {
		t.Fatal("expected error for provider without HAL accessors")
	}
	a.mu.Lock()
	shared := a.sharedDevice
	a.mu.Unlock()
	if shared != nil {
		t.Error("rejected provider must not be stored")
	}
}

func TestSloggerFollowsSetLogger(t *testing.T) {
	orig := raytrace.Logger()
	t.Cleanup(func() { raytrace.SetLogger(orig) })

	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	raytrace.SetLogger(custom)

	if slogger() != custom {
		t.Fatal("slogger() does not return the logger set with raytrace.SetLogger")
	}

	// Errors from a failed instance are logged through the new logger.
	rt := NewRaytracer(0)
	rt.mu.Lock()
	_ = rt.failInitLocked(raytrace.ErrGPUInitializationFailed, "open", errBoom)
	rt.mu.Unlock()
	if !bytes.Contains(buf.Bytes(), []byte("raytracer init failed")) {
		t.Errorf("expected init failure in log output, got:\n%s", buf.String())
	}
}
