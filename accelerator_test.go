package raytrace

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
)

// mockAccelerator implements GPUAccelerator for testing. Without renderErr
// it renders with a private CPU renderer so results are comparable.
type mockAccelerator struct {
	mu sync.Mutex

	name      string
	initErr   error
	renderErr error
	report    MemoryReport

	inits   int
	renders int
	closed  bool
	logger  *slog.Logger
}

func (m *mockAccelerator) Name() string { return m.name }

func (m *mockAccelerator) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits++
	return m.initErr
}

func (m *mockAccelerator) Render(job Job) (*PixelBuffer, error) {
	m.mu.Lock()
	m.renders++
	err := m.renderErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	cpu := NewSoftwareRenderer(1)
	defer cpu.Close()
	return cpu.Render(context.Background(), job)
}

func (m *mockAccelerator) MemoryReport() MemoryReport { return m.report }

func (m *mockAccelerator) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *mockAccelerator) SetLogger(l *slog.Logger) {
	m.mu.Lock()
	m.logger = l
	m.mu.Unlock()
}

func (m *mockAccelerator) gotLogger() bool {
	return m.currentLogger() != nil
}

func (m *mockAccelerator) currentLogger() *slog.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logger
}

func (m *mockAccelerator) counts() (inits, renders int, closed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inits, m.renders, m.closed
}

// resetAccelerator clears the global registry between tests.
func resetAccelerator() {
	accelMu.Lock()
	accelName = ""
	accelFactory = nil
	accelMu.Unlock()
}

func TestRegisterAcceleratorNil(t *testing.T) {
	resetAccelerator()
	defer resetAccelerator()

	err := RegisterAccelerator("nil", nil)
	if err == nil {
		t.Fatal("expected error when registering nil factory")
	}
	if err.Error() != "raytrace: accelerator factory must not be nil" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
	if _, f := RegisteredAccelerator(); f != nil {
		t.Error("factory should remain nil after failed registration")
	}
}

func TestRegisterAcceleratorReplaces(t *testing.T) {
	resetAccelerator()
	defer resetAccelerator()

	first := &mockAccelerator{name: "first"}
	second := &mockAccelerator{name: "second"}
	if err := RegisterAccelerator("a", func() GPUAccelerator { return first }); err != nil {
		t.Fatal(err)
	}
	if err := RegisterAccelerator("b", func() GPUAccelerator { return second }); err != nil {
		t.Fatal(err)
	}

	name, f := RegisteredAccelerator()
	if name != "b" {
		t.Errorf("name = %q, want %q", name, "b")
	}
	if got := f(); got != second {
		t.Errorf("factory returned %v, want the second accelerator", got.Name())
	}
}

func TestRegisteredAcceleratorUsedByRenderer(t *testing.T) {
	resetAccelerator()
	defer resetAccelerator()

	mock := &mockAccelerator{name: "registered", report: MemoryReport{PeakBytes: 42}}
	if err := RegisterAccelerator("registered", func() GPUAccelerator { return mock }); err != nil {
		t.Fatal(err)
	}

	r := NewRenderer(WithBackend(BackendGPU), WithWorkers(1))
	defer r.Close()

	f, err := r.Render(context.Background(), tinyJob())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if f.Backend != BackendGPU {
		t.Errorf("Backend = %v, want gpu", f.Backend)
	}
	if f.Memory == nil || f.Memory.PeakBytes != 42 {
		t.Errorf("Memory = %v, want the accelerator report", f.Memory)
	}
	if inits, renders, _ := mock.counts(); inits != 1 || renders != 1 {
		t.Errorf("inits=%d renders=%d, want 1 and 1", inits, renders)
	}

	r.Close()
	if _, _, closed := mock.counts(); !closed {
		t.Error("Renderer.Close should close the accelerator")
	}
}

func TestRendererNoAcceleratorRegistered(t *testing.T) {
	resetAccelerator()

	r := NewRenderer(WithBackend(BackendGPU), WithWorkers(1))
	defer r.Close()

	f, err := r.Render(context.Background(), tinyJob())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if f.Backend != BackendCPU {
		t.Errorf("Backend = %v, want cpu", f.Backend)
	}
	if !errors.Is(f.FallbackErr, ErrGPUAdapterUnavailable) {
		t.Errorf("FallbackErr = %v, want ErrGPUAdapterUnavailable", f.FallbackErr)
	}
	if r.ActiveBackend() != BackendCPU {
		t.Error("ActiveBackend should report cpu after fallback")
	}
}
