package raytrace

import (
	"fmt"
	"strings"
)

// Backend selects where pixels are evaluated.
type Backend int

const (
	// BackendCPU renders on the CPU worker pool. It never touches the GPU.
	BackendCPU Backend = iota

	// BackendGPU renders with the registered GPU accelerator and falls back
	// to the CPU on any GPU failure.
	BackendGPU
)

// String returns "cpu" or "gpu".
func (b Backend) String() string {
	switch b {
	case BackendCPU:
		return "cpu"
	case BackendGPU:
		return "gpu"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend parses "cpu" or "gpu" (case-insensitive).
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu":
		return BackendCPU, nil
	case "gpu":
		return BackendGPU, nil
	}
	return BackendCPU, fmt.Errorf("raytrace: unknown backend %q (want cpu or gpu)", s)
}

// Config holds Renderer configuration.
type Config struct {
	// Backend is the requested backend preference.
	Backend Backend

	// Adaptive replaces a single render with progressively higher sample
	// counts (see SampleSchedule) when using Renderer.Run.
	Adaptive bool

	// Workers is the CPU worker count; 0 uses GOMAXPROCS.
	Workers int

	// accelerator overrides the registered accelerator factory.
	accelerator AcceleratorFactory
}

// DefaultConfig returns the CPU, non-adaptive configuration.
func DefaultConfig() Config {
	return Config{Backend: BackendCPU}
}

// Option configures a Renderer during creation.
//
// Example:
//
//	r := raytrace.NewRenderer(
//	    raytrace.WithBackend(raytrace.BackendGPU),
//	    raytrace.WithAdaptive(true),
//	)
type Option func(*Config)

// WithBackend sets the requested backend.
func WithBackend(b Backend) Option {
	return func(c *Config) {
		c.Backend = b
	}
}

// WithAdaptive enables progressive-quality rendering in Renderer.Run.
func WithAdaptive(enabled bool) Option {
	return func(c *Config) {
		c.Adaptive = enabled
	}
}

// WithWorkers sets the CPU worker count.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithAccelerator injects a GPU accelerator factory instead of the one
// registered with RegisterAccelerator.
func WithAccelerator(factory AcceleratorFactory) Option {
	return func(c *Config) {
		c.accelerator = factory
	}
}
