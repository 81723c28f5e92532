//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/raytrace"
)

// ErrMemoryBudgetExceeded is returned when a render would allocate more
// device memory than the profiler budget.
var ErrMemoryBudgetExceeded = errors.New("wgpu: memory budget exceeded")

// DefaultBudgetBytes is the default device memory budget (2 GiB).
const DefaultBudgetBytes uint64 = 2 << 30

// Buffer labels, also used as MemoryReport keys.
const (
	bufParams  = "params"
	bufCamera  = "camera"
	bufSpheres = "spheres"
	bufPlanes  = "planes"
	bufLights  = "lights"
	bufOutput  = "output"
	bufStaging = "staging"
)

// BufferPlan holds the exact byte size of every buffer one render allocates.
type BufferPlan struct {
	Params  uint64
	Camera  uint64
	Spheres uint64
	Planes  uint64
	Lights  uint64
	Output  uint64
	Staging uint64
}

// PlanBuffers computes buffer sizes for job. Empty object arrays still
// occupy one record.
//
//nolint:gosec // G115: sizes are products of validated non-negative ints
func PlanBuffers(job raytrace.Job) BufferPlan {
	pixels := uint64(job.Params.Width) * uint64(job.Params.Height) * PixelSize
	return BufferPlan{
		Params:  RenderParamsSize,
		Camera:  CameraSize,
		Spheres: uint64(arrayBytes(len(job.Scene.Spheres), SphereSize)),
		Planes:  uint64(arrayBytes(len(job.Scene.Planes), PlaneSize)),
		Lights:  uint64(arrayBytes(len(job.Scene.Lights), LightSize)),
		Output:  pixels,
		Staging: pixels,
	}
}

// Total returns the sum of all planned buffers.
func (p BufferPlan) Total() uint64 {
	return p.Params + p.Camera + p.Spheres + p.Planes + p.Lights + p.Output + p.Staging
}

// Sizes returns the plan keyed by buffer label.
func (p BufferPlan) Sizes() map[string]uint64 {
	return map[string]uint64{
		bufParams:  p.Params,
		bufCamera:  p.Camera,
		bufSpheres: p.Spheres,
		bufPlanes:  p.Planes,
		bufLights:  p.Lights,
		bufOutput:  p.Output,
		bufStaging: p.Staging,
	}
}

// MemoryProfiler tracks live device buffer bytes against a budget and
// records the peak.
//
// MemoryProfiler is safe for concurrent use.
type MemoryProfiler struct {
	mu sync.Mutex

	budgetBytes uint64
	liveBytes   uint64
	peakBytes   uint64

	// sizes of every buffer allocated since the last Reset
	buffers map[string]uint64
}

// NewMemoryProfiler creates a profiler. A zero budget uses DefaultBudgetBytes.
func NewMemoryProfiler(budgetBytes uint64) *MemoryProfiler {
	if budgetBytes == 0 {
		budgetBytes = DefaultBudgetBytes
	}
	return &MemoryProfiler{
		budgetBytes: budgetBytes,
		buffers:     make(map[string]uint64),
	}
}

// Budget returns the budget in bytes.
func (m *MemoryProfiler) Budget() uint64 {
	return m.budgetBytes
}

// Check returns ErrMemoryBudgetExceeded if plan does not fit the budget.
func (m *MemoryProfiler) Check(plan BufferPlan) error {
	if total := plan.Total(); total > m.budgetBytes {
		return fmt.Errorf("%w: need %d bytes, budget %d bytes",
			ErrMemoryBudgetExceeded, total, m.budgetBytes)
	}
	return nil
}

// Reset clears the per-render buffer record and peak. Live bytes carry
// over, since buffers from a previous render must already be freed.
func (m *MemoryProfiler) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffers = make(map[string]uint64)
	m.peakBytes = m.liveBytes
}

// Alloc records a buffer of size bytes becoming live.
func (m *MemoryProfiler) Alloc(label string, size uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffers[label] = size
	m.liveBytes += size
	if m.liveBytes > m.peakBytes {
		m.peakBytes = m.liveBytes
	}
}

// Free records a buffer of size bytes being destroyed.
func (m *MemoryProfiler) Free(size uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size > m.liveBytes {
		size = m.liveBytes
	}
	m.liveBytes -= size
}

// LiveBytes returns the bytes currently allocated.
func (m *MemoryProfiler) LiveBytes() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveBytes
}

// Report returns the buffers allocated since the last Reset and the peak.
func (m *MemoryProfiler) Report() raytrace.MemoryReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	buffers := make(map[string]uint64, len(m.buffers))
	for k, v := range m.buffers {
		buffers[k] = v
	}
	return raytrace.MemoryReport{Buffers: buffers, PeakBytes: m.peakBytes}
}
