package raytrace

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/gogpu/raytrace/internal/parallel"
)

// pixelCenter is the sub-pixel offset used when rendering a single sample.
// The device program uses the same value.
const pixelCenter = 0.5

// SoftwareRenderer evaluates every pixel on the CPU using a worker pool.
//
// Rows are split into disjoint bands; each band writes only its own pixels,
// so no locking is needed on the output buffer.
type SoftwareRenderer struct {
	pool *parallel.WorkerPool
	seed uint64
}

// NewSoftwareRenderer creates a CPU renderer. workers <= 0 uses GOMAXPROCS.
func NewSoftwareRenderer(workers int) *SoftwareRenderer {
	return &SoftwareRenderer{
		pool: parallel.NewWorkerPool(workers),
		seed: 0x9E3779B97F4A7C15,
	}
}

// Workers returns the number of worker goroutines.
func (r *SoftwareRenderer) Workers() int {
	return r.pool.Workers()
}

// Close stops the worker pool.
func (r *SoftwareRenderer) Close() {
	r.pool.Close()
}

// Render renders one complete pass of job into a new PixelBuffer.
// ctx is only checked before the pass starts; a pass runs to completion.
// After Close, Render returns ErrRendererClosed.
func (r *SoftwareRenderer) Render(ctx context.Context, job Job) (*PixelBuffer, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.pool.IsRunning() {
		return nil, fmt.Errorf("software render: %w", ErrRendererClosed)
	}

	p := job.Params
	buf := NewPixelBuffer(p.Width, p.Height)
	pc := newPixelContext(job)

	bands := parallel.SplitRows(p.Height, r.pool.Workers())
	work := make([]func(), len(bands))
	for i, band := range bands {
		work[i] = func() {
			pc.renderBand(buf, band, r.seed)
		}
	}
	if err := r.pool.ExecuteAll(work); err != nil {
		return nil, fmt.Errorf("software render: %w: %w", ErrRendererClosed, err)
	}

	Logger().Debug("cpu pass complete",
		"width", p.Width, "height", p.Height,
		"samples", p.Samples, "bands", len(bands))
	return buf, nil
}

// pixelContext holds per-pass values shared read-only by all bands.
type pixelContext struct {
	scene      *Scene
	camera     Camera
	params     RenderParams
	forward    Vec3
	right      Vec3
	up         Vec3
	fovAdj     float64
	invWidth   float64
	invHeight  float64
	invSamples float64
}

func newPixelContext(job Job) *pixelContext {
	cam := job.ResolvedCamera()
	forward, right, up := cam.Basis()
	return &pixelContext{
		scene:      job.Scene,
		camera:     cam,
		params:     job.Params,
		forward:    forward,
		right:      right,
		up:         up,
		fovAdj:     math.Tan(cam.FOV * math.Pi / 360),
		invWidth:   1 / float64(job.Params.Width),
		invHeight:  1 / float64(job.Params.Height),
		invSamples: 1 / float64(job.Params.Samples),
	}
}

// primaryRay returns the camera ray through pixel (x, y) at sub-pixel
// offset (ox, oy) in [0,1)².
func (pc *pixelContext) primaryRay(x, y int, ox, oy float64) Ray {
	ndcX := ((float64(x)+ox)*pc.invWidth)*2 - 1
	ndcY := ((float64(y)+oy)*pc.invHeight)*2 - 1
	return pc.camera.rayFromBasis(pc.forward, pc.right, pc.up, pc.fovAdj, ndcX, ndcY)
}

// renderBand evaluates every pixel of band. The PCG state is owned by this
// call and reseeded per pixel, so results do not depend on scheduling.
func (pc *pixelContext) renderBand(buf *PixelBuffer, band parallel.Band, seed uint64) {
	w := pc.params.Width
	pcg := rand.NewPCG(0, 0)
	rng := rand.New(pcg)

	for y := band.Y0; y < band.Y1; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			pcg.Seed(uint64(idx), seed)
			buf.setIndex(idx, pc.samplePixel(x, y, rng))
		}
	}
}

func (pc *pixelContext) samplePixel(x, y int, rng *rand.Rand) Color {
	if pc.params.Samples == 1 {
		return pc.scene.Trace(pc.primaryRay(x, y, pixelCenter, pixelCenter), pc.params)
	}

	var sum Color
	for range pc.params.Samples {
		ox, oy := rng.Float64(), rng.Float64()
		sum = sum.Add(pc.scene.Trace(pc.primaryRay(x, y, ox, oy), pc.params))
	}
	return sum.Mul(pc.invSamples).Clamp01()
}
