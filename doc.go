// Package raytrace renders static scenes of spheres, infinite planes and
// point lights with a Blinn-Phong ray tracer that runs on the CPU or on the
// GPU.
//
// # Overview
//
// A render takes a Job (Scene, Camera, RenderParams) and produces a
// PixelBuffer. Each pixel casts one or more camera rays, finds the closest
// sphere or plane, adds diffuse and specular light from every unshadowed
// point light, and follows mirror reflections for at most MaxDepth bounces.
//
// # Backends
//
// The CPU backend (SoftwareRenderer) splits rows across a work-stealing
// goroutine pool. The GPU backend is an optional accelerator that runs the
// same algorithm as a WGSL compute program through gogpu/wgpu. Enable it by
// blank import:
//
//	import _ "github.com/gogpu/raytrace/gpu"
//
// Renderer picks the backend. When the GPU is requested but unavailable, or
// fails while rendering a frame, the frame is transparently re-rendered on
// the CPU and the failure is logged and recorded in Frame.FallbackErr.
//
// # Progressive rendering
//
// With WithAdaptive(true), Renderer.Run renders the job at 1, 2, 4, ...
// samples per pixel up to the requested count, delivering each complete
// frame before starting the next:
//
//	r := raytrace.NewRenderer(raytrace.WithBackend(raytrace.BackendGPU), raytrace.WithAdaptive(true))
//	defer r.Close()
//	final, err := r.Run(ctx, job, func(f *raytrace.Frame) error {
//	    return preview(f.Buffer)
//	})
//
// # Logging
//
// raytrace is silent by default. Call SetLogger with a *slog.Logger to see
// backend selection, fallback warnings and per-pass diagnostics.
package raytrace
