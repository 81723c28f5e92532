//go:build !nogpu

// Package gpu provides the WebGPU compute backend for raytrace.
//
// It runs the WGSL program in shaders/raytrace.wgsl on a device opened
// through gogpu/wgpu (Pure Go, zero CGO). The shader is compiled to SPIR-V
// with gogpu/naga when the pipeline is built.
//
// # Data flow
//
//	Job -> PackJob -> Marshal -> WriteBuffer -> Dispatch -> Copy -> ReadBuffer -> PixelBuffer
//
// Each Render allocates seven buffers (two uniforms, three read-only
// storage arrays, the output array and a map-read staging copy), tracks
// them in a MemoryProfiler and destroys them before returning.
//
// # Lifecycle
//
// A Raytracer moves through Uninitialized, Initializing, Ready,
// Dispatching and ReadingBack. Any device error during dispatch or
// readback moves it to Failed, which is terminal: callers fall back to
// the CPU renderer and replace the instance.
//
// # Build tags
//
// Building with -tags nogpu excludes this package entirely.
package gpu
