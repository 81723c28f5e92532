//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"encoding/binary"
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/raytrace"
)

// Device record sizes in bytes. Every record is a multiple of 16 bytes and
// every vec3 starts on a 16-byte boundary, as required by WGSL uniform and
// storage layout rules. The WGSL structs in shaders/raytrace.wgsl must match.
const (
	RenderParamsSize = 48
	CameraSize       = 64
	MaterialSize     = 32
	SphereSize       = 48
	PlaneSize        = 64
	LightSize        = 16
	PixelSize        = 16 // vec4<f32>
)

// RenderParamsLayout mirrors the WGSL RenderParams uniform (binding 0).
type RenderParamsLayout struct {
	Width      uint32   // offset  0
	Height     uint32   // offset  4
	Samples    uint32   // offset  8
	MaxDepth   uint32   // offset 12
	Background f32.Vec3 // offset 16
	Epsilon    float32  // offset 28
	NumSpheres uint32   // offset 32
	NumPlanes  uint32   // offset 36
	NumLights  uint32   // offset 40
	_          uint32   // offset 44: padding
}

// CameraLayout mirrors the WGSL Camera uniform (binding 1).
type CameraLayout struct {
	Position    f32.Vec3   // offset  0
	_           float32    // offset 12: padding
	LookAt      f32.Vec3   // offset 16
	_           float32    // offset 28: padding
	Up          f32.Vec3   // offset 32
	FOV         float32    // offset 44: degrees
	AspectRatio float32    // offset 48
	_           [3]float32 // offset 52: padding to 64
}

// MaterialLayout mirrors the WGSL Material struct.
type MaterialLayout struct {
	Color        f32.Vec3 // offset  0
	Diffuse      float32  // offset 12
	Specular     float32  // offset 16
	Shininess    float32  // offset 20
	Reflectivity float32  // offset 24
	_            float32  // offset 28: padding
}

// SphereLayout mirrors the WGSL Sphere struct (binding 2 element).
type SphereLayout struct {
	Center   f32.Vec3       // offset  0
	Radius   float32        // offset 12
	Material MaterialLayout // offset 16
}

// PlaneLayout mirrors the WGSL Plane struct (binding 3 element).
type PlaneLayout struct {
	Point    f32.Vec3       // offset  0
	_        float32        // offset 12: padding
	Normal   f32.Vec3       // offset 16
	_        float32        // offset 28: padding
	Material MaterialLayout // offset 32
}

// LightLayout mirrors the WGSL Light struct (binding 4 element).
type LightLayout struct {
	Position  f32.Vec3 // offset  0
	Intensity float32  // offset 12
}

// =============================================================================
// Host → device conversion
// =============================================================================

// PackedJob is a job converted to device records.
type PackedJob struct {
	Params  RenderParamsLayout
	Camera  CameraLayout
	Spheres []SphereLayout
	Planes  []PlaneLayout
	Lights  []LightLayout
}

// PackJob converts a job to device records. The camera aspect ratio is
// resolved against the render resolution.
func PackJob(job raytrace.Job) PackedJob {
	sc := job.Scene
	p := job.Params
	cam := job.ResolvedCamera()

	packed := PackedJob{
		Params: RenderParamsLayout{
			Width:      uint32(p.Width),    //nolint:gosec // validated > 0
			Height:     uint32(p.Height),   //nolint:gosec // validated > 0
			Samples:    uint32(p.Samples),  //nolint:gosec // validated >= 1
			MaxDepth:   uint32(p.MaxDepth), //nolint:gosec // validated >= 1
			Background: vec3(sc.Background),
			Epsilon:    float32(p.Epsilon),
			NumSpheres: uint32(len(sc.Spheres)), //nolint:gosec // slice length
			NumPlanes:  uint32(len(sc.Planes)),  //nolint:gosec // slice length
			NumLights:  uint32(len(sc.Lights)),  //nolint:gosec // slice length
		},
		Camera: CameraLayout{
			Position:    vec3(cam.Position),
			LookAt:      vec3(cam.Target),
			Up:          vec3(cam.Up),
			FOV:         float32(cam.FOV),
			AspectRatio: float32(cam.AspectRatio),
		},
		Spheres: make([]SphereLayout, len(sc.Spheres)),
		Planes:  make([]PlaneLayout, len(sc.Planes)),
		Lights:  make([]LightLayout, len(sc.Lights)),
	}

	for i, s := range sc.Spheres {
		packed.Spheres[i] = SphereLayout{
			Center:   vec3(s.Center),
			Radius:   float32(s.Radius),
			Material: material(s.Material),
		}
	}
	for i, pl := range sc.Planes {
		packed.Planes[i] = PlaneLayout{
			Point:    vec3(pl.Point),
			Normal:   vec3(pl.Normal),
			Material: material(pl.Material),
		}
	}
	for i, l := range sc.Lights {
		packed.Lights[i] = LightLayout{
			Position:  vec3(l.Position),
			Intensity: float32(l.Intensity),
		}
	}
	return packed
}

func vec3(v raytrace.Vec3) f32.Vec3 {
	return f32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

func material(m raytrace.Material) MaterialLayout {
	return MaterialLayout{
		Color:        vec3(m.Color),
		Diffuse:      float32(m.Diffuse),
		Specular:     float32(m.Specular),
		Shininess:    float32(m.Shininess),
		Reflectivity: float32(m.Reflectivity),
	}
}

// =============================================================================
// Marshaling
// =============================================================================

// Marshal encodes the record little-endian with zeroed padding.
func (p *RenderParamsLayout) Marshal() []byte {
	b := make([]byte, RenderParamsSize)
	putU32(b, 0, p.Width)
	putU32(b, 4, p.Height)
	putU32(b, 8, p.Samples)
	putU32(b, 12, p.MaxDepth)
	putVec3(b, 16, p.Background)
	putF32(b, 28, p.Epsilon)
	putU32(b, 32, p.NumSpheres)
	putU32(b, 36, p.NumPlanes)
	putU32(b, 40, p.NumLights)
	return b
}

// Marshal encodes the record little-endian with zeroed padding.
func (c *CameraLayout) Marshal() []byte {
	b := make([]byte, CameraSize)
	putVec3(b, 0, c.Position)
	putVec3(b, 16, c.LookAt)
	putVec3(b, 32, c.Up)
	putF32(b, 44, c.FOV)
	putF32(b, 48, c.AspectRatio)
	return b
}

func (m *MaterialLayout) marshalTo(b []byte) {
	putVec3(b, 0, m.Color)
	putF32(b, 12, m.Diffuse)
	putF32(b, 16, m.Specular)
	putF32(b, 20, m.Shininess)
	putF32(b, 24, m.Reflectivity)
}

func (s *SphereLayout) marshalTo(b []byte) {
	putVec3(b, 0, s.Center)
	putF32(b, 12, s.Radius)
	s.Material.marshalTo(b[16:SphereSize])
}

func (p *PlaneLayout) marshalTo(b []byte) {
	putVec3(b, 0, p.Point)
	putVec3(b, 16, p.Normal)
	p.Material.marshalTo(b[32:PlaneSize])
}

func (l *LightLayout) marshalTo(b []byte) {
	putVec3(b, 0, l.Position)
	putF32(b, 12, l.Intensity)
}

// MarshalSpheres encodes the storage array for binding 2. An empty slice
// yields one zeroed record because WebGPU forbids zero-sized bindings.
func MarshalSpheres(spheres []SphereLayout) []byte {
	b := make([]byte, arrayBytes(len(spheres), SphereSize))
	for i := range spheres {
		spheres[i].marshalTo(b[i*SphereSize : (i+1)*SphereSize])
	}
	return b
}

// MarshalPlanes encodes the storage array for binding 3.
func MarshalPlanes(planes []PlaneLayout) []byte {
	b := make([]byte, arrayBytes(len(planes), PlaneSize))
	for i := range planes {
		planes[i].marshalTo(b[i*PlaneSize : (i+1)*PlaneSize])
	}
	return b
}

// MarshalLights encodes the storage array for binding 4.
func MarshalLights(lights []LightLayout) []byte {
	b := make([]byte, arrayBytes(len(lights), LightSize))
	for i := range lights {
		lights[i].marshalTo(b[i*LightSize : (i+1)*LightSize])
	}
	return b
}

// arrayBytes is the allocated size of a storage array of n records.
func arrayBytes(n, size int) int {
	return max(n, 1) * size
}

// =============================================================================
// Device → host
// =============================================================================

// UnmarshalRenderParams decodes a RenderParams record, ignoring padding.
func UnmarshalRenderParams(b []byte) RenderParamsLayout {
	return RenderParamsLayout{
		Width:      getU32(b, 0),
		Height:     getU32(b, 4),
		Samples:    getU32(b, 8),
		MaxDepth:   getU32(b, 12),
		Background: getVec3(b, 16),
		Epsilon:    getF32(b, 28),
		NumSpheres: getU32(b, 32),
		NumPlanes:  getU32(b, 36),
		NumLights:  getU32(b, 40),
	}
}

// UnmarshalCamera decodes a Camera record, ignoring padding.
func UnmarshalCamera(b []byte) CameraLayout {
	return CameraLayout{
		Position:    getVec3(b, 0),
		LookAt:      getVec3(b, 16),
		Up:          getVec3(b, 32),
		FOV:         getF32(b, 44),
		AspectRatio: getF32(b, 48),
	}
}

// UnmarshalSphere decodes one Sphere record, ignoring padding.
func UnmarshalSphere(b []byte) SphereLayout {
	return SphereLayout{
		Center: getVec3(b, 0),
		Radius: getF32(b, 12),
		Material: MaterialLayout{
			Color:        getVec3(b, 16),
			Diffuse:      getF32(b, 28),
			Specular:     getF32(b, 32),
			Shininess:    getF32(b, 36),
			Reflectivity: getF32(b, 40),
		},
	}
}

// decodePixels converts the output buffer readback into a PixelBuffer.
func decodePixels(b []byte, width, height int) *raytrace.PixelBuffer {
	n := width * height * 4
	data := make([]float32, n)
	for i := range data {
		data[i] = getF32(b, i*4)
	}
	return raytrace.PixelBufferFromData(width, height, data)
}

func putU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

func putF32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:off+4], math.Float32bits(v))
}

func putVec3(b []byte, off int, v f32.Vec3) {
	putF32(b, off, v[0])
	putF32(b, off+4, v[1])
	putF32(b, off+8, v[2])
}

func getU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

func getF32(b []byte, off int) float32 {
	return math.Float32frombits(getU32(b, off))
}

func getVec3(b []byte, off int) f32.Vec3 {
	return f32.Vec3{getF32(b, off), getF32(b, off+4), getF32(b, off+8)}
}
