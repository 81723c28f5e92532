//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/raytrace"
)

func testJob() raytrace.Job {
	scene := &raytrace.Scene{
		Spheres: []raytrace.Sphere{
			{
				Center: raytrace.V3(1, 2, -5),
				Radius: 1.5,
				Material: raytrace.Material{
					Color: raytrace.RGB(0.9, 0.1, 0.2), Diffuse: 0.7, Specular: 0.3, Shininess: 32, Reflectivity: 0.25,
				},
			},
			{Center: raytrace.V3(-1, 0, -3), Radius: 0.5},
		},
		Planes: []raytrace.Plane{
			raytrace.NewPlane(raytrace.V3(0, -1, 0), raytrace.V3(0, 1, 0), raytrace.Material{Color: raytrace.RGB(0.5, 0.5, 0.5), Diffuse: 1}),
		},
		Lights: []raytrace.Light{
			{Position: raytrace.V3(5, 5, 0), Intensity: 0.8},
			{Position: raytrace.V3(-5, 3, 1), Intensity: 0.4},
			{Position: raytrace.V3(0, 10, -4), Intensity: 0.2},
		},
		Background: raytrace.RGB(0.1, 0.2, 0.3),
	}
	params := raytrace.DefaultRenderParams(64, 48)
	params.Samples = 4
	return raytrace.Job{
		Scene:  scene,
		Camera: raytrace.NewCamera(raytrace.V3(0, 0, 0), raytrace.V3(0, 0, -1), 60, 0),
		Params: params,
	}
}

// =============================================================================
// Record layout
// =============================================================================

func TestRecordSizesAreVec4Aligned(t *testing.T) {
	sizes := map[string]int{
		"RenderParams": RenderParamsSize,
		"Camera":       CameraSize,
		"Material":     MaterialSize,
		"Sphere":       SphereSize,
		"Plane":        PlaneSize,
		"Light":        LightSize,
		"Pixel":        PixelSize,
	}
	for name, size := range sizes {
		if size%16 != 0 {
			t.Errorf("%s size %d is not a multiple of 16", name, size)
		}
	}
	if SphereSize != 16+MaterialSize || PlaneSize != 32+MaterialSize {
		t.Error("embedded Material must start on a 16-byte boundary")
	}
}

func TestRenderParamsMarshal(t *testing.T) {
	p := RenderParamsLayout{
		Width: 640, Height: 480, Samples: 8, MaxDepth: 3,
		Background: f32.Vec3{0.25, 0.5, 0.75},
		Epsilon:    0.001,
		NumSpheres: 2, NumPlanes: 1, NumLights: 3,
	}
	b := p.Marshal()
	if len(b) != RenderParamsSize {
		t.Fatalf("len = %d, want %d", len(b), RenderParamsSize)
	}

	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(b[off:]) }
	f := func(off int) float32 { return math.Float32frombits(u32(off)) }

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"width@0", u32(0), uint32(640)},
		{"height@4", u32(4), uint32(480)},
		{"samples@8", u32(8), uint32(8)},
		{"max_depth@12", u32(12), uint32(3)},
		{"background.r@16", f(16), float32(0.25)},
		{"background.g@20", f(20), float32(0.5)},
		{"background.b@24", f(24), float32(0.75)},
		{"epsilon@28", f(28), float32(0.001)},
		{"num_spheres@32", u32(32), uint32(2)},
		{"num_planes@36", u32(36), uint32(1)},
		{"num_lights@40", u32(40), uint32(3)},
		{"pad@44", u32(44), uint32(0)},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if got := UnmarshalRenderParams(b); got != p {
		t.Errorf("round trip = %+v, want %+v", got, p)
	}
}

func TestCameraMarshalPaddingZeroed(t *testing.T) {
	c := CameraLayout{
		Position:    f32.Vec3{1, 2, 3},
		LookAt:      f32.Vec3{4, 5, 6},
		Up:          f32.Vec3{0, 1, 0},
		FOV:         60,
		AspectRatio: 1.5,
	}
	b := c.Marshal()
	if len(b) != CameraSize {
		t.Fatalf("len = %d, want %d", len(b), CameraSize)
	}
	for _, off := range []int{12, 28, 52, 56, 60} {
		if v := binary.LittleEndian.Uint32(b[off:]); v != 0 {
			t.Errorf("padding at %d = %#x, want 0", off, v)
		}
	}
	if fov := math.Float32frombits(binary.LittleEndian.Uint32(b[44:])); fov != 60 {
		t.Errorf("fov@44 = %v, want 60", fov)
	}
	if got := UnmarshalCamera(b); got != c {
		t.Errorf("round trip = %+v, want %+v", got, c)
	}

	// Garbage in padding is ignored on read.
	for _, off := range []int{12, 28, 52} {
		binary.LittleEndian.PutUint32(b[off:], 0xDEADBEEF)
	}
	if got := UnmarshalCamera(b); got != c {
		t.Errorf("padding leaked into decode: %+v", got)
	}
}

func TestPackJob(t *testing.T) {
	job := testJob()
	packed := PackJob(job)

	if packed.Params.Width != 64 || packed.Params.Height != 48 || packed.Params.Samples != 4 {
		t.Errorf("params = %+v", packed.Params)
	}
	if packed.Params.NumSpheres != 2 || packed.Params.NumPlanes != 1 || packed.Params.NumLights != 3 {
		t.Errorf("counts = %d/%d/%d", packed.Params.NumSpheres, packed.Params.NumPlanes, packed.Params.NumLights)
	}
	if packed.Camera.AspectRatio != float32(64.0/48.0) {
		t.Errorf("aspect = %v, want resolved from resolution", packed.Camera.AspectRatio)
	}

	b := MarshalSpheres(packed.Spheres)
	if len(b) != 2*SphereSize {
		t.Fatalf("spheres len = %d, want %d", len(b), 2*SphereSize)
	}
	got := UnmarshalSphere(b[:SphereSize])
	want := SphereLayout{
		Center: f32.Vec3{1, 2, -5},
		Radius: 1.5,
		Material: MaterialLayout{
			Color: f32.Vec3{0.9, 0.1, 0.2}, Diffuse: 0.7, Specular: 0.3, Shininess: 32, Reflectivity: 0.25,
		},
	}
	if got != want {
		t.Errorf("sphere 0 = %+v, want %+v", got, want)
	}
	if pad := binary.LittleEndian.Uint32(b[44:]); pad != 0 {
		t.Errorf("material padding = %#x, want 0", pad)
	}

	pb := MarshalPlanes(packed.Planes)
	if n := math.Float32frombits(binary.LittleEndian.Uint32(pb[20:])); n != 1 {
		t.Errorf("plane normal.y@20 = %v, want 1", n)
	}
	lb := MarshalLights(packed.Lights)
	if len(lb) != 3*LightSize {
		t.Errorf("lights len = %d", len(lb))
	}
	if i := math.Float32frombits(binary.LittleEndian.Uint32(lb[LightSize+12:])); i != 0.4 {
		t.Errorf("light 1 intensity = %v, want 0.4", i)
	}
}

func TestMarshalEmptyArraysUsePlaceholder(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		size int
	}{
		{"spheres", MarshalSpheres(nil), SphereSize},
		{"planes", MarshalPlanes(nil), PlaneSize},
		{"lights", MarshalLights(nil), LightSize},
	}
	for _, tt := range tests {
		if len(tt.b) != tt.size {
			t.Errorf("%s: len = %d, want one zeroed record of %d", tt.name, len(tt.b), tt.size)
		}
		for i, v := range tt.b {
			if v != 0 {
				t.Errorf("%s: byte %d = %d, want 0", tt.name, i, v)
				break
			}
		}
	}
}

func TestDecodePixels(t *testing.T) {
	raw := make([]byte, 2*1*PixelSize)
	vals := []float32{0.1, 0.2, 0.3, 1, 0.4, 0.5, 0.6, 1}
	for i, v := range vals {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	buf := decodePixels(raw, 2, 1)
	if buf == nil || buf.Width() != 2 || buf.Height() != 1 {
		t.Fatalf("decodePixels = %v", buf)
	}
	for i, v := range vals {
		if buf.Data()[i] != v {
			t.Errorf("float %d = %v, want %v", i, buf.Data()[i], v)
		}
	}
}
