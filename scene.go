package raytrace

import (
	"fmt"
	"math"
)

// Material describes how a surface responds to light.
// It is a value type and is copied into every primitive that uses it.
type Material struct {
	Color        Color
	Diffuse      float64
	Specular     float64
	Shininess    float64
	Reflectivity float64 // in [0, 1]; 0 disables reflection bounces
}

// Sphere is a sphere primitive. Radius must be positive.
type Sphere struct {
	Center   Vec3
	Radius   float64
	Material Material
}

// Plane is an infinite plane through Point with unit Normal.
type Plane struct {
	Point    Vec3
	Normal   Vec3
	Material Material
}

// NewPlane creates a plane, normalizing the normal.
func NewPlane(point, normal Vec3, m Material) Plane {
	return Plane{Point: point, Normal: normal.Normalize(), Material: m}
}

// Light is a point light. Intensity is not attenuated by distance.
type Light struct {
	Position  Vec3
	Intensity float64
}

// Camera is a pinhole camera.
//
// An AspectRatio <= 0 means "derive from the render resolution".
// Forward (Target-Position) must not be parallel to Up; this is not validated.
type Camera struct {
	Position    Vec3
	Target      Vec3
	Up          Vec3
	FOV         float64 // vertical field of view in degrees
	AspectRatio float64
}

// NewCamera creates a camera with a +Y up vector.
func NewCamera(position, target Vec3, fov, aspect float64) Camera {
	return Camera{
		Position:    position,
		Target:      target,
		Up:          V3(0, 1, 0),
		FOV:         fov,
		AspectRatio: aspect,
	}
}

// Basis returns the orthonormal forward, right and up vectors of the camera.
func (c Camera) Basis() (forward, right, up Vec3) {
	forward = c.Target.Sub(c.Position).Normalize()
	right = forward.Cross(c.Up).Normalize()
	up = right.Cross(forward)
	return forward, right, up
}

// Ray returns the primary ray through normalized device coordinates
// (ndcX, ndcY) in [-1, 1]; ndcY grows downwards like pixel rows.
func (c Camera) Ray(ndcX, ndcY float64) Ray {
	forward, right, up := c.Basis()
	return c.rayFromBasis(forward, right, up, math.Tan(c.FOV*math.Pi/360), ndcX, ndcY)
}

func (c Camera) rayFromBasis(forward, right, up Vec3, fovAdj, ndcX, ndcY float64) Ray {
	x := ndcX * c.AspectRatio * fovAdj
	y := -ndcY * fovAdj
	dir := forward.Add(right.Mul(x)).Add(up.Mul(y)).Normalize()
	return Ray{Origin: c.Position, Dir: dir}
}

// withAspect returns a copy with AspectRatio resolved for the given resolution.
func (c Camera) withAspect(width, height int) Camera {
	if c.AspectRatio <= 0 && height > 0 {
		c.AspectRatio = float64(width) / float64(height)
	}
	return c
}

// Scene is the immutable set of objects and lights rendered in one call.
type Scene struct {
	Spheres    []Sphere
	Planes     []Plane
	Lights     []Light
	Background Color
}

// Default render parameters.
const (
	DefaultEpsilon  = 1e-3
	DefaultMaxDepth = 3
)

// RenderParams controls resolution and quality of a render pass.
type RenderParams struct {
	Width    int
	Height   int
	Samples  int     // samples per pixel, >= 1
	MaxDepth int     // maximum bounces, >= 1
	Epsilon  float64 // self-intersection offset, > 0
}

// DefaultRenderParams returns single-sample parameters for the given size.
func DefaultRenderParams(width, height int) RenderParams {
	return RenderParams{
		Width:    width,
		Height:   height,
		Samples:  1,
		MaxDepth: DefaultMaxDepth,
		Epsilon:  DefaultEpsilon,
	}
}

// Validate checks the parameter ranges.
func (p RenderParams) Validate() error {
	switch {
	case p.Width <= 0 || p.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidParams, p.Width, p.Height)
	case p.Samples < 1:
		return fmt.Errorf("%w: samples %d < 1", ErrInvalidParams, p.Samples)
	case p.MaxDepth < 1:
		return fmt.Errorf("%w: max depth %d < 1", ErrInvalidParams, p.MaxDepth)
	case !(p.Epsilon > 0):
		return fmt.Errorf("%w: epsilon %g must be positive", ErrInvalidParams, p.Epsilon)
	}
	return nil
}

// Job bundles everything a backend needs for one render pass.
type Job struct {
	Scene  *Scene
	Camera Camera
	Params RenderParams
}

// Validate checks that the job can be rendered.
func (j Job) Validate() error {
	if j.Scene == nil {
		return fmt.Errorf("%w: nil scene", ErrInvalidParams)
	}
	return j.Params.Validate()
}

// ResolvedCamera returns the camera with its aspect ratio filled in.
func (j Job) ResolvedCamera() Camera {
	return j.Camera.withAspect(j.Params.Width, j.Params.Height)
}

// WithSamples returns a copy of the job rendering at the given sample count.
func (j Job) WithSamples(samples int) Job {
	j.Params.Samples = samples
	return j
}
