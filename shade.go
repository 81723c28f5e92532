package raytrace

import "math"

// InShadow reports whether lightPos is occluded from point.
// The shadow ray starts at point offset along normal by eps and only
// counts hits strictly between eps and the light distance minus eps.
func (s *Scene) InShadow(point, normal, lightPos Vec3, eps float64) bool {
	origin := point.Add(normal.Mul(eps))
	toLight := lightPos.Sub(origin)
	distSq := toLight.LengthSq()
	if distSq <= 4*eps*eps {
		// Light sits on the surface; nothing fits in (eps, dist-eps).
		return false
	}
	dist := math.Sqrt(distSq)
	shadow := Ray{Origin: origin, Dir: toLight.Mul(1 / dist)}
	return s.occluded(shadow, eps, dist-eps)
}

// Shade evaluates Blinn-Phong direct lighting at a surface point.
// viewDir points from the surface towards the viewer. There is no ambient
// term: a point hidden from every light is black.
func (s *Scene) Shade(point, normal Vec3, m Material, viewDir Vec3, eps float64) Color {
	var c Color
	for i := range s.Lights {
		light := &s.Lights[i]
		if s.InShadow(point, normal, light.Position, eps) {
			continue
		}
		lightDir := light.Position.Sub(point).Normalize()

		diffuse := math.Max(lightDir.Dot(normal), 0)
		c = c.Add(m.Color.Mul(m.Diffuse * diffuse * light.Intensity))

		halfway := lightDir.Add(viewDir).Normalize()
		spec := math.Pow(math.Max(halfway.Dot(normal), 0), m.Shininess)
		c = c.Add(White.Mul(m.Specular * spec * light.Intensity))
	}
	return c
}

// Trace follows a primary ray through at most params.MaxDepth surface
// interactions and returns the clamped color.
//
// Reflection is a bounded loop with the same attenuation and termination
// rule as the device program in internal/gpu/shaders/raytrace.wgsl.
func (s *Scene) Trace(r Ray, params RenderParams) Color {
	eps := params.Epsilon
	var color Color
	attenuation := 1.0
	reflecting := true

	for depth := 0; depth < params.MaxDepth && reflecting; depth++ {
		hit, ok := s.ClosestHit(r, eps, math.Inf(1))
		if !ok {
			color = color.Add(s.Background.Mul(attenuation))
			break
		}

		viewDir := r.Origin.Sub(hit.Point).Normalize()
		direct := s.Shade(hit.Point, hit.Normal, hit.Material, viewDir, eps)
		color = color.Add(direct.Mul(attenuation))

		reflecting = hit.Material.Reflectivity > 0
		if reflecting {
			attenuation *= hit.Material.Reflectivity
			r = Ray{
				Origin: hit.Point.Add(hit.Normal.Mul(eps)),
				Dir:    r.Dir.Reflect(hit.Normal),
			}
		}
	}
	return color.Clamp01()
}
