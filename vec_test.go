package raytrace

import (
	"math"
	"testing"
)

const vecEps = 1e-9

func vecNear(a, b Vec3, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps && math.Abs(a.Z-b.Z) <= eps
}

func TestVec3Arithmetic(t *testing.T) {
	a := V3(1, 2, 3)
	b := V3(4, -5, 6)

	tests := []struct {
		name string
		got  Vec3
		want Vec3
	}{
		{"Add", a.Add(b), V3(5, -3, 9)},
		{"Sub", a.Sub(b), V3(-3, 7, -3)},
		{"Mul", a.Mul(2), V3(2, 4, 6)},
		{"MulVec", a.MulVec(b), V3(4, -10, 18)},
		{"Neg", a.Neg(), V3(-1, -2, -3)},
		{"Cross", V3(1, 0, 0).Cross(V3(0, 1, 0)), V3(0, 0, 1)},
		{"Reflect", V3(1, -1, 0).Reflect(V3(0, 1, 0)), V3(1, 1, 0)},
		{"Clamp01", V3(-0.5, 0.5, 1.5).Clamp01(), V3(0, 0.5, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !vecNear(tt.got, tt.want, vecEps) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if got := a.Dot(b); got != 12 {
		t.Errorf("Dot = %v, want 12", got)
	}
	if got := V3(3, 4, 0).Length(); got != 5 {
		t.Errorf("Length = %v, want 5", got)
	}
	if got := V3(3, 4, 0).LengthSq(); got != 25 {
		t.Errorf("LengthSq = %v, want 25", got)
	}
}

func TestVec3Normalize(t *testing.T) {
	vectors := []Vec3{
		V3(1, 0, 0),
		V3(3, 4, 0),
		V3(-2, 7, 11),
		V3(1e-6, 2e-6, -3e-6),
		V3(1e6, -1e6, 5e5),
	}
	for _, v := range vectors {
		n := v.Normalize()
		if l := n.Length(); math.Abs(l-1) > vecEps {
			t.Errorf("Normalize(%v) length = %v, want 1", v, l)
		}
		if n.Dot(v) <= 0 {
			t.Errorf("Normalize(%v) = %v changed direction", v, n)
		}
	}

	z := Vec3{}.Normalize()
	if !z.IsZero() {
		t.Errorf("Normalize(zero) = %v, want zero", z)
	}
	if math.IsNaN(z.X) || math.IsNaN(z.Y) || math.IsNaN(z.Z) {
		t.Error("Normalize(zero) produced NaN")
	}
}

func TestVec3CrossIsOrthogonal(t *testing.T) {
	a := V3(0.3, -1.2, 2.5)
	b := V3(4, 0.5, -1)
	c := a.Cross(b)
	if d := c.Dot(a); math.Abs(d) > vecEps {
		t.Errorf("cross·a = %v, want 0", d)
	}
	if d := c.Dot(b); math.Abs(d) > vecEps {
		t.Errorf("cross·b = %v, want 0", d)
	}
}
