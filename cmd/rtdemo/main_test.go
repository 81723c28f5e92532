package main

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/raytrace"
)

func TestPassName(t *testing.T) {
	tests := []struct {
		output string
		pass   int
		want   string
	}{
		{"render.png", 1, "render_pass1.png"},
		{"out/frame.png", 3, "out/frame_pass3.png"},
		{"noext", 2, "noext_pass2.png"},
	}
	for _, tt := range tests {
		if got := passName(tt.output, tt.pass); got != tt.want {
			t.Errorf("passName(%q, %d) = %q, want %q", tt.output, tt.pass, got, tt.want)
		}
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("RTDEMO_TEST_BACKEND", "")
	if got := envOr("RTDEMO_TEST_BACKEND", "cpu"); got != "cpu" {
		t.Errorf("unset: got %q, want cpu", got)
	}
	t.Setenv("RTDEMO_TEST_BACKEND", "gpu")
	if got := envOr("RTDEMO_TEST_BACKEND", "cpu"); got != "gpu" {
		t.Errorf("set: got %q, want gpu", got)
	}
}

func TestDemoSceneRendersToPNG(t *testing.T) {
	params := raytrace.DefaultRenderParams(32, 24)
	job := raytrace.Job{
		Scene:  demoScene(),
		Camera: raytrace.NewCamera(raytrace.V3(0, 1, 3), raytrace.V3(0, 0.5, -4), 60, 0),
		Params: params,
	}

	r := raytrace.NewSoftwareRenderer(2)
	defer r.Close()
	buf, err := r.Render(context.Background(), job)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	path := filepath.Join(t.TempDir(), "demo.png")
	if err := savePNG(path, buf); err != nil {
		t.Fatalf("savePNG: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("bounds = %v, want 32x24", b)
	}
}
