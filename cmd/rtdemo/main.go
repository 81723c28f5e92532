// Command rtdemo renders a demo scene with the raytrace library.
//
// The backend defaults to $RAYTRACE_BACKEND (cpu or gpu), else cpu. With
// -progressive every pass is written as <output>_pass<N>.png before the
// final image.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/gogpu/raytrace"
	_ "github.com/gogpu/raytrace/gpu" // enable GPU rendering
)

func main() {
	var (
		width       = flag.Int("width", 800, "image width")
		height      = flag.Int("height", 600, "image height")
		samples     = flag.Int("samples", 16, "samples per pixel")
		depth       = flag.Int("depth", raytrace.DefaultMaxDepth, "maximum reflection depth")
		backendName = flag.String("backend", envOr("RAYTRACE_BACKEND", "cpu"), "rendering backend: cpu or gpu")
		progressive = flag.Bool("progressive", false, "render 1, 2, 4, ... samples and save every pass")
		workers     = flag.Int("workers", 0, "CPU worker count (0 = GOMAXPROCS)")
		output      = flag.String("output", "render.png", "output file")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	raytrace.SetLogger(logger)

	backend, err := raytrace.ParseBackend(*backendName)
	if err != nil {
		log.Fatal(err)
	}

	params := raytrace.DefaultRenderParams(*width, *height)
	params.Samples = *samples
	params.MaxDepth = *depth
	job := raytrace.Job{
		Scene:  demoScene(),
		Camera: raytrace.NewCamera(raytrace.V3(0, 1, 3), raytrace.V3(0, 0.5, -4), 60, 0),
		Params: params,
	}

	r := raytrace.NewRenderer(
		raytrace.WithBackend(backend),
		raytrace.WithAdaptive(*progressive),
		raytrace.WithWorkers(*workers),
	)
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	final, err := r.Run(ctx, job, func(f *raytrace.Frame) error {
		logger.Info("pass complete",
			"pass", f.Pass, "passes", f.Passes, "samples", f.Samples,
			"backend", f.Backend.String(), "elapsed", f.Elapsed)
		if f.Memory != nil {
			logger.Debug("gpu memory", "report", f.Memory.String())
		}
		if f.Passes > 1 && f.Pass < f.Passes {
			return savePNG(passName(*output, f.Pass), f.Buffer)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("render failed: %v", err)
	}
	if final.FallbackErr != nil {
		logger.Warn("rendered on CPU after GPU failure", "err", final.FallbackErr)
	}

	if err := savePNG(*output, final.Buffer); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Render saved to %s (%dx%d, %d spp, %s)\n",
		*output, *width, *height, final.Samples, final.Backend)
}

// demoScene returns three spheres of different finishes on a mirror-ish
// floor, lit by two point lights.
func demoScene() *raytrace.Scene {
	return &raytrace.Scene{
		Spheres: []raytrace.Sphere{
			{
				Center: raytrace.V3(0, 1, -5),
				Radius: 1,
				Material: raytrace.Material{
					Color: raytrace.RGB(0.9, 0.2, 0.2), Diffuse: 0.7, Specular: 0.5, Shininess: 64, Reflectivity: 0.2,
				},
			},
			{
				Center: raytrace.V3(-2.2, 0.7, -6),
				Radius: 0.7,
				Material: raytrace.Material{
					Color: raytrace.RGB(0.4, 0.4, 1.0), Diffuse: 0.8, Specular: 0.2, Shininess: 16,
				},
			},
			{
				Center: raytrace.V3(2, 0.8, -4.5),
				Radius: 0.8,
				Material: raytrace.Material{
					Color: raytrace.RGB(0.9, 0.9, 0.9), Diffuse: 0.1, Specular: 0.9, Shininess: 256, Reflectivity: 0.8,
				},
			},
		},
		Planes: []raytrace.Plane{
			raytrace.NewPlane(raytrace.V3(0, 0, 0), raytrace.V3(0, 1, 0), raytrace.Material{
				Color: raytrace.RGB(0.8, 0.8, 0.7), Diffuse: 0.6, Specular: 0.1, Shininess: 8, Reflectivity: 0.3,
			}),
		},
		Lights: []raytrace.Light{
			{Position: raytrace.V3(5, 6, 0), Intensity: 0.8},
			{Position: raytrace.V3(-4, 4, -1), Intensity: 0.4},
		},
		Background: raytrace.RGB(0.8, 0.8, 0.8),
	}
}

func savePNG(path string, buf *raytrace.PixelBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func passName(output string, pass int) string {
	base := strings.TrimSuffix(output, ".png")
	return fmt.Sprintf("%s_pass%d.png", base, pass)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
