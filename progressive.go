package raytrace

import (
	"context"
	"fmt"
)

// SampleSchedule returns the per-pass sample counts for progressive
// rendering up to target: 1, 2, 4, ... while below target, then target.
// The schedule has ⌈log2(target)⌉+1 entries and always ends at target.
func SampleSchedule(target int) []int {
	if target < 1 {
		return nil
	}
	var steps []int
	for n := 1; n < target; n *= 2 {
		steps = append(steps, n)
	}
	return append(steps, target)
}

// RenderProgressive renders job once per SampleSchedule step. Every pass
// is a complete, independent render; emit is called with each frame before
// the next pass starts. Cancellation is honoured between passes only.
//
// The returned frame is the last completed one, which equals a plain Render
// at job.Params.Samples when every pass ran.
func (r *Renderer) RenderProgressive(ctx context.Context, job Job, emit func(*Frame) error) (*Frame, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	steps := SampleSchedule(job.Params.Samples)
	var last *Frame
	for i, samples := range steps {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		f, err := r.renderPass(ctx, job.WithSamples(samples))
		if err != nil {
			return last, fmt.Errorf("pass %d (%d samples): %w", i+1, samples, err)
		}
		f.Pass = i + 1
		f.Passes = len(steps)

		Logger().Debug("progressive pass",
			"pass", f.Pass, "passes", f.Passes, "samples", samples,
			"backend", f.Backend.String(), "elapsed", f.Elapsed)

		last = f
		if emit != nil {
			if err := emit(f); err != nil {
				return last, err
			}
		}
	}
	return last, nil
}

// RenderProgressiveAsync runs RenderProgressive in a goroutine and delivers
// frames on an unbuffered channel, so a pass does not start until the
// previous frame has been received. Both channels are closed when rendering
// ends; at most one error is sent.
func (r *Renderer) RenderProgressiveAsync(ctx context.Context, job Job) (<-chan *Frame, <-chan error) {
	frames := make(chan *Frame)
	errc := make(chan error, 1)

	go func() {
		defer close(frames)
		defer close(errc)

		_, err := r.RenderProgressive(ctx, job, func(f *Frame) error {
			select {
			case frames <- f:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errc <- err
		}
	}()

	return frames, errc
}
