package raytrace

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestPixelBufferSetPixel(t *testing.T) {
	p := NewPixelBuffer(4, 3)
	if len(p.Data()) != 4*3*4 {
		t.Fatalf("len(Data) = %d, want 48", len(p.Data()))
	}

	p.SetPixel(2, 1, RGB(0.25, 0.5, 1))
	i := (1*4 + 2) * 4
	d := p.Data()
	if d[i] != 0.25 || d[i+1] != 0.5 || d[i+2] != 1 || d[i+3] != 1 {
		t.Errorf("pixel floats = %v, want [0.25 0.5 1 1]", d[i:i+4])
	}
	if got := p.Pixel(2, 1); got != RGB(0.25, 0.5, 1) {
		t.Errorf("Pixel = %v", got)
	}

	// Out of range is ignored / black.
	p.SetPixel(4, 0, White)
	p.SetPixel(-1, 0, White)
	if got := p.Pixel(10, 10); got != Black {
		t.Errorf("out of range Pixel = %v, want black", got)
	}
}

func TestPixelBufferFromData(t *testing.T) {
	if PixelBufferFromData(2, 2, make([]float32, 15)) != nil {
		t.Error("wrong length should return nil")
	}
	data := make([]float32, 16)
	p := PixelBufferFromData(2, 2, data)
	if p == nil || p.Width() != 2 || p.Height() != 2 {
		t.Fatalf("PixelBufferFromData = %v", p)
	}
}

func TestPixelBufferImage(t *testing.T) {
	p := NewPixelBuffer(2, 1)
	p.SetPixel(0, 0, RGB(1, 0, 0.5))
	p.SetPixel(1, 0, RGB(-1, 2, 0))

	var img image.Image = p
	if img.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Errorf("Bounds = %v", img.Bounds())
	}
	if got := img.At(0, 0); got != (color.NRGBA{R: 255, G: 0, B: 128, A: 255}) {
		t.Errorf("At(0,0) = %v", got)
	}
	if got := img.At(1, 0); got != (color.NRGBA{R: 0, G: 255, B: 0, A: 255}) {
		t.Errorf("At(1,0) = %v, want clamped", got)
	}

	rgba := p.ToImage()
	if rgba.Pix[0] != 255 || rgba.Pix[2] != 128 || rgba.Pix[3] != 255 {
		t.Errorf("ToImage pixel 0 = %v", rgba.Pix[:4])
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, p); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if decoded.Bounds() != p.Bounds() {
		t.Errorf("decoded bounds = %v", decoded.Bounds())
	}
}
