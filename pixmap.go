package raytrace

import (
	"image"
	"image/color"
)

// PixelBuffer is a row-major RGBA float32 image with a top-left origin.
//
// The layout is identical to the device output buffer: 4 floats per pixel,
// index = y*width + x.
type PixelBuffer struct {
	width  int
	height int
	data   []float32
}

// NewPixelBuffer creates a zeroed buffer with the given dimensions.
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		width:  width,
		height: height,
		data:   make([]float32, width*height*4),
	}
}

// PixelBufferFromData wraps data, which must hold width*height*4 floats.
func PixelBufferFromData(width, height int, data []float32) *PixelBuffer {
	if len(data) != width*height*4 {
		return nil
	}
	return &PixelBuffer{width: width, height: height, data: data}
}

// Width returns the width of the buffer.
func (p *PixelBuffer) Width() int {
	return p.width
}

// Height returns the height of the buffer.
func (p *PixelBuffer) Height() int {
	return p.height
}

// Data returns the raw RGBA floats.
func (p *PixelBuffer) Data() []float32 {
	return p.data
}

// SetPixel stores c with alpha 1. Out-of-range coordinates are ignored.
func (p *PixelBuffer) SetPixel(x, y int, c Color) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	p.setIndex(y*p.width+x, c)
}

func (p *PixelBuffer) setIndex(i int, c Color) {
	d := p.data[i*4 : i*4+4 : i*4+4]
	d[0] = float32(c.X)
	d[1] = float32(c.Y)
	d[2] = float32(c.Z)
	d[3] = 1
}

// Pixel returns the RGB color at (x, y), or black when out of range.
func (p *PixelBuffer) Pixel(x, y int) Color {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return Black
	}
	i := (y*p.width + x) * 4
	return RGB(float64(p.data[i]), float64(p.data[i+1]), float64(p.data[i+2]))
}

// ToImage converts the buffer to 8-bit RGBA.
func (p *PixelBuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	for i := 0; i < p.width*p.height; i++ {
		img.Pix[i*4+0] = to8(p.data[i*4+0])
		img.Pix[i*4+1] = to8(p.data[i*4+1])
		img.Pix[i*4+2] = to8(p.data[i*4+2])
		img.Pix[i*4+3] = to8(p.data[i*4+3])
	}
	return img
}

// At implements the image.Image interface.
func (p *PixelBuffer) At(x, y int) color.Color {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return color.NRGBA{}
	}
	i := (y*p.width + x) * 4
	return color.NRGBA{
		R: to8(p.data[i+0]),
		G: to8(p.data[i+1]),
		B: to8(p.data[i+2]),
		A: to8(p.data[i+3]),
	}
}

// Bounds implements the image.Image interface.
func (p *PixelBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *PixelBuffer) ColorModel() color.Model {
	return color.NRGBAModel
}

func to8(v float32) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
