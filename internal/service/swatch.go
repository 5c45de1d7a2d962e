package service

import (
	"image/color"
	"io"

	"ambient-light-meter/internal/model"
	"github.com/disintegration/imaging"
)

const (
	DefaultSwatchSize = 64
	MaxSwatchSize     = 512
)

// RenderSwatch writes a size x size PNG filled with c.
func RenderSwatch(w io.Writer, c model.RGB, size int) error {
	if size <= 0 {
		size = DefaultSwatchSize
	}
	if size > MaxSwatchSize {
		size = MaxSwatchSize
	}
	img := imaging.New(size, size, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xFF})
	return imaging.Encode(w, img, imaging.PNG)
}
