package markericon

import (
	"image"

	"golang.org/x/image/draw"
)

// ScaleDouble returns a copy of img with twice its width and height
func ScaleDouble(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	scaled := image.NewRGBA(image.Rect(0, 0, bounds.Dx()*2, bounds.Dy()*2))

	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Src, nil)

	return scaled
}
