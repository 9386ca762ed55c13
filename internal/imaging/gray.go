// Package imaging implements the grayscale image metrics used by slide
// detection: histogram correlation, SSIM, edge maps, text-region counts
// and sharpness. All functions operate on *image.Gray working copies and
// are pure; callers own the buffers they pass in.
package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// ToGray converts an image to 8-bit grayscale using the standard
// luminance weights.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// Resize scales a grayscale image to w x h using bilinear interpolation.
func Resize(src *image.Gray, w, h int) *image.Gray {
	if src.Bounds().Dx() == w && src.Bounds().Dy() == h {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// WorkingCopy converts a frame to grayscale and downscales it to the
// fixed comparison size used by the scanners.
func WorkingCopy(img image.Image, w, h int) *image.Gray {
	return Resize(ToGray(img), w, h)
}

// MeanGray returns the average intensity of a grayscale image, or 0 for
// an empty one.
func MeanGray(g *image.Gray) float64 {
	b := g.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			sum += uint64(row[x])
		}
	}
	return float64(sum) / float64(total)
}

// grayValue reads a pixel without the color model indirection.
func grayValue(g *image.Gray, x, y int) uint8 {
	return g.Pix[(y-g.Rect.Min.Y)*g.Stride+(x-g.Rect.Min.X)]
}
