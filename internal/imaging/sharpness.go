package imaging

import "image"

// Sharpness returns the variance of the Laplacian of a grayscale image.
// In-focus, detail-rich frames score higher; a flat frame scores 0. Used
// to pick the canonical frame inside a slide group.
func Sharpness(g *image.Gray) float64 {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	if w < 3 || h < 3 {
		return 0
	}

	n := (w - 2) * (h - 2)
	resp := make([]float64, 0, n)
	var sum float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			center := float64(g.Pix[y*g.Stride+x])
			lap := float64(g.Pix[(y-1)*g.Stride+x]) +
				float64(g.Pix[(y+1)*g.Stride+x]) +
				float64(g.Pix[y*g.Stride+x-1]) +
				float64(g.Pix[y*g.Stride+x+1]) -
				4*center
			resp = append(resp, lap)
			sum += lap
		}
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range resp {
		d := v - mean
		variance += d * d
	}
	return variance / float64(n)
}
