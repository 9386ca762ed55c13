package imaging

import (
	"errors"
	"image"
)

// SSIM window constants for 8-bit images (K1=0.01, K2=0.03, L=255).
const (
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)

	ssimWindow = 8
)

// ErrSizeMismatch is returned when two images of different dimensions
// are compared.
var ErrSizeMismatch = errors.New("imaging: image dimensions differ")

// SSIM computes the mean structural similarity between two grayscale
// images of equal size. The images are compared in non-overlapping
// 8x8 windows; the result is the mean window score in [-1, 1], where 1
// means structurally identical.
func SSIM(a, b *image.Gray) (float64, error) {
	w, h := a.Bounds().Dx(), a.Bounds().Dy()
	if w != b.Bounds().Dx() || h != b.Bounds().Dy() {
		return 0, ErrSizeMismatch
	}
	if w == 0 || h == 0 {
		return 0, ErrSizeMismatch
	}

	var sum float64
	var windows int
	for wy := 0; wy < h; wy += ssimWindow {
		for wx := 0; wx < w; wx += ssimWindow {
			ww := min(ssimWindow, w-wx)
			wh := min(ssimWindow, h-wy)
			sum += windowSSIM(a, b, wx, wy, ww, wh)
			windows++
		}
	}
	return sum / float64(windows), nil
}

func windowSSIM(a, b *image.Gray, x0, y0, w, h int) float64 {
	n := float64(w * h)

	var sumA, sumB float64
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			sumA += float64(grayValue(a, a.Rect.Min.X+x, a.Rect.Min.Y+y))
			sumB += float64(grayValue(b, b.Rect.Min.X+x, b.Rect.Min.Y+y))
		}
	}
	muA := sumA / n
	muB := sumB / n

	var varA, varB, cov float64
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			da := float64(grayValue(a, a.Rect.Min.X+x, a.Rect.Min.Y+y)) - muA
			db := float64(grayValue(b, b.Rect.Min.X+x, b.Rect.Min.Y+y)) - muB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	denom := n - 1
	if denom < 1 {
		denom = 1
	}
	varA /= denom
	varB /= denom
	cov /= denom

	num := (2*muA*muB + ssimC1) * (2*cov + ssimC2)
	den := (muA*muA + muB*muB + ssimC1) * (varA + varB + ssimC2)
	return num / den
}
