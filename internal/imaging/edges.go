package imaging

import (
	"image"
	"math"
)

// Canny thresholds matching the detector's tuning for slide content.
const (
	cannyLow  = 50
	cannyHigh = 150
)

// EdgeMap computes a binary Canny edge map (0 or 255 per pixel) for a
// grayscale image: Gaussian smoothing, Sobel gradients, non-maximum
// suppression and hysteresis thresholding.
func EdgeMap(g *image.Gray) *image.Gray {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w < 3 || h < 3 {
		return out
	}

	blurred := gaussianBlur(g, w, h)

	mag := make([]float64, w*h)
	dir := make([]uint8, w*h) // quantized gradient direction, 0..3
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -blurred[(y-1)*w+x-1] + blurred[(y-1)*w+x+1] +
				-2*blurred[y*w+x-1] + 2*blurred[y*w+x+1] +
				-blurred[(y+1)*w+x-1] + blurred[(y+1)*w+x+1]
			gy := blurred[(y-1)*w+x-1] + 2*blurred[(y-1)*w+x] + blurred[(y-1)*w+x+1] +
				-blurred[(y+1)*w+x-1] - 2*blurred[(y+1)*w+x] - blurred[(y+1)*w+x+1]
			mag[y*w+x] = math.Hypot(gx, gy)
			dir[y*w+x] = quantizeDirection(gx, gy)
		}
	}

	// Non-maximum suppression followed by double threshold.
	const (
		weak   = 1
		strong = 2
	)
	marks := make([]uint8, w*h)
	var stack []int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			m := mag[y*w+x]
			if m < cannyLow {
				continue
			}
			var n1, n2 float64
			switch dir[y*w+x] {
			case 0: // horizontal gradient
				n1, n2 = mag[y*w+x-1], mag[y*w+x+1]
			case 1: // diagonal /
				n1, n2 = mag[(y-1)*w+x+1], mag[(y+1)*w+x-1]
			case 2: // vertical gradient
				n1, n2 = mag[(y-1)*w+x], mag[(y+1)*w+x]
			default: // diagonal \
				n1, n2 = mag[(y-1)*w+x-1], mag[(y+1)*w+x+1]
			}
			if m < n1 || m < n2 {
				continue
			}
			if m >= cannyHigh {
				marks[y*w+x] = strong
				stack = append(stack, y*w+x)
			} else {
				marks[y*w+x] = weak
			}
		}
	}

	// Hysteresis: weak edges survive only when connected to a strong one.
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.Pix[idx] = 255
		y, x := idx/w, idx%w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				ny, nx := y+dy, x+dx
				if ny < 0 || ny >= h || nx < 0 || nx >= w {
					continue
				}
				nidx := ny*w + nx
				if marks[nidx] == weak {
					marks[nidx] = strong
					stack = append(stack, nidx)
				}
			}
		}
	}

	return out
}

// EdgeSimilarity compares two binary edge maps of equal size, returning
// 1 - (absolute difference normalized by the full-white image).
func EdgeSimilarity(a, b *image.Gray) (float64, error) {
	w, h := a.Bounds().Dx(), a.Bounds().Dy()
	if w != b.Bounds().Dx() || h != b.Bounds().Dy() {
		return 0, ErrSizeMismatch
	}
	if w == 0 || h == 0 {
		return 0, ErrSizeMismatch
	}
	var diff int64
	for y := 0; y < h; y++ {
		rowA := a.Pix[y*a.Stride : y*a.Stride+w]
		rowB := b.Pix[y*b.Stride : y*b.Stride+w]
		for x := 0; x < w; x++ {
			d := int64(rowA[x]) - int64(rowB[x])
			if d < 0 {
				d = -d
			}
			diff += d
		}
	}
	return 1 - float64(diff)/float64(w*h*255), nil
}

func quantizeDirection(gx, gy float64) uint8 {
	angle := math.Atan2(gy, gx) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}
	switch {
	case angle < 22.5 || angle >= 157.5:
		return 0
	case angle < 67.5:
		return 1
	case angle < 112.5:
		return 2
	default:
		return 3
	}
}

// gaussianBlur applies a separable 5x5 Gaussian (sigma ~1.4) and
// returns the result as float64 samples.
func gaussianBlur(g *image.Gray, w, h int) []float64 {
	kernel := [5]float64{0.1117, 0.2365, 0.3036, 0.2365, 0.1117}

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < w; x++ {
			var sum float64
			for k := -2; k <= 2; k++ {
				xx := clampInt(x+k, 0, w-1)
				sum += kernel[k+2] * float64(row[xx])
			}
			tmp[y*w+x] = sum
		}
	}

	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -2; k <= 2; k++ {
				yy := clampInt(y+k, 0, h-1)
				sum += kernel[k+2] * tmp[yy*w+x]
			}
			out[y*w+x] = sum
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
