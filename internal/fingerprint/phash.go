package fingerprint

import (
	"image"

	"github.com/zinojeng/video2summary/internal/imaging"
)

// PHash computes a perceptual hash: downscale to (size*4)x(size*4),
// 2-D DCT, keep the low-frequency size x size block, and threshold each
// coefficient against the block mean computed without the DC term.
// Robust to scaling and compression noise; this is the authoritative
// hash for grouping.
func PHash(g *image.Gray, size int) Hash {
	side := size * 4
	small := imaging.Resize(g, side, side)

	src := make([][]float64, side)
	for y := 0; y < side; y++ {
		src[y] = make([]float64, side)
		row := small.Pix[y*small.Stride:]
		for x := 0; x < side; x++ {
			src[y][x] = float64(row[x])
		}
	}

	dct := dct2d(src)

	var sum float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			sum += dct[y][x]
		}
	}
	avg := (sum - dct[0][0]) / float64(size*size-1)

	var bits uint64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			bits <<= 1
			if dct[y][x] > avg {
				bits |= 1
			}
		}
	}
	return NewHash(bits, size*size)
}
