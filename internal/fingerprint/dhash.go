package fingerprint

import (
	"image"

	"github.com/zinojeng/video2summary/internal/imaging"
)

// DHash computes a difference hash: downscale to (size+1) x size and
// take the sign of each horizontal adjacent-pixel gradient. Cheaper
// than PHash and sensitive to edges; retained as a secondary signal.
func DHash(g *image.Gray, size int) Hash {
	small := imaging.Resize(g, size+1, size)

	var bits uint64
	for y := 0; y < size; y++ {
		row := small.Pix[y*small.Stride:]
		for x := 0; x < size; x++ {
			bits <<= 1
			if row[x+1] > row[x] {
				bits |= 1
			}
		}
	}
	return NewHash(bits, size*size)
}
