package fingerprint

import "math"

// dct2d computes the orthonormal 2-D type-II DCT of a square matrix,
// rows then columns. Input size is the downscaled hash source (32x32
// for the default configuration), so the direct O(n^3) transform is
// cheap enough.
func dct2d(src [][]float64) [][]float64 {
	n := len(src)
	tmp := make([][]float64, n)
	for y := range tmp {
		tmp[y] = dct1d(src[y])
	}

	out := make([][]float64, n)
	col := make([]float64, n)
	for y := range out {
		out[y] = make([]float64, n)
	}
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			col[y] = tmp[y][x]
		}
		t := dct1d(col)
		for y := 0; y < n; y++ {
			out[y][x] = t[y]
		}
	}
	return out
}

func dct1d(src []float64) []float64 {
	n := len(src)
	out := make([]float64, n)
	scale0 := math.Sqrt(1 / float64(n))
	scale := math.Sqrt(2 / float64(n))
	for k := 0; k < n; k++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += src[i] * math.Cos(math.Pi*(float64(i)+0.5)*float64(k)/float64(n))
		}
		if k == 0 {
			out[k] = sum * scale0
		} else {
			out[k] = sum * scale
		}
	}
	return out
}
