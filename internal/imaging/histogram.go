package imaging

import (
	"image"
	"math"
)

// Histogram computes a normalized 256-bin intensity histogram. Bins sum
// to 1 for any non-empty image.
func Histogram(g *image.Gray) [256]float64 {
	var hist [256]float64
	b := g.Bounds()
	total := float64(b.Dx() * b.Dy())
	if total == 0 {
		return hist
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x]]++
		}
	}
	for i := range hist {
		hist[i] /= total
	}
	return hist
}

// HistogramCorrelation returns the Pearson correlation between two
// histograms, clamped to [0, 1]. Identical distributions score 1.
// Correlation is invariant to histogram scaling, so normalized and raw
// counts compare identically.
func HistogramCorrelation(a, b *[256]float64) float64 {
	var meanA, meanB float64
	for i := 0; i < 256; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= 256
	meanB /= 256

	var cov, varA, varB float64
	for i := 0; i < 256; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		// Flat histograms: identical means perfect correlation,
		// otherwise no signal to correlate.
		if varA == varB {
			return 1
		}
		return 0
	}
	corr := cov / math.Sqrt(varA*varB)
	if corr < 0 {
		return 0
	}
	if corr > 1 {
		return 1
	}
	return corr
}
