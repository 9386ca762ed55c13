package fingerprint

import (
	"image"
	"math"

	"github.com/zinojeng/video2summary/internal/imaging"
)

// Fingerprint is the durable perceptual signature of an accepted slide
// frame. The histogram is kept in memory for triage but not persisted.
//
// MeanLuma disambiguates frames the DCT hashes cannot: a near-uniform
// frame has no AC energy, so two different solid colors produce almost
// identical pHashes. Their mean intensities still differ.
type Fingerprint struct {
	PHash     Hash         `json:"phash"`
	DHash     Hash         `json:"dhash"`
	MeanLuma  uint8        `json:"mean_luma"`
	Histogram [256]float64 `json:"-"`
}

// Compute fingerprints a frame. The frame buffer is not retained.
func Compute(img image.Image) Fingerprint {
	g := imaging.ToGray(img)
	return ComputeGray(g)
}

// ComputeGray fingerprints an already-grayscale frame.
func ComputeGray(g *image.Gray) Fingerprint {
	return Fingerprint{
		PHash:     PHash(g, DefaultHashSize),
		DHash:     DHash(g, DefaultHashSize),
		MeanLuma:  uint8(math.Min(255, math.Round(imaging.MeanGray(g)))),
		Histogram: imaging.Histogram(g),
	}
}
