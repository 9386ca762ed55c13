package detect

import (
	"image"
	"io"
	"log/slog"

	"github.com/zinojeng/video2summary/internal/fingerprint"
	"github.com/zinojeng/video2summary/internal/video"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// topBand draws a white band of the given height over black. Inverting
// the band yields a frame with a shifted histogram and a near-opposite
// perceptual hash, which is what a hard slide cut looks like to the
// pipeline.
func topBand(w, h, band int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < band; y++ {
		for x := 0; x < w; x++ {
			g.Pix[y*g.Stride+x] = 255
		}
	}
	return g
}

func invert(src *image.Gray) *image.Gray {
	g := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		g.Pix[i] = 255 - v
	}
	return g
}

// leftWhite and topWhite share a histogram but differ structurally:
// invisible to the coarse pass, obvious to SSIM.
func leftWhite(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			g.Pix[y*g.Stride+x] = 255
		}
	}
	return g
}

func topWhite(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h/2; y++ {
		for x := 0; x < w; x++ {
			g.Pix[y*g.Stride+x] = 255
		}
	}
	return g
}

func checkerboard(w, h, cell int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if ((x/cell)+(y/cell))%2 == 0 {
				g.Pix[y*g.Stride+x] = 255
			}
		}
	}
	return g
}

func solidGray(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// solidSource builds the degenerate recording: one solid color for the
// first half, a hard cut to a different solid color for the second
// half. Uniform frames have no DCT energy, so their pHashes collide;
// only the mean intensity tells the two slides apart.
func solidSource(totalFrames int, fps float64, a, b uint8) *video.MemorySource {
	slideA := solidGray(workingWidth, workingHeight, a)
	slideB := solidGray(workingWidth, workingHeight, b)

	frames := make([]image.Image, totalFrames)
	for i := range frames {
		if i < totalFrames/2 {
			frames[i] = slideA
		} else {
			frames[i] = slideB
		}
	}
	return video.NewMemorySource("solid.mp4", frames, fps)
}

// twoSlideSource builds a synthetic recording: slide A for the first
// half, a hard cut to slide B for the second half.
func twoSlideSource(totalFrames int, fps float64) *video.MemorySource {
	slideA := topBand(workingWidth, workingHeight, workingHeight/4)
	slideB := invert(slideA)

	frames := make([]image.Image, totalFrames)
	for i := range frames {
		if i < totalFrames/2 {
			frames[i] = slideA
		} else {
			frames[i] = slideB
		}
	}
	return video.NewMemorySource("synthetic.mp4", frames, fps)
}

func testParams() Params {
	p := DefaultParams()
	p.Workers = 2
	return p
}

// makeFingerprint builds a fingerprint with fixed 64-bit hashes, for
// tests that exercise grouping without real frames.
func makeFingerprint(bits uint64) fingerprint.Fingerprint {
	return fingerprint.Fingerprint{
		PHash: fingerprint.NewHash(bits, 64),
		DHash: fingerprint.NewHash(bits, 64),
	}
}
