package imaging

import (
	"image"
	"math"
	"testing"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// leftWhite fills the left half white, the right half black.
func leftWhite(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			g.Pix[y*g.Stride+x] = 255
		}
	}
	return g
}

// topWhite fills the top half white, the bottom half black.
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

func TestHistogram_SumsToOne(t *testing.T) {
	hist := Histogram(leftWhite(320, 240))

	var sum float64
	for _, v := range hist {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("histogram sum = %f, want 1", sum)
	}
	if math.Abs(hist[0]-0.5) > 1e-9 || math.Abs(hist[255]-0.5) > 1e-9 {
		t.Errorf("histogram bins 0/255 = %f/%f, want 0.5/0.5", hist[0], hist[255])
	}
}

func TestHistogram_SubImage(t *testing.T) {
	// A crop with non-zero bounds must histogram the same pixels as an
	// anchored copy of that crop.
	full := leftWhite(320, 240)
	crop := full.SubImage(image.Rect(100, 50, 300, 200)).(*image.Gray)

	anchored := image.NewGray(image.Rect(0, 0, 200, 150))
	for y := 0; y < 150; y++ {
		for x := 0; x < 200; x++ {
			anchored.Pix[y*anchored.Stride+x] = full.Pix[(y+50)*full.Stride+(x+100)]
		}
	}

	got, want := Histogram(crop), Histogram(anchored)
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("bin %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestMeanGray(t *testing.T) {
	if got := MeanGray(uniformGray(320, 240, 77)); got != 77 {
		t.Errorf("MeanGray(uniform 77) = %f, want 77", got)
	}
	if got := MeanGray(leftWhite(320, 240)); math.Abs(got-127.5) > 1e-9 {
		t.Errorf("MeanGray(half white) = %f, want 127.5", got)
	}
	if got := MeanGray(image.NewGray(image.Rect(0, 0, 0, 0))); got != 0 {
		t.Errorf("MeanGray(empty) = %f, want 0", got)
	}

	full := leftWhite(320, 240)
	crop := full.SubImage(image.Rect(0, 0, 160, 240)).(*image.Gray)
	if got := MeanGray(crop); got != 255 {
		t.Errorf("MeanGray(white crop) = %f, want 255", got)
	}
}

func TestHistogramCorrelation_Identical(t *testing.T) {
	hist := Histogram(leftWhite(320, 240))

	if corr := HistogramCorrelation(&hist, &hist); math.Abs(corr-1) > 1e-9 {
		t.Errorf("HistogramCorrelation(h, h) = %f, want 1", corr)
	}
}

func TestHistogramCorrelation_DifferentDistributions(t *testing.T) {
	// 25% white vs 75% white: same two populated bins with swapped
	// weights should fall well below the coarse trigger.
	a := image.NewGray(image.Rect(0, 0, 320, 240))
	b := image.NewGray(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			if y < 60 {
				a.Pix[y*a.Stride+x] = 255
			}
			if y >= 60 {
				b.Pix[y*b.Stride+x] = 255
			}
		}
	}

	histA, histB := Histogram(a), Histogram(b)
	corr := HistogramCorrelation(&histA, &histB)
	if corr >= 0.95 {
		t.Errorf("correlation of swapped distributions = %f, want < 0.95", corr)
	}
}

func TestHistogramCorrelation_FlatHistograms(t *testing.T) {
	var flat, spike [256]float64
	for i := range flat {
		flat[i] = 1.0 / 256
	}
	spike[0] = 1

	if corr := HistogramCorrelation(&flat, &flat); corr != 1 {
		t.Errorf("flat vs flat = %f, want 1", corr)
	}
	if corr := HistogramCorrelation(&flat, &spike); corr != 0 {
		t.Errorf("flat vs spike = %f, want 0", corr)
	}
}

func TestSSIM_IdenticalImages(t *testing.T) {
	g := checkerboard(320, 240, 16)

	score, err := SSIM(g, g)
	if err != nil {
		t.Fatalf("SSIM() error = %v", err)
	}
	if math.Abs(score-1) > 1e-9 {
		t.Errorf("SSIM(g, g) = %f, want 1", score)
	}
}

func TestSSIM_SizeMismatch(t *testing.T) {
	a := uniformGray(320, 240, 128)
	b := uniformGray(160, 120, 128)

	if _, err := SSIM(a, b); err == nil {
		t.Error("SSIM() should return error for mismatched sizes")
	}
}

func TestSSIM_DistinctLayouts(t *testing.T) {
	// Same histogram, different structure: the case the coarse
	// histogram trigger cannot see but SSIM must.
	a := leftWhite(320, 240)
	b := topWhite(320, 240)

	score, err := SSIM(a, b)
	if err != nil {
		t.Fatalf("SSIM() error = %v", err)
	}
	if score >= 0.85 {
		t.Errorf("SSIM of distinct layouts = %f, want < 0.85", score)
	}
}

func TestEdgeSimilarity_IdenticalMaps(t *testing.T) {
	edges := EdgeMap(leftWhite(320, 240))

	sim, err := EdgeSimilarity(edges, edges)
	if err != nil {
		t.Fatalf("EdgeSimilarity() error = %v", err)
	}
	if math.Abs(sim-1) > 1e-9 {
		t.Errorf("EdgeSimilarity(e, e) = %f, want 1", sim)
	}
}

func TestEdgeSimilarity_DifferentMaps(t *testing.T) {
	a := EdgeMap(leftWhite(320, 240))
	b := EdgeMap(topWhite(320, 240))

	sim, err := EdgeSimilarity(a, b)
	if err != nil {
		t.Fatalf("EdgeSimilarity() error = %v", err)
	}
	if sim >= 1 {
		t.Errorf("EdgeSimilarity of different maps = %f, want < 1", sim)
	}
}

func TestEdgeMap_UniformImage(t *testing.T) {
	edges := EdgeMap(uniformGray(320, 240, 128))
	for i, v := range edges.Pix {
		if v != 0 {
			t.Fatalf("edge map of uniform image has non-zero pixel at %d", i)
		}
	}
}

func TestTextRegionCount_TextLikeBands(t *testing.T) {
	// Three bands of alternating vertical strokes, mimicking lines of
	// rendered text, separated by blank rows.
	g := image.NewGray(image.Rect(0, 0, 320, 240))
	for _, top := range []int{40, 100, 160} {
		for y := top; y < top+10; y++ {
			for x := 60; x < 260; x++ {
				if (x/2)%2 == 0 {
					g.Pix[y*g.Stride+x] = 255
				}
			}
		}
	}

	if n := TextRegionCount(g); n != 3 {
		t.Errorf("TextRegionCount() = %d, want 3", n)
	}
}

func TestTextRegionCount_UniformImage(t *testing.T) {
	if n := TextRegionCount(uniformGray(320, 240, 128)); n != 0 {
		t.Errorf("TextRegionCount() = %d, want 0", n)
	}
}

func TestSharpness_Ordering(t *testing.T) {
	flat := Sharpness(uniformGray(320, 240, 128))
	coarse := Sharpness(checkerboard(320, 240, 8))
	fine := Sharpness(checkerboard(320, 240, 1))

	if flat != 0 {
		t.Errorf("Sharpness(uniform) = %f, want 0", flat)
	}
	if coarse <= flat {
		t.Errorf("Sharpness(coarse checker) = %f, want > %f", coarse, flat)
	}
	if fine <= coarse {
		t.Errorf("Sharpness(fine checker) = %f, want > %f (coarse)", fine, coarse)
	}
}

func TestResize_Dimensions(t *testing.T) {
	src := checkerboard(640, 480, 16)

	small := Resize(src, 320, 240)
	if got := small.Bounds(); got.Dx() != 320 || got.Dy() != 240 {
		t.Errorf("Resize() bounds = %v, want 320x240", got)
	}

	// Resizing to the current size must not copy.
	same := Resize(src, 640, 480)
	if same != src {
		t.Error("Resize() to identical size should return the input")
	}
}

func TestWorkingCopy_FromRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 200, 100, 50, 255
	}

	g := WorkingCopy(src, 320, 240)
	if got := g.Bounds(); got.Dx() != 320 || got.Dy() != 240 {
		t.Errorf("WorkingCopy() bounds = %v, want 320x240", got)
	}
	// Luma of (200, 100, 50) is mid-range; anything near-black or
	// near-white means a channel got dropped.
	v := g.Pix[120*g.Stride+160]
	if v < 80 || v > 180 {
		t.Errorf("WorkingCopy() center luma = %d, want mid-range", v)
	}
}
