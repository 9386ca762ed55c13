package fingerprint

import (
	"encoding/json"
	"image"
	"testing"
)

// slideImage draws a top band of white over black, a crude stand-in
// for a title slide.
func slideImage(w, h, band int) *image.Gray {
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

func TestHammingSimilarity_Reflexive(t *testing.T) {
	h := PHash(slideImage(256, 256, 64), DefaultHashSize)

	sim, err := HammingSimilarity(h, h)
	if err != nil {
		t.Fatalf("HammingSimilarity() error = %v", err)
	}
	if sim != 1 {
		t.Errorf("HammingSimilarity(h, h) = %f, want 1", sim)
	}
}

func TestHammingSimilarity_Symmetric(t *testing.T) {
	a := PHash(slideImage(256, 256, 64), DefaultHashSize)
	b := PHash(slideImage(256, 256, 192), DefaultHashSize)

	ab, err := HammingSimilarity(a, b)
	if err != nil {
		t.Fatalf("HammingSimilarity() error = %v", err)
	}
	ba, err := HammingSimilarity(b, a)
	if err != nil {
		t.Fatalf("HammingSimilarity() error = %v", err)
	}
	if ab != ba {
		t.Errorf("similarity not symmetric: %f vs %f", ab, ba)
	}
}

func TestHammingSimilarity_LengthMismatch(t *testing.T) {
	a := NewHash(0, 64)
	b := NewHash(0, 16)

	if _, err := HammingSimilarity(a, b); err == nil {
		t.Error("HammingSimilarity() should return error for mismatched bit lengths")
	}
	if _, err := HammingDistance(a, b); err == nil {
		t.Error("HammingDistance() should return error for mismatched bit lengths")
	}
}

func TestPHash_InvertedImage(t *testing.T) {
	img := slideImage(256, 256, 64)

	a := PHash(img, DefaultHashSize)
	b := PHash(invert(img), DefaultHashSize)

	sim, err := HammingSimilarity(a, b)
	if err != nil {
		t.Fatalf("HammingSimilarity() error = %v", err)
	}
	if sim > 0.2 {
		t.Errorf("similarity of inverted image = %f, want near 0", sim)
	}
}

func TestPHash_RobustToSmallPerturbation(t *testing.T) {
	img := slideImage(256, 256, 64)
	noisy := image.NewGray(img.Bounds())
	copy(noisy.Pix, img.Pix)
	for i := 0; i < 100; i++ {
		noisy.Pix[(i*613)%len(noisy.Pix)] += 10
	}

	a := PHash(img, DefaultHashSize)
	b := PHash(noisy, DefaultHashSize)

	sim, err := HammingSimilarity(a, b)
	if err != nil {
		t.Fatalf("HammingSimilarity() error = %v", err)
	}
	if sim <= 0.97 {
		t.Errorf("similarity after tiny perturbation = %f, want > 0.97", sim)
	}
}

func TestComputeGray_MeanLumaSeparatesSolidColors(t *testing.T) {
	solid := func(v uint8) *image.Gray {
		g := image.NewGray(image.Rect(0, 0, 256, 256))
		for i := range g.Pix {
			g.Pix[i] = v
		}
		return g
	}

	a := ComputeGray(solid(40))
	b := ComputeGray(solid(220))

	// Uniform frames have no AC energy, so the hashes nearly collide;
	// the mean luma is the only signal left.
	sim, err := HammingSimilarity(a.PHash, b.PHash)
	if err != nil {
		t.Fatalf("HammingSimilarity() error = %v", err)
	}
	if sim < 0.9 {
		t.Errorf("solid-color pHash similarity = %f, expected a near-collision", sim)
	}
	if a.MeanLuma != 40 || b.MeanLuma != 220 {
		t.Errorf("mean lumas = %d, %d, want 40, 220", a.MeanLuma, b.MeanLuma)
	}
}

func TestDHash_GradientDirection(t *testing.T) {
	ramp := image.NewGray(image.Rect(0, 0, 256, 256))
	reversed := image.NewGray(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			ramp.Pix[y*ramp.Stride+x] = uint8(x)
			reversed.Pix[y*reversed.Stride+x] = uint8(255 - x)
		}
	}

	a := DHash(ramp, DefaultHashSize)
	b := DHash(reversed, DefaultHashSize)

	sim, err := HammingSimilarity(a, b)
	if err != nil {
		t.Fatalf("HammingSimilarity() error = %v", err)
	}
	if sim != 0 {
		t.Errorf("opposite gradients similarity = %f, want 0", sim)
	}
}

func TestParseHash_RoundTrip(t *testing.T) {
	h := PHash(slideImage(256, 256, 64), DefaultHashSize)

	parsed, err := ParseHash(h.String())
	if err != nil {
		t.Fatalf("ParseHash(%q) error = %v", h.String(), err)
	}
	if parsed != h {
		t.Errorf("round trip = %v, want %v", parsed, h)
	}
}

func TestParseHash_Invalid(t *testing.T) {
	for _, s := range []string{"", "zz", "12345678901234567890"} {
		if _, err := ParseHash(s); err == nil {
			t.Errorf("ParseHash(%q) should return error", s)
		}
	}
}

func TestHash_JSONRoundTrip(t *testing.T) {
	fp := ComputeGray(slideImage(256, 256, 64))

	data, err := json.Marshal(fp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded Fingerprint
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.PHash != fp.PHash || decoded.DHash != fp.DHash || decoded.MeanLuma != fp.MeanLuma {
		t.Errorf("round trip = %+v, want %+v", decoded, fp)
	}
}
