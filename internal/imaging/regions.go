package imaging

import "image"

// Text-region detection parameters. A wide flat structuring element
// responds to the horizontal strokes of rendered text; small blobs are
// discarded as noise.
const (
	textKernelWidth   = 10
	textBinThreshold  = 30
	textMinRegionArea = 100
)

// TextRegionCount estimates the number of text-like regions in a
// grayscale image. It computes a morphological gradient with a
// horizontal structuring element, binarizes it, and counts connected
// components above a minimum area. The count is a proxy for textual
// content density, not an OCR result.
func TextRegionCount(g *image.Gray) int {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	if w < textKernelWidth || h == 0 {
		return 0
	}

	// Morphological gradient: dilation minus erosion with a 10x1 kernel,
	// computed per row with a sliding window.
	bin := make([]bool, w*h)
	half := textKernelWidth / 2
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride:][:w]
		for x := 0; x < w; x++ {
			lo, hi := uint8(255), uint8(0)
			start := clampInt(x-half, 0, w-1)
			end := clampInt(x+half-1, 0, w-1)
			for xx := start; xx <= end; xx++ {
				v := row[xx]
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
			if int(hi)-int(lo) > textBinThreshold {
				bin[y*w+x] = true
			}
		}
	}

	// Count 8-connected components above the area floor.
	visited := make([]bool, w*h)
	var stack []int
	regions := 0
	for i := range bin {
		if !bin[i] || visited[i] {
			continue
		}
		area := 0
		stack = append(stack[:0], i)
		visited[i] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			area++
			y, x := idx/w, idx%w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					ny, nx := y+dy, x+dx
					if ny < 0 || ny >= h || nx < 0 || nx >= w {
						continue
					}
					nidx := ny*w + nx
					if bin[nidx] && !visited[nidx] {
						visited[nidx] = true
						stack = append(stack, nidx)
					}
				}
			}
		}
		if area > textMinRegionArea {
			regions++
		}
	}
	return regions
}
