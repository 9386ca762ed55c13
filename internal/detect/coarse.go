package detect

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/zinojeng/video2summary/internal/imaging"
	"github.com/zinojeng/video2summary/internal/video"
)

// CoarseScanner strides through the video comparing downscaled
// intensity histograms between consecutive samples. A similarity drop
// flags the surrounding window as candidate frames for the precise
// pass. High recall, low cost: a transition missed here is gone for
// good, so the trigger is intentionally loose.
type CoarseScanner struct {
	src    video.Source
	params Params
	logger *slog.Logger
}

func NewCoarseScanner(src video.Source, params Params, logger *slog.Logger) *CoarseScanner {
	return &CoarseScanner{src: src, params: params, logger: logger}
}

// adaptiveStep widens the stride on longer videos to bound total work.
func adaptiveStep(totalFrames, override int) int {
	if override > 0 {
		return override
	}
	switch {
	case totalFrames > 10000:
		return 60
	case totalFrames > 5000:
		return 45
	default:
		return 30
	}
}

// Scan returns a deduplicated, ascending list of candidate frame
// indices. Decode failures are logged and skipped.
func (s *CoarseScanner) Scan(ctx context.Context) ([]int, error) {
	total := s.src.TotalFrames()
	step := adaptiveStep(total, s.params.CoarseStepOverride)
	s.logger.Info("coarse scan starting", "total_frames", total, "step", step)

	seen := make(map[int]struct{})
	var prevHist *[256]float64
	samples := 0

	for i := 0; i < total; i += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := s.src.FrameAt(ctx, i)
		if err != nil {
			var decodeErr *video.DecodeError
			if errors.As(err, &decodeErr) {
				s.logger.Warn("skipping undecodable frame", "frame_index", i, "error", err)
				continue
			}
			if errors.Is(err, video.ErrOutOfRange) {
				break
			}
			return nil, err
		}

		small := imaging.WorkingCopy(frame, workingWidth, workingHeight)
		hist := imaging.Histogram(small)
		samples++

		if prevHist != nil {
			if imaging.HistogramCorrelation(prevHist, &hist) < coarseTriggerSimilarity {
				for off := -step / 2; off <= step/2; off += candidateSampleStride {
					candidate := i + off
					if candidate >= 0 && candidate < total {
						seen[candidate] = struct{}{}
					}
				}
			}
		}
		prevHist = &hist
	}

	candidates := make([]int, 0, len(seen))
	for idx := range seen {
		candidates = append(candidates, idx)
	}
	sort.Ints(candidates)

	s.logger.Info("coarse scan complete", "samples", samples, "candidates", len(candidates))
	return candidates, nil
}
