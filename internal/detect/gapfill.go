package detect

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sort"

	"github.com/zinojeng/video2summary/internal/fingerprint"
	"github.com/zinojeng/video2summary/internal/imaging"
	"github.com/zinojeng/video2summary/internal/video"
)

// gapNeighborRadius is how many accepted records on each side of a gap
// a probe frame must be distinct from. Guards against re-inserting a
// slide the presenter merely returned to.
const gapNeighborRadius = 2

// GapFiller re-scans the intervals between accepted slides that exceed
// the gap budget, recovering transitions the coarse scan's histogram
// trigger missed (e.g. a slide with the same color distribution but
// different layout).
type GapFiller struct {
	src    video.Source
	params Params
	logger *slog.Logger
}

func NewGapFiller(src video.Source, params Params, logger *slog.Logger) *GapFiller {
	return &GapFiller{src: src, params: params, logger: logger}
}

// Fill returns the record list with any recovered slides merged in,
// sorted by frame index. The input slice is not mutated.
func (g *GapFiller) Fill(ctx context.Context, records []*SlideRecord) ([]*SlideRecord, error) {
	fps := g.src.FPS()
	budgetFrames := fps * g.params.GapBudget.Seconds()
	probeStep := int(fps * g.params.GapProbeInterval.Seconds())
	if probeStep < 1 {
		probeStep = 1
	}

	merged := make([]*SlideRecord, len(records))
	copy(merged, records)

	for i := 0; i < len(records)-1; i++ {
		gap := records[i+1].FrameIndex - records[i].FrameIndex
		if float64(gap) <= budgetFrames {
			continue
		}
		g.logger.Info("re-scanning gap",
			"start_frame", records[i].FrameIndex,
			"end_frame", records[i+1].FrameIndex,
			"gap_seconds", float64(gap)/fps)

		// Grays of the neighboring accepted records, decoded lazily and
		// released when the gap is done.
		neighborGrays := make(map[int]*image.Gray)
		neighbors := records[max(0, i-gapNeighborRadius):min(len(records), i+gapNeighborRadius+2)]

		var recovered []*SlideRecord
		for idx := records[i].FrameIndex + probeStep; idx < records[i+1].FrameIndex; idx += probeStep {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			gray, err := g.workingGray(ctx, idx)
			if err != nil {
				var decodeErr *video.DecodeError
				if errors.As(err, &decodeErr) {
					g.logger.Warn("skipping undecodable gap probe", "frame_index", idx, "error", err)
					continue
				}
				return nil, err
			}

			distinct := true
			for _, rec := range neighbors {
				ng, ok := neighborGrays[rec.FrameIndex]
				if !ok {
					ng, err = g.workingGray(ctx, rec.FrameIndex)
					if err != nil {
						var decodeErr *video.DecodeError
						if errors.As(err, &decodeErr) {
							g.logger.Warn("cannot re-decode accepted record", "frame_index", rec.FrameIndex, "error", err)
							continue
						}
						return nil, err
					}
					neighborGrays[rec.FrameIndex] = ng
				}
				if sim, serr := imaging.SSIM(ng, gray); serr == nil && sim >= duplicateBound {
					distinct = false
					break
				}
			}
			// A probe must also differ from anything recovered inside
			// this same gap, or every probe of a long-lived slide would
			// be re-inserted.
			for _, rec := range recovered {
				ng := neighborGrays[rec.FrameIndex]
				if sim, serr := imaging.SSIM(ng, gray); serr == nil && sim >= duplicateBound {
					distinct = false
					break
				}
			}
			if !distinct {
				continue
			}

			rec := &SlideRecord{
				FrameIndex:  idx,
				Timestamp:   float64(idx) / fps,
				Fingerprint: fingerprint.ComputeGray(gray),
				Sharpness:   imaging.Sharpness(gray),
			}
			recovered = append(recovered, rec)
			neighborGrays[idx] = gray
			g.logger.Info("recovered slide in gap", "frame_index", idx, "timestamp", rec.Timestamp)
		}
		merged = append(merged, recovered...)
	}

	sort.Slice(merged, func(a, b int) bool { return merged[a].FrameIndex < merged[b].FrameIndex })
	return merged, nil
}

func (g *GapFiller) workingGray(ctx context.Context, index int) (*image.Gray, error) {
	frame, err := g.src.FrameAt(ctx, index)
	if err != nil {
		return nil, err
	}
	return imaging.WorkingCopy(frame, workingWidth, workingHeight), nil
}
