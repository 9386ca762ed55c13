package detect

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/zinojeng/video2summary/internal/fingerprint"
	"github.com/zinojeng/video2summary/internal/imaging"
	"github.com/zinojeng/video2summary/internal/video"
)

// preciseBatchSize bounds how many decoded working copies are alive at
// once during the precise pass.
const preciseBatchSize = 16

// frameFeatures is everything the acceptance logic needs about one
// candidate frame. The full decoded buffer is released as soon as these
// are computed; only the 320x240 working copies are retained, and only
// for the lifetime of a batch (plus the last accepted frame).
type frameFeatures struct {
	index       int
	gray        *image.Gray
	edges       *image.Gray
	fp          fingerprint.Fingerprint
	textRegions int
	sharpness   float64
}

// PreciseDetector walks coarse candidates in ascending order and
// confirms true slide boundaries with three signals: SSIM, edge-map
// similarity and text-region-count delta. Any one signal crossing its
// threshold accepts the candidate — recall over precision, since a
// missed slide cannot be recovered downstream while a false positive is
// cheaply absorbed by grouping.
type PreciseDetector struct {
	src    video.Source
	params Params
	logger *slog.Logger
}

func NewPreciseDetector(src video.Source, params Params, logger *slog.Logger) *PreciseDetector {
	return &PreciseDetector{src: src, params: params, logger: logger}
}

// Detect returns the accepted slide records in frame order, each with
// its fingerprint computed.
func (d *PreciseDetector) Detect(ctx context.Context, candidates []int) ([]*SlideRecord, error) {
	fps := d.src.FPS()
	minGapFrames := fps * d.params.MinSlideInterval.Seconds()

	var records []*SlideRecord
	var last *frameFeatures
	lastIndex := -1

	for start := 0; start < len(candidates); start += preciseBatchSize {
		end := start + preciseBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		feats, err := d.scoreBatch(ctx, candidates[start:end])
		if err != nil {
			return nil, err
		}

		// Acceptance is inherently sequential: every decision depends
		// on the last accepted frame, so results are consumed strictly
		// in index order even though scoring ran in parallel.
		for _, f := range feats {
			if f == nil {
				continue
			}
			isBoundary, reason := d.isBoundary(last, f)
			if !isBoundary {
				continue
			}
			if last != nil && float64(f.index-lastIndex) <= minGapFrames {
				continue
			}

			records = append(records, &SlideRecord{
				FrameIndex:  f.index,
				Timestamp:   float64(f.index) / fps,
				Fingerprint: f.fp,
				Sharpness:   f.sharpness,
			})
			last = f
			lastIndex = f.index
			d.logger.Debug("accepted slide boundary", "frame_index", f.index, "reason", reason)
		}
	}

	d.logger.Info("precise detection complete", "candidates", len(candidates), "accepted", len(records))
	return records, nil
}

// scoreBatch decodes a batch of candidates on the single decode cursor,
// then fans the pure per-frame feature computation out to a bounded
// worker pool. The returned slice preserves candidate order; entries
// for undecodable frames are nil.
func (d *PreciseDetector) scoreBatch(ctx context.Context, batch []int) ([]*frameFeatures, error) {
	frames := make([]image.Image, len(batch))
	for i, idx := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := d.src.FrameAt(ctx, idx)
		if err != nil {
			var decodeErr *video.DecodeError
			if errors.As(err, &decodeErr) {
				d.logger.Warn("skipping undecodable candidate", "frame_index", idx, "error", err)
				continue
			}
			if errors.Is(err, video.ErrOutOfRange) {
				continue
			}
			return nil, err
		}
		frames[i] = frame
	}

	feats := make([]*frameFeatures, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.params.Workers)
	for i := range batch {
		if frames[i] == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			feats[i] = computeFeatures(batch[i], frames[i])
			frames[i] = nil // release the full-resolution buffer
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return feats, nil
}

func computeFeatures(index int, frame image.Image) *frameFeatures {
	gray := imaging.ToGray(frame)
	fp := fingerprint.ComputeGray(gray)
	small := imaging.Resize(gray, workingWidth, workingHeight)
	return &frameFeatures{
		index:       index,
		gray:        small,
		edges:       imaging.EdgeMap(small),
		fp:          fp,
		textRegions: imaging.TextRegionCount(small),
		sharpness:   imaging.Sharpness(small),
	}
}

// isBoundary applies the OR-combined boundary triggers against the last
// accepted frame.
func (d *PreciseDetector) isBoundary(last, cur *frameFeatures) (bool, string) {
	if last == nil {
		return true, "first candidate"
	}

	ssim, err := imaging.SSIM(last.gray, cur.gray)
	if err == nil && ssim < d.params.SimilarityThreshold {
		return true, "ssim"
	}

	edgeSim, err := imaging.EdgeSimilarity(last.edges, cur.edges)
	if err == nil && edgeSim < edgeSimilarityFloor {
		return true, "edges"
	}

	delta := cur.textRegions - last.textRegions
	if delta < 0 {
		delta = -delta
	}
	if delta > textRegionDeltaMax {
		return true, "text regions"
	}

	return false, ""
}
