package emit

import (
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zinojeng/video2summary/internal/detect"
	"github.com/zinojeng/video2summary/internal/video"
)

// jpegQuality matches the capture quality of the original batch
// pipeline.
const jpegQuality = 95

// EmitError reports a failed image or metadata write. Emission is
// all-or-nothing per run: the metadata sidecar is only written after
// every image is durably on disk.
type EmitError struct {
	Filename string
	Err      error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit: failed writing %s: %v", e.Filename, e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }

// Emitter writes the selected slide set to an output directory.
type Emitter struct {
	src    video.Source
	outDir string
	logger *slog.Logger

	// Emitted, when non-nil, is called after each image write succeeds,
	// letting the run store record durable progress for resume.
	Emitted func(ctx context.Context, frameIndex int, filename string) error

	// AlreadyEmitted maps frame index to filename for images a previous
	// attempt already wrote; they are verified and skipped, not
	// rewritten.
	AlreadyEmitted map[int]string
}

func NewEmitter(src video.Source, outDir string, logger *slog.Logger) *Emitter {
	return &Emitter{src: src, outDir: outDir, logger: logger}
}

// Emit writes one JPEG per selected record plus the metadata sidecar.
// Records must arrive sorted by timestamp (the selector guarantees
// this). An empty selection is success: the sidecar is still written,
// with an empty slide list.
func (e *Emitter) Emit(ctx context.Context, session *detect.Session, selected []*detect.SlideRecord) (Metadata, error) {
	if err := os.MkdirAll(e.outDir, 0755); err != nil {
		return Metadata{}, &EmitError{Filename: e.outDir, Err: err}
	}

	// How many members of each group survived selection: the filename
	// carries a sub-index only when siblings from the same group
	// coexist in the output.
	survivors := make(map[int]int)
	for _, rec := range selected {
		survivors[rec.GroupID]++
	}

	entries := make([]SlideEntry, 0, len(selected))
	for i, rec := range selected {
		if err := ctx.Err(); err != nil {
			return Metadata{}, err
		}

		filename := slideFilename(i+1, rec, survivors[rec.GroupID] > 1)

		if prev, ok := e.AlreadyEmitted[rec.FrameIndex]; ok {
			if _, err := os.Stat(filepath.Join(e.outDir, prev)); err == nil {
				e.logger.Debug("slide already emitted", "filename", prev)
				entries = append(entries, slideEntry(i+1, prev, rec))
				continue
			}
		}

		if err := e.writeImage(ctx, rec, filename); err != nil {
			return Metadata{}, err
		}
		if e.Emitted != nil {
			if err := e.Emitted(ctx, rec.FrameIndex, filename); err != nil {
				return Metadata{}, err
			}
		}
		entries = append(entries, slideEntry(i+1, filename, rec))
	}

	meta := buildMetadata(session.Video, session.Params, entries, session.Groups, time.Now())
	if err := writeMetadata(e.outDir, meta); err != nil {
		return Metadata{}, &EmitError{Filename: MetadataFilename, Err: err}
	}

	e.logger.Info("emit complete", "slides", len(entries), "output_dir", e.outDir)
	return meta, nil
}

func (e *Emitter) writeImage(ctx context.Context, rec *detect.SlideRecord, filename string) error {
	frame, err := e.src.FrameAt(ctx, rec.FrameIndex)
	if err != nil {
		var decodeErr *video.DecodeError
		if errors.As(err, &decodeErr) {
			return &EmitError{Filename: filename, Err: err}
		}
		return err
	}

	path := filepath.Join(e.outDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return &EmitError{Filename: filename, Err: err}
	}
	if err := jpeg.Encode(f, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		os.Remove(path)
		return &EmitError{Filename: filename, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return &EmitError{Filename: filename, Err: err}
	}
	return nil
}

// slideFilename encodes ordinal, group, timestamp and a short hash
// prefix: slide_007_g03-02_t12m05s_9f3ab2c1.jpg. The sub-index appears
// only when more than one member of the group survived selection.
func slideFilename(ordinal int, rec *detect.SlideRecord, withSubIndex bool) string {
	minutes := int(rec.Timestamp) / 60
	seconds := int(rec.Timestamp) % 60

	group := fmt.Sprintf("g%02d", rec.GroupID)
	if withSubIndex {
		group = fmt.Sprintf("g%02d-%02d", rec.GroupID, rec.SubgroupIndex)
	}

	hashPrefix := rec.Fingerprint.PHash.String()
	if len(hashPrefix) > 8 {
		hashPrefix = hashPrefix[:8]
	}

	return fmt.Sprintf("slide_%03d_%s_t%02dm%02ds_%s.jpg", ordinal, group, minutes, seconds, hashPrefix)
}

func slideEntry(index int, filename string, rec *detect.SlideRecord) SlideEntry {
	return SlideEntry{
		Index:         index,
		Filename:      filename,
		FrameIndex:    rec.FrameIndex,
		Timestamp:     rec.Timestamp,
		PHash:         rec.Fingerprint.PHash.String(),
		DHash:         rec.Fingerprint.DHash.String(),
		GroupID:       rec.GroupID,
		SubgroupIndex: rec.SubgroupIndex,
		Sharpness:     rec.Sharpness,
	}
}
