// Package video provides frame-level access to a video file. Decoding
// is delegated to the ffmpeg/ffprobe binaries; the rest of the pipeline
// only ever sees decoded image buffers and probe metadata.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ErrOutOfRange is returned when a frame index is past the end of the
// video.
var ErrOutOfRange = errors.New("video: frame index out of range")

// DecodeError reports a frame that could not be read. Scans log and
// skip these; they do not abort a run.
type DecodeError struct {
	FrameIndex int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("video: failed to decode frame %d: %v", e.FrameIndex, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Info describes an opened video.
type Info struct {
	Path        string  `json:"path"`
	TotalFrames int     `json:"total_frames"`
	FPS         float64 `json:"fps"`
	Duration    float64 `json:"duration"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	Codec       string  `json:"codec,omitempty"`
}

// Source is a random-access frame decoder. Implementations own a single
// decode cursor and are not safe for concurrent seeks; all frame reads
// must happen from one goroutine (or be serialized by the caller).
type Source interface {
	// FrameAt decodes the frame at the given index. Returns
	// ErrOutOfRange past the end of the video, or a *DecodeError for a
	// frame that exists but cannot be read.
	FrameAt(ctx context.Context, index int) (image.Image, error)
	Info() Info
	TotalFrames() int
	FPS() float64
	Close() error
}
