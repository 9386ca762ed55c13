package video

import (
	"context"
	"image"
)

// MemorySource serves pre-decoded frames from memory. Used for
// synthetic videos in tests and for short pre-extracted clips.
type MemorySource struct {
	path   string
	frames []image.Image
	fps    float64
}

// NewMemorySource builds a source over an in-memory frame slice.
func NewMemorySource(path string, frames []image.Image, fps float64) *MemorySource {
	return &MemorySource{path: path, frames: frames, fps: fps}
}

func (s *MemorySource) FrameAt(ctx context.Context, index int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(s.frames) {
		return nil, ErrOutOfRange
	}
	return s.frames[index], nil
}

func (s *MemorySource) Info() Info {
	return Info{
		Path:        s.path,
		TotalFrames: len(s.frames),
		FPS:         s.fps,
		Duration:    float64(len(s.frames)) / s.fps,
	}
}

func (s *MemorySource) TotalFrames() int { return len(s.frames) }
func (s *MemorySource) FPS() float64     { return s.fps }
func (s *MemorySource) Close() error     { return nil }
