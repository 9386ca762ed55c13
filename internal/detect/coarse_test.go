package detect

import (
	"context"
	"image"
	"reflect"
	"testing"

	"github.com/zinojeng/video2summary/internal/video"
)

func TestAdaptiveStep(t *testing.T) {
	tests := []struct {
		totalFrames int
		override    int
		want        int
	}{
		{1000, 0, 30},
		{5000, 0, 30},
		{5001, 0, 45},
		{10001, 0, 60},
		{10001, 10, 10},
	}
	for _, tt := range tests {
		if got := adaptiveStep(tt.totalFrames, tt.override); got != tt.want {
			t.Errorf("adaptiveStep(%d, %d) = %d, want %d", tt.totalFrames, tt.override, got, tt.want)
		}
	}
}

func TestCoarseScanner_FlagsTransitionWindow(t *testing.T) {
	src := twoSlideSource(100, 10)
	params := testParams()
	params.CoarseStepOverride = 10

	candidates, err := NewCoarseScanner(src, params, testLogger()).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	// Cut at frame 50, stride 10: the 40->50 sample pair triggers and
	// flags the half-stride window around sample 50.
	want := []int{45, 50, 55}
	if !reflect.DeepEqual(candidates, want) {
		t.Errorf("Scan() = %v, want %v", candidates, want)
	}
}

func TestCoarseScanner_StaticVideo(t *testing.T) {
	frame := topBand(workingWidth, workingHeight, 60)
	frames := make([]image.Image, 100)
	for i := range frames {
		frames[i] = frame
	}
	src := video.NewMemorySource("static.mp4", frames, 10)

	candidates, err := NewCoarseScanner(src, testParams(), testLogger()).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Scan() = %v, want no candidates", candidates)
	}
}

func TestCoarseScanner_EmptyVideo(t *testing.T) {
	src := video.NewMemorySource("empty.mp4", nil, 10)

	candidates, err := NewCoarseScanner(src, testParams(), testLogger()).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Scan() = %v, want no candidates", candidates)
	}
}

func TestCoarseScanner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := twoSlideSource(100, 10)
	if _, err := NewCoarseScanner(src, testParams(), testLogger()).Scan(ctx); err == nil {
		t.Error("Scan() should propagate context cancellation")
	}
}
