package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// FFmpegSource decodes frames by shelling out to ffmpeg, seeking with
// -ss and piping a single mjpeg frame back. ffprobe supplies stream
// metadata at open time.
type FFmpegSource struct {
	info        Info
	ffmpegPath  string
	ffprobePath string
	logger      *slog.Logger

	mu sync.Mutex // one decode cursor: serialize seeks
}

// OpenFFmpeg opens a video file. It fails if the file is missing or the
// ffmpeg/ffprobe binaries are not in PATH. An empty ffmpegPath means
// "look it up in PATH".
func OpenFFmpeg(path, ffmpegPath string, logger *slog.Logger) (*FFmpegSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("video file not accessible: %w", err)
	}

	if ffmpegPath == "" {
		p, err := exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
		}
		ffmpegPath = p
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	src := &FFmpegSource{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		logger:      logger,
	}
	info, err := src.probe(path)
	if err != nil {
		return nil, err
	}
	src.info = info

	logger.Info("opened video",
		"path", path,
		"total_frames", info.TotalFrames,
		"fps", info.FPS,
		"duration", info.Duration,
		"codec", info.Codec)
	return src, nil
}

func (s *FFmpegSource) Info() Info       { return s.info }
func (s *FFmpegSource) TotalFrames() int { return s.info.TotalFrames }
func (s *FFmpegSource) FPS() float64     { return s.info.FPS }
func (s *FFmpegSource) Close() error     { return nil }

// FrameAt seeks to index/fps and decodes one frame.
func (s *FFmpegSource) FrameAt(ctx context.Context, index int) (image.Image, error) {
	if index < 0 || index >= s.info.TotalFrames {
		return nil, ErrOutOfRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	timestamp := float64(index) / s.info.FPS
	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-ss", fmt.Sprintf("%.4f", timestamp),
		"-i", s.info.Path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &DecodeError{FrameIndex: index, Err: fmt.Errorf("%w: %s", err, lastLine(stderr.String()))}
	}
	if stdout.Len() == 0 {
		return nil, &DecodeError{FrameIndex: index, Err: fmt.Errorf("ffmpeg produced no output")}
	}

	img, err := jpeg.Decode(&stdout)
	if err != nil {
		return nil, &DecodeError{FrameIndex: index, Err: err}
	}
	return img, nil
}

type probeOutput struct {
	Streams []struct {
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (s *FFmpegSource) probe(path string) (Info, error) {
	cmd := exec.Command(s.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width,height,r_frame_rate,avg_frame_rate,nb_frames",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Info{}, fmt.Errorf("ffprobe failed: %w: %s", err, lastLine(stderr.String()))
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return Info{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return Info{}, fmt.Errorf("no video stream in %s", path)
	}

	stream := out.Streams[0]
	fps := parseRate(stream.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(stream.RFrameRate)
	}
	if fps <= 0 {
		return Info{}, fmt.Errorf("could not determine frame rate for %s", path)
	}

	duration, _ := strconv.ParseFloat(out.Format.Duration, 64)

	totalFrames, _ := strconv.Atoi(stream.NbFrames)
	if totalFrames <= 0 {
		// Containers like mkv omit nb_frames; estimate from duration.
		totalFrames = int(math.Floor(duration * fps))
	}
	if totalFrames <= 0 {
		return Info{}, fmt.Errorf("could not determine frame count for %s", path)
	}

	return Info{
		Path:        path,
		TotalFrames: totalFrames,
		FPS:         fps,
		Duration:    duration,
		Width:       stream.Width,
		Height:      stream.Height,
		Codec:       stream.CodecName,
	}, nil
}

// parseRate parses an ffprobe rational like "30000/1001".
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	if !found {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
