package api

import (
	"time"

	"github.com/zinojeng/video2summary/internal/detect"
	"github.com/zinojeng/video2summary/internal/run"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type RunResponse struct {
	ID          string  `json:"id"`
	VideoPath   string  `json:"video_path"`
	OutputDir   string  `json:"output_dir"`
	Stage       string  `json:"stage"`
	Status      string  `json:"status"`
	Error       string  `json:"error,omitempty"`
	TotalFrames int     `json:"total_frames"`
	FPS         float64 `json:"fps"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

type SlideResponse struct {
	FrameIndex    int     `json:"frame_index"`
	Timestamp     float64 `json:"timestamp"`
	PHash         string  `json:"phash"`
	DHash         string  `json:"dhash"`
	GroupID       int     `json:"group_id"`
	SubgroupIndex int     `json:"subgroup_index"`
	Sharpness     float64 `json:"sharpness"`
}

type SlidesResponse struct {
	RunID  string          `json:"run_id"`
	Slides []SlideResponse `json:"slides"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func RunToResponse(r *run.Run) RunResponse {
	return RunResponse{
		ID:          r.ID,
		VideoPath:   r.VideoPath,
		OutputDir:   r.OutputDir,
		Stage:       r.Stage,
		Status:      r.Status,
		Error:       r.Error,
		TotalFrames: r.TotalFrames,
		FPS:         r.FPS,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
}

func SlideToResponse(rec *detect.SlideRecord) SlideResponse {
	return SlideResponse{
		FrameIndex:    rec.FrameIndex,
		Timestamp:     rec.Timestamp,
		PHash:         rec.Fingerprint.PHash.String(),
		DHash:         rec.Fingerprint.DHash.String(),
		GroupID:       rec.GroupID,
		SubgroupIndex: rec.SubgroupIndex,
		Sharpness:     rec.Sharpness,
	}
}
