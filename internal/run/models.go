// Package run persists detection runs and their checkpoints so a scan
// of a long recording survives restarts.
package run

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending     = "pending"
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// Run is one detection attempt over one video.
type Run struct {
	ID          string    `json:"id"`
	VideoPath   string    `json:"video_path"`
	OutputDir   string    `json:"output_dir"`
	ParamsJSON  string    `json:"params"`
	Stage       string    `json:"stage"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	TotalFrames int       `json:"total_frames"`
	FPS         float64   `json:"fps"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewID returns a fresh run identifier.
func NewID() string {
	return uuid.NewString()
}
