// Package detect implements the slide change-detection pipeline: a
// coarse histogram scan, a precise multi-metric boundary pass, gap
// recovery, fingerprint grouping and representative selection. Stages
// communicate only through the DetectionSession value, so each stage is
// testable in isolation and a run can resume from a checkpoint.
package detect

import (
	"time"

	"github.com/zinojeng/video2summary/internal/fingerprint"
	"github.com/zinojeng/video2summary/internal/video"
)

// Selection modes for multi-member groups.
const (
	// ModeDeduplicate keeps the sharpest member of each group: one
	// image per distinct slide.
	ModeDeduplicate = "dedup"
	// ModeAnimation keeps every member in timestamp order, treating a
	// group as the progressive build states of one slide.
	ModeAnimation = "animation"
)

// Pipeline stage names, in execution order. Persisted in the run store
// so a resumed run knows where to pick up.
const (
	StageCoarse  = "coarse"
	StagePrecise = "precise"
	StageGapFill = "gapfill"
	StageGroup   = "group"
	StageEmit    = "emit"
	StageDone    = "done"
)

// Detection thresholds that are deliberately not configurable: they
// bound pass cost and recall behavior, not output semantics.
const (
	// coarseTriggerSimilarity is the histogram-correlation floor below
	// which the coarse scanner flags a window. Loose on purpose: false
	// positives cost one precise check, false negatives lose a slide.
	coarseTriggerSimilarity = 0.95

	// candidateSampleStride subsamples a flagged window so the precise
	// pass does not re-decode every frame.
	candidateSampleStride = 5

	// edgeSimilarityFloor and textRegionDeltaMax are the secondary
	// boundary triggers of the precise pass.
	edgeSimilarityFloor = 0.9
	textRegionDeltaMax  = 5

	// duplicateBound is the SSIM score above which a gap-filler probe
	// counts as a re-occurrence of an already-captured slide.
	duplicateBound = 0.95

	// groupLumaDeltaMax bounds the mean-intensity difference a record
	// may have against a group's founder and still join it. Uniform
	// frames carry no AC energy, so their pHashes collide across
	// different solid colors; the mean still separates them. Recaptures
	// of one slide stay within a few intensity levels of each other.
	groupLumaDeltaMax = 16

	// Working-copy size for histogram/SSIM/edge comparisons.
	workingWidth  = 320
	workingHeight = 240
)

// Params is the immutable configuration of a detection session.
type Params struct {
	// SimilarityThreshold is the SSIM floor of the precise pass; a
	// candidate scoring below it against the last accepted frame is a
	// new slide boundary. Must be in (0, 1).
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// GroupThreshold is the pHash similarity at which two slides land
	// in the same group. Must be in (0, 1) and >= SimilarityThreshold,
	// or boundary detection and grouping would contradict each other.
	GroupThreshold float64 `json:"group_threshold"`

	// MinSlideInterval is the dwell time enforced between accepted
	// boundaries, suppressing re-triggers on transition artifacts.
	MinSlideInterval time.Duration `json:"min_slide_interval"`

	// CoarseStepOverride forces the coarse scan stride; 0 selects the
	// adaptive stride from the video length.
	CoarseStepOverride int `json:"coarse_step_override"`

	// GapBudget is the inter-slide gap above which the gap filler
	// re-scans; GapProbeInterval is its re-sampling period.
	GapBudget        time.Duration `json:"gap_budget"`
	GapProbeInterval time.Duration `json:"gap_probe_interval"`

	// Mode selects representative handling for multi-member groups.
	Mode string `json:"mode"`

	// Workers bounds the feature-scoring worker pool of the precise
	// pass. Frame decoding itself stays on one goroutine.
	Workers int `json:"workers"`
}

// DefaultParams returns the tuning the batch pipeline ships with.
func DefaultParams() Params {
	return Params{
		SimilarityThreshold: 0.85,
		GroupThreshold:      0.90,
		MinSlideInterval:    time.Second,
		GapBudget:           30 * time.Second,
		GapProbeInterval:    5 * time.Second,
		Mode:                ModeDeduplicate,
		Workers:             4,
	}
}

// Validate fails fast before any frame is read.
func (p Params) Validate() error {
	if p.SimilarityThreshold <= 0 || p.SimilarityThreshold >= 1 {
		return &ConfigError{Field: "similarity_threshold", Reason: "must be in (0, 1)"}
	}
	if p.GroupThreshold <= 0 || p.GroupThreshold >= 1 {
		return &ConfigError{Field: "group_threshold", Reason: "must be in (0, 1)"}
	}
	if p.GroupThreshold < p.SimilarityThreshold {
		return &ConfigError{Field: "group_threshold", Reason: "must be >= similarity_threshold"}
	}
	if p.MinSlideInterval <= 0 {
		return &ConfigError{Field: "min_slide_interval", Reason: "must be positive"}
	}
	if p.CoarseStepOverride < 0 {
		return &ConfigError{Field: "coarse_step_override", Reason: "must be >= 0"}
	}
	if p.GapBudget <= 0 {
		return &ConfigError{Field: "gap_budget", Reason: "must be positive"}
	}
	if p.GapProbeInterval <= 0 {
		return &ConfigError{Field: "gap_probe_interval", Reason: "must be positive"}
	}
	if p.Mode != ModeDeduplicate && p.Mode != ModeAnimation {
		return &ConfigError{Field: "mode", Reason: "must be \"dedup\" or \"animation\""}
	}
	if p.Workers < 1 {
		return &ConfigError{Field: "workers", Reason: "must be >= 1"}
	}
	return nil
}

// SlideRecord is the durable unit of detection: one accepted slide
// frame. GroupID and SubgroupIndex are assigned once by the grouping
// pass and never mutated afterward.
type SlideRecord struct {
	FrameIndex    int                     `json:"frame_index"`
	Timestamp     float64                 `json:"timestamp"`
	Fingerprint   fingerprint.Fingerprint `json:"fingerprint"`
	GroupID       int                     `json:"group_id"`
	SubgroupIndex int                     `json:"subgroup_index"`
	Sharpness     float64                 `json:"sharpness"`
}

// SlideGroup clusters the capture states of one logical slide. Members
// are ordered by timestamp. Groups grow monotonically and are never
// merged or split after creation: the grouping pass is single-pass and
// order-dependent, which keeps runs deterministic.
type SlideGroup struct {
	ID          int              `json:"id"`
	Founder     fingerprint.Hash `json:"founder"`
	FounderLuma uint8            `json:"founder_luma"`
	Members     []*SlideRecord   `json:"-"`
}

// Session carries the state of one detection run: the immutable Params
// plus the accumulating candidate/record/group lists. A Session is
// owned by exactly one run and must not be shared.
type Session struct {
	Params     Params
	Video      video.Info
	Candidates []int
	Records    []*SlideRecord
	Groups     []*SlideGroup
}

// NewSession validates params and binds them to a video.
func NewSession(params Params, info video.Info) (*Session, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Session{Params: params, Video: info}, nil
}
