package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zinojeng/video2summary/internal/detect"
)

// ParamsFile is the YAML schema for detection parameters. Every field
// is optional; absent fields keep their current value. Durations are
// expressed in seconds to match the original capture settings.
type ParamsFile struct {
	SimilarityThreshold     *float64 `yaml:"similarity_threshold"`
	GroupThreshold          *float64 `yaml:"group_threshold"`
	MinSlideIntervalSeconds *float64 `yaml:"min_slide_interval_seconds"`
	CoarseStepOverride      *int     `yaml:"coarse_step_override"`
	GapBudgetSeconds        *float64 `yaml:"gap_budget_seconds"`
	GapProbeIntervalSeconds *float64 `yaml:"gap_probe_interval_seconds"`
	Mode                    *string  `yaml:"mode"`
	Workers                 *int     `yaml:"workers"`
}

// ApplyParamsFile overlays a YAML parameter file onto base params. The
// result is not validated here; detect.Params.Validate runs before any
// frame is read.
func ApplyParamsFile(path string, base detect.Params) (detect.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read params file: %w", err)
	}

	var pf ParamsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return base, fmt.Errorf("failed to parse params file %s: %w", path, err)
	}

	if pf.SimilarityThreshold != nil {
		base.SimilarityThreshold = *pf.SimilarityThreshold
	}
	if pf.GroupThreshold != nil {
		base.GroupThreshold = *pf.GroupThreshold
	}
	if pf.MinSlideIntervalSeconds != nil {
		base.MinSlideInterval = secondsToDuration(*pf.MinSlideIntervalSeconds)
	}
	if pf.CoarseStepOverride != nil {
		base.CoarseStepOverride = *pf.CoarseStepOverride
	}
	if pf.GapBudgetSeconds != nil {
		base.GapBudget = secondsToDuration(*pf.GapBudgetSeconds)
	}
	if pf.GapProbeIntervalSeconds != nil {
		base.GapProbeInterval = secondsToDuration(*pf.GapProbeIntervalSeconds)
	}
	if pf.Mode != nil {
		base.Mode = *pf.Mode
	}
	if pf.Workers != nil {
		base.Workers = *pf.Workers
	}
	return base, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
