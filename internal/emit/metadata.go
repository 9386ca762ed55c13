// Package emit writes the final slide set: one JPEG per emitted record
// plus the slides_metadata.json sidecar that downstream content-analysis
// tools consume.
package emit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zinojeng/video2summary/internal/detect"
	"github.com/zinojeng/video2summary/internal/video"
)

// SchemaVersion of slides_metadata.json. Bump on incompatible changes.
const SchemaVersion = 1

// MetadataFilename is fixed: it is the contract point for downstream
// tools.
const MetadataFilename = "slides_metadata.json"

// Metadata is the authoritative description of an emitted slide set.
// Deterministically re-derivable from the same video and settings.
type Metadata struct {
	SchemaVersion   int             `json:"schema_version"`
	VideoInfo       video.Info      `json:"video_info"`
	CaptureSettings CaptureSettings `json:"capture_settings"`
	Slides          []SlideEntry    `json:"slides"`
	Groups          []GroupSummary  `json:"groups"`
}

// CaptureSettings records the configuration the set was produced with.
type CaptureSettings struct {
	SimilarityThreshold     float64 `json:"similarity_threshold"`
	GroupThreshold          float64 `json:"group_threshold"`
	MinSlideIntervalSeconds float64 `json:"min_slide_interval_seconds"`
	Mode                    string  `json:"mode"`
	CaptureTime             string  `json:"capture_time"`
}

// SlideEntry is one emitted slide (or animation sub-state).
type SlideEntry struct {
	Index         int     `json:"index"`
	Filename      string  `json:"filename"`
	FrameIndex    int     `json:"frame_index"`
	Timestamp     float64 `json:"timestamp"`
	PHash         string  `json:"phash"`
	DHash         string  `json:"dhash"`
	GroupID       int     `json:"group_id"`
	SubgroupIndex int     `json:"subgroup_index"`
	Sharpness     float64 `json:"sharpness"`
}

// GroupSummary describes one slide group's footprint in the video.
type GroupSummary struct {
	GroupID     int       `json:"group_id"`
	MemberCount int       `json:"member_count"`
	TimeRange   TimeRange `json:"time_range"`
}

// TimeRange is a closed interval in video seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func buildMetadata(info video.Info, params detect.Params, slides []SlideEntry, groups []*detect.SlideGroup, now time.Time) Metadata {
	summaries := make([]GroupSummary, 0, len(groups))
	for _, grp := range groups {
		if len(grp.Members) == 0 {
			continue
		}
		tr := TimeRange{Start: grp.Members[0].Timestamp, End: grp.Members[0].Timestamp}
		for _, rec := range grp.Members[1:] {
			if rec.Timestamp < tr.Start {
				tr.Start = rec.Timestamp
			}
			if rec.Timestamp > tr.End {
				tr.End = rec.Timestamp
			}
		}
		summaries = append(summaries, GroupSummary{
			GroupID:     grp.ID,
			MemberCount: len(grp.Members),
			TimeRange:   tr,
		})
	}

	if slides == nil {
		slides = []SlideEntry{}
	}
	return Metadata{
		SchemaVersion: SchemaVersion,
		VideoInfo:     info,
		CaptureSettings: CaptureSettings{
			SimilarityThreshold:     params.SimilarityThreshold,
			GroupThreshold:          params.GroupThreshold,
			MinSlideIntervalSeconds: params.MinSlideInterval.Seconds(),
			Mode:                    params.Mode,
			CaptureTime:             now.UTC().Format(time.RFC3339),
		},
		Slides: slides,
		Groups: summaries,
	}
}

// writeMetadata writes the sidecar atomically: temp file then rename,
// so a crash never leaves a truncated contract file.
func writeMetadata(dir string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".slides_metadata-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(dir, MetadataFilename)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// ReadMetadata loads an emitted folder's sidecar.
func ReadMetadata(dir string) (Metadata, error) {
	var meta Metadata
	data, err := os.ReadFile(filepath.Join(dir, MetadataFilename))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("corrupt %s: %w", MetadataFilename, err)
	}
	return meta, nil
}
