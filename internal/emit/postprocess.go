package emit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/zinojeng/video2summary/internal/fingerprint"
)

// Post-processing tools over an already-emitted folder. They operate
// purely on the metadata sidecar and the files on disk; the video is
// not touched.

// pruneHashSimilarity marks two group siblings as capture duplicates.
const pruneHashSimilarity = 0.98

// pruneMinGapSeconds is the dwell below which a near-identical sibling
// is considered a re-capture rather than an animation step.
const pruneMinGapSeconds = 1.0

// Renumber reconciles a folder after manual edits: slides whose image
// files were deleted are dropped from the metadata, the remainder are
// re-sorted by timestamp, and indices are reassigned contiguously.
// Filenames on disk are left untouched.
func Renumber(dir string, logger *slog.Logger) (Metadata, error) {
	meta, err := ReadMetadata(dir)
	if err != nil {
		return Metadata{}, err
	}

	kept := meta.Slides[:0]
	for _, s := range meta.Slides {
		if _, err := os.Stat(filepath.Join(dir, s.Filename)); err != nil {
			logger.Info("dropping slide with missing image", "filename", s.Filename)
			continue
		}
		kept = append(kept, s)
	}
	sort.Slice(kept, func(a, b int) bool { return kept[a].Timestamp < kept[b].Timestamp })
	for i := range kept {
		kept[i].Index = i + 1
	}
	meta.Slides = kept

	if err := writeMetadata(dir, meta); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// PruneDuplicates removes group siblings that are near-identical
// re-captures: same group, captured less than a second apart, with
// pHash similarity above 0.98. Returns the number of slides removed.
func PruneDuplicates(dir string, logger *slog.Logger) (int, error) {
	meta, err := ReadMetadata(dir)
	if err != nil {
		return 0, err
	}

	byGroup := make(map[int][]SlideEntry)
	for _, s := range meta.Slides {
		byGroup[s.GroupID] = append(byGroup[s.GroupID], s)
	}

	remove := make(map[string]bool)
	for _, members := range byGroup {
		sort.Slice(members, func(a, b int) bool { return members[a].Timestamp < members[b].Timestamp })
		for i := 1; i < len(members); i++ {
			prev, cur := members[i-1], members[i]
			if cur.Timestamp-prev.Timestamp >= pruneMinGapSeconds {
				continue
			}
			sim, err := hashSimilarity(prev.PHash, cur.PHash)
			if err != nil {
				return 0, fmt.Errorf("slide %s: %w", cur.Filename, err)
			}
			if sim > pruneHashSimilarity {
				remove[cur.Filename] = true
				logger.Info("pruning duplicate slide", "filename", cur.Filename, "similarity", sim)
			}
		}
	}
	if len(remove) == 0 {
		return 0, nil
	}

	for filename := range remove {
		if err := os.Remove(filepath.Join(dir, filename)); err != nil && !os.IsNotExist(err) {
			return 0, err
		}
	}

	kept := meta.Slides[:0]
	for _, s := range meta.Slides {
		if !remove[s.Filename] {
			kept = append(kept, s)
		}
	}
	for i := range kept {
		kept[i].Index = i + 1
	}
	meta.Slides = kept

	if err := writeMetadata(dir, meta); err != nil {
		return 0, err
	}
	return len(remove), nil
}

func hashSimilarity(a, b string) (float64, error) {
	ha, err := fingerprint.ParseHash(a)
	if err != nil {
		return 0, err
	}
	hb, err := fingerprint.ParseHash(b)
	if err != nil {
		return 0, err
	}
	return fingerprint.HammingSimilarity(ha, hb)
}
