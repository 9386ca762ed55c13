package detect

import (
	"fmt"
	"sort"

	"github.com/zinojeng/video2summary/internal/fingerprint"
)

// GroupRecords clusters accepted records into slide groups with a
// single left-to-right pass in timestamp order. Each record joins the
// best-matching existing group if its pHash similarity to that group's
// founder reaches the threshold and its mean intensity stays within
// groupLumaDeltaMax of the founder's, otherwise it founds a new group.
// The luma check catches near-uniform frames, whose pHashes collide
// across different solid colors.
//
// This is deliberately order-dependent and not a global clustering:
// groups never merge retroactively, even if a later group turns out
// equally similar to an earlier one. O(n*g) over tens to low hundreds
// of slides, and deterministic for a given record order.
func GroupRecords(records []*SlideRecord, groupThreshold float64) ([]*SlideGroup, error) {
	ordered := make([]*SlideRecord, len(records))
	copy(ordered, records)
	sort.Slice(ordered, func(a, b int) bool { return ordered[a].Timestamp < ordered[b].Timestamp })

	var groups []*SlideGroup
	for _, rec := range ordered {
		best := -1
		bestSim := 0.0
		for gi, grp := range groups {
			sim, err := fingerprint.HammingSimilarity(rec.Fingerprint.PHash, grp.Founder)
			if err != nil {
				return nil, fmt.Errorf("grouping frame %d: %w", rec.FrameIndex, err)
			}
			if lumaDelta(rec.Fingerprint.MeanLuma, grp.FounderLuma) > groupLumaDeltaMax {
				continue
			}
			if sim >= groupThreshold && sim > bestSim {
				bestSim = sim
				best = gi
			}
		}

		if best >= 0 {
			grp := groups[best]
			grp.Members = append(grp.Members, rec)
			rec.GroupID = grp.ID
			rec.SubgroupIndex = len(grp.Members)
		} else {
			grp := &SlideGroup{
				ID:          len(groups) + 1,
				Founder:     rec.Fingerprint.PHash,
				FounderLuma: rec.Fingerprint.MeanLuma,
				Members:     []*SlideRecord{rec},
			}
			groups = append(groups, grp)
			rec.GroupID = grp.ID
			rec.SubgroupIndex = 1
		}
	}
	return groups, nil
}

func lumaDelta(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
