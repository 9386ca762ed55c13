package detect

import "sort"

// SelectRepresentatives picks which records each group contributes to
// the emitted slide set.
//
// In deduplication mode a group collapses to its single sharpest member
// (ties break toward the earlier frame, keeping selection idempotent).
// In animation mode every member survives in timestamp order, treating
// the group as one slide's progressive build states.
//
// The result is ordered by timestamp with no duplicate frame indices.
func SelectRepresentatives(groups []*SlideGroup, mode string) []*SlideRecord {
	var selected []*SlideRecord
	for _, grp := range groups {
		if len(grp.Members) == 1 || mode == ModeAnimation {
			selected = append(selected, grp.Members...)
			continue
		}
		best := grp.Members[0]
		for _, rec := range grp.Members[1:] {
			if rec.Sharpness > best.Sharpness {
				best = rec
			}
		}
		selected = append(selected, best)
	}

	sort.Slice(selected, func(a, b int) bool {
		return selected[a].Timestamp < selected[b].Timestamp
	})
	return selected
}
