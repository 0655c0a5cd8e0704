package snapshot

import "sort"

// DominantGroup computes the group_key with the most members and highest
// aggregate importance, and returns its members ranked by
// (doc_y, bbox.y, bbox.x, -importance) — the ordinal list used for "1st
// search result, 2nd row, …" style references.
//
// Ranking is computed over the full dominant-group population, never a
// selected subset, so ordinals assigned by RankWithinDominantGroup stay stable
// regardless of which elements a caller later selects for compaction.
func DominantGroup(elements []Element) (groupKey string, ranked []Element) {
	if len(elements) == 0 {
		return "", nil
	}

	type groupStats struct {
		count      int
		importance int
	}
	stats := map[string]*groupStats{}
	for _, e := range elements {
		if e.GroupKey == "" {
			continue
		}
		s := stats[e.GroupKey]
		if s == nil {
			s = &groupStats{}
			stats[e.GroupKey] = s
		}
		s.count++
		s.importance += e.Importance
	}
	if len(stats) == 0 {
		return "", nil
	}

	var keys []string
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		si, sj := stats[keys[i]], stats[keys[j]]
		if si.count != sj.count {
			return si.count > sj.count
		}
		if si.importance != sj.importance {
			return si.importance > sj.importance
		}
		return keys[i] < keys[j]
	})
	groupKey = keys[0]

	for _, e := range elements {
		if e.GroupKey == groupKey {
			ranked = append(ranked, e)
		}
	}
	sortByRank(ranked)
	return groupKey, ranked
}

// sortByRank sorts in place by (doc_y, bbox.y, bbox.x, -importance).
func sortByRank(elements []Element) {
	sort.SliceStable(elements, func(i, j int) bool {
		a, b := elements[i], elements[j]
		ay, by := docY(a), docY(b)
		if ay != by {
			return ay < by
		}
		if a.BBox.Y != b.BBox.Y {
			return a.BBox.Y < b.BBox.Y
		}
		if a.BBox.X != b.BBox.X {
			return a.BBox.X < b.BBox.X
		}
		return a.Importance > b.Importance
	})
}

func docY(e Element) float64 {
	if e.DocY != nil {
		return *e.DocY
	}
	return e.BBox.Y
}

// RankWithinDominantGroup computes a stable rank-in-group map over the
// full dominant-group population (id -> 0-based ordinal). An element
// outside the dominant group has no entry, so looking it up returns (0, false).
func RankWithinDominantGroup(elements []Element) (groupKey string, rankByID map[int]int) {
	groupKey, ranked := DominantGroup(elements)
	rankByID = make(map[int]int, len(ranked))
	for i, e := range ranked {
		rankByID[e.ID] = i
	}
	return groupKey, rankByID
}
