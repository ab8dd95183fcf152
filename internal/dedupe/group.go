// Package dedupe finds duplicated courses, picks the one to keep and folds
// the others into it.
package dedupe

import (
	"sort"

	"course-dedupe/internal/domain"
	"course-dedupe/internal/similarity"
)

// Group is an ordered set of at least two courses judged to be the same
// catalog entry, oldest first.
type Group struct {
	Courses []*domain.Course
}

// Titles lists the member titles in group order.
func (g Group) Titles() []string {
	out := make([]string, 0, len(g.Courses))
	for _, c := range g.Courses {
		out = append(out, c.Title)
	}
	return out
}

// SortOldestFirst orders courses by CreatedAt, then id, without touching the
// input slice.
func SortOldestFirst(courses []*domain.Course) []*domain.Course {
	out := make([]*domain.Course, 0, len(courses))
	for _, c := range courses {
		if c != nil {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GroupDuplicates partitions courses into duplicate groups. Each course lands
// in at most one group; courses without a duplicate are left out.
// A nil matcher uses similarity.Default().
func GroupDuplicates(courses []*domain.Course, m *similarity.Matcher) []Group {
	if m == nil {
		m = similarity.Default()
	}
	sorted := SortOldestFirst(courses)
	consumed := make([]bool, len(sorted))

	var groups []Group
	for i, seed := range sorted {
		if consumed[i] {
			continue
		}
		consumed[i] = true
		members := []*domain.Course{seed}

		for j := i + 1; j < len(sorted); j++ {
			if consumed[j] {
				continue
			}
			if m.IsSimilar(seed.Title, sorted[j].Title) {
				consumed[j] = true
				members = append(members, sorted[j])
			}
		}

		if len(members) >= 2 {
			groups = append(groups, Group{Courses: members})
		}
	}
	return groups
}
