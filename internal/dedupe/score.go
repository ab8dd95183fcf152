package dedupe

import (
	"time"

	"course-dedupe/internal/domain"
)

// Weights of the retention score.
type Weights struct {
	Chapter   float64
	Purchase  float64
	Progress  float64
	Published float64
	Priced    float64
	PerDay    float64
	MaxDays   int
}

// DefaultWeights favours courses learners paid for and used, then published
// and priced ones, with a bounded bonus for age.
func DefaultWeights() Weights {
	return Weights{
		Chapter:   10,
		Purchase:  50,
		Progress:  20,
		Published: 100,
		Priced:    25,
		PerDay:    0.5,
		MaxDays:   365,
	}
}

// Scorer ranks the members of a duplicate group.
type Scorer struct {
	Weights Weights
	Now     func() time.Time
}

// NewScorer returns a Scorer with the default weights and the wall clock.
func NewScorer() *Scorer {
	return &Scorer{Weights: DefaultWeights(), Now: time.Now}
}

// Score is the course's retention fitness; higher is better.
func (s *Scorer) Score(c *domain.Course) float64 {
	if c == nil {
		return 0
	}
	w := s.Weights
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	score := w.Chapter*float64(len(c.Chapters)) +
		w.Purchase*float64(len(c.Purchases)) +
		w.Progress*float64(c.ProgressCount())
	if c.IsPublished {
		score += w.Published
	}
	if c.HasPrice() {
		score += w.Priced
	}

	days := c.AgeDays(now())
	if w.MaxDays > 0 && days > w.MaxDays {
		days = w.MaxDays
	}
	return score + w.PerDay*float64(days)
}

// PickRetained returns the highest-scoring member and the rest, in group
// order. On equal scores the earlier member wins.
func (s *Scorer) PickRetained(g Group) (retain *domain.Course, discard []*domain.Course, scores map[string]float64) {
	scores = make(map[string]float64, len(g.Courses))
	best := -1
	var bestScore float64
	for i, c := range g.Courses {
		sc := s.Score(c)
		scores[c.ID] = sc
		if best < 0 || sc > bestScore {
			best, bestScore = i, sc
		}
	}
	if best < 0 {
		return nil, nil, scores
	}

	retain = g.Courses[best]
	for i, c := range g.Courses {
		if i != best {
			discard = append(discard, c)
		}
	}
	return retain, discard, scores
}
