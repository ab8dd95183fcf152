package dedupe

import (
	"time"

	"course-dedupe/internal/domain"
)

// Status is where a group's merge ended up.
type Status string

const (
	StatusAnalyzed  Status = "analyzed"
	StatusSkipped   Status = "skipped"
	StatusMigrating Status = "migrating"
	StatusDeleting  Status = "deleting"
	StatusDone      Status = "done"
	// Some discarded courses were kept because their migration or deletion failed.
	StatusPartial Status = "partial"
	// Nothing was deleted.
	StatusFailed Status = "failed"
)

// CourseSummary is the report view of a course at analysis time.
type CourseSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Published bool      `json:"published"`
	Chapters  int       `json:"chapters"`
	Purchases int       `json:"purchases"`
	Progress  int       `json:"progress"`
	Score     float64   `json:"score"`
}

func summarize(c *domain.Course, score float64) CourseSummary {
	return CourseSummary{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		Published: c.IsPublished,
		Chapters:  len(c.Chapters),
		Purchases: len(c.Purchases),
		Progress:  c.ProgressCount(),
		Score:     score,
	}
}

// DiscardOutcome is what happened to one losing course.
type DiscardOutcome struct {
	Course    CourseSummary   `json:"course"`
	Migration MigrationResult `json:"migration"`
	Deleted   bool            `json:"deleted"`
	Error     string          `json:"error,omitempty"`
}

// MergeDecision is the per-group record: which course is kept, which are
// folded into it, and how much content moved.
type MergeDecision struct {
	Group                 int              `json:"group"`
	Status                Status           `json:"status"`
	Retain                CourseSummary    `json:"retain"`
	Discard               []DiscardOutcome `json:"discard"`
	MigratedChapterCount  int              `json:"migratedChapterCount"`
	MigratedPurchaseCount int              `json:"migratedPurchaseCount"`
	Errors                []string         `json:"errors,omitempty"`
}

// DiscardIDs lists the ids of the losing courses.
func (d *MergeDecision) DiscardIDs() []string {
	out := make([]string, 0, len(d.Discard))
	for _, o := range d.Discard {
		out = append(out, o.Course.ID)
	}
	return out
}

// Report aggregates every group of one run.
type Report struct {
	RunID          string           `json:"runId"`
	DryRun         bool             `json:"dryRun"`
	StartedAt      time.Time        `json:"startedAt"`
	FinishedAt     time.Time        `json:"finishedAt"`
	CoursesScanned int              `json:"coursesScanned"`
	GroupsFound    int              `json:"groupsFound"`
	Decisions      []*MergeDecision `json:"decisions"`
	Totals         Totals           `json:"totals"`
}

// Totals are the run-wide counters.
type Totals struct {
	GroupsMerged      int `json:"groupsMerged"`
	GroupsPartial     int `json:"groupsPartial"`
	GroupsSkipped     int `json:"groupsSkipped"`
	GroupsFailed      int `json:"groupsFailed"`
	CoursesRetained   int `json:"coursesRetained"`
	CoursesDeleted    int `json:"coursesDeleted"`
	CoursesKept       int `json:"coursesKept"`
	ChaptersMigrated  int `json:"chaptersMigrated"`
	PurchasesMigrated int `json:"purchasesMigrated"`
}

func (r *Report) tally() {
	var t Totals
	for _, d := range r.Decisions {
		switch d.Status {
		case StatusDone:
			t.GroupsMerged++
		case StatusPartial:
			t.GroupsPartial++
		case StatusSkipped:
			t.GroupsSkipped++
		case StatusFailed:
			t.GroupsFailed++
		}
		t.CoursesRetained++
		t.ChaptersMigrated += d.MigratedChapterCount
		t.PurchasesMigrated += d.MigratedPurchaseCount
		for _, o := range d.Discard {
			if o.Deleted {
				t.CoursesDeleted++
			} else {
				t.CoursesKept++
			}
		}
	}
	r.Totals = t
}

// Failed reports whether any group ended with an error.
func (r *Report) Failed() bool {
	for _, d := range r.Decisions {
		if len(d.Errors) > 0 {
			return true
		}
	}
	return false
}
