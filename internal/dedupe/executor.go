package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"course-dedupe/internal/domain"
	"course-dedupe/internal/logger"
	"course-dedupe/internal/similarity"
	"course-dedupe/internal/store"
)

// Confirmer gates every mutation: a group is merged only when Confirm
// returns true.
type Confirmer interface {
	Confirm(ctx context.Context, d *MergeDecision) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, d *MergeDecision) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, d *MergeDecision) (bool, error) {
	return f(ctx, d)
}

// Executor runs grouping, scoring, confirmation, migration and deletion over
// the whole catalog, one group at a time.
type Executor struct {
	store    store.Store
	confirm  Confirmer
	matcher  *similarity.Matcher
	scorer   *Scorer
	migrator *Migrator
	log      *logger.Logger
	now      func() time.Time
}

type Option func(*Executor)

func WithMatcher(m *similarity.Matcher) Option {
	return func(e *Executor) { e.matcher = m }
}

func WithScorer(s *Scorer) Option {
	return func(e *Executor) { e.scorer = s }
}

// WithClock sets the clock used for report timestamps and course age.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

func NewExecutor(st store.Store, confirm Confirmer, log *logger.Logger, opts ...Option) *Executor {
	e := &Executor{
		store:   st,
		confirm: confirm,
		matcher: similarity.Default(),
		log:     log.With("component", "executor"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scorer == nil {
		e.scorer = &Scorer{Weights: DefaultWeights(), Now: e.now}
	}
	e.migrator = NewMigrator(st, log)
	return e
}

// plan is an analyzed group with the live course records behind it.
type plan struct {
	retain   *domain.Course
	discard  []*domain.Course
	decision *MergeDecision
}

// Analyze groups and scores the catalog without changing it.
func (e *Executor) Analyze(ctx context.Context) (*Report, error) {
	report, _, err := e.analyze(ctx)
	if err != nil {
		return nil, err
	}
	report.DryRun = true
	report.FinishedAt = e.now()
	report.tally()
	return report, nil
}

func (e *Executor) analyze(ctx context.Context) (*Report, []plan, error) {
	report := &Report{RunID: uuid.NewString(), StartedAt: e.now()}

	courses, err := e.store.ListCourses(ctx, store.ListOptions{WithChapters: true, WithProgress: true, WithPurchases: true})
	if err != nil {
		return nil, nil, fmt.Errorf("dedupe: %w: %w", ErrStoreUnavailable, err)
	}
	report.CoursesScanned = len(courses)

	groups := GroupDuplicates(courses, e.matcher)
	report.GroupsFound = len(groups)

	plans := make([]plan, 0, len(groups))
	for i, g := range groups {
		retain, discard, scores := e.scorer.PickRetained(g)
		d := &MergeDecision{
			Group:  i + 1,
			Status: StatusAnalyzed,
			Retain: summarize(retain, scores[retain.ID]),
		}
		for _, c := range discard {
			d.Discard = append(d.Discard, DiscardOutcome{Course: summarize(c, scores[c.ID])})
		}
		report.Decisions = append(report.Decisions, d)
		plans = append(plans, plan{retain: retain, discard: discard, decision: d})

		e.log.Info("duplicate group analyzed",
			"group", d.Group,
			"titles", g.Titles(),
			"retain_course", retain.ID,
			"retain_score", d.Retain.Score,
			"discard_courses", d.DiscardIDs(),
		)
	}
	return report, plans, nil
}

// Run analyzes the catalog and merges every confirmed group. Failures inside
// a group are recorded on its decision and do not stop the run; the returned
// error is reserved for the run itself (listing the catalog, cancellation).
func (e *Executor) Run(ctx context.Context) (*Report, error) {
	report, plans, err := e.analyze(ctx)
	if err != nil {
		return nil, err
	}

	var runErr error
	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			p.decision.Status = StatusSkipped
			p.decision.Errors = append(p.decision.Errors, "run canceled before merge")
			runErr = err
			continue
		}
		e.mergeGroup(ctx, p)
	}

	report.FinishedAt = e.now()
	report.tally()
	e.log.Info("merge run finished",
		"run_id", report.RunID,
		"groups", report.GroupsFound,
		"merged", report.Totals.GroupsMerged,
		"partial", report.Totals.GroupsPartial,
		"skipped", report.Totals.GroupsSkipped,
		"failed", report.Totals.GroupsFailed,
		"courses_deleted", report.Totals.CoursesDeleted,
	)
	return report, runErr
}

func (e *Executor) mergeGroup(ctx context.Context, p plan) {
	d := p.decision
	log := e.log.With("group", d.Group, "retain_course", d.Retain.ID, "retain_title", d.Retain.Title)

	ok, err := e.confirm.Confirm(ctx, d)
	if err != nil {
		d.Status = StatusSkipped
		d.Errors = append(d.Errors, fmt.Sprintf("confirmation: %v", err))
		log.Warn("confirmation failed, group left untouched", "error", err)
		return
	}
	if !ok {
		d.Status = StatusSkipped
		log.Info("group not confirmed, skipping")
		return
	}

	// Every migration finishes before the first deletion.
	d.Status = StatusMigrating
	deletable := make([]int, 0, len(p.discard))
	for i, c := range p.discard {
		res, err := e.migrator.Migrate(ctx, c, p.retain)
		out := &d.Discard[i]
		out.Migration = res
		d.MigratedChapterCount += res.ChaptersMoved
		d.MigratedPurchaseCount += res.PurchasesMoved
		if err != nil {
			out.Error = err.Error()
			d.Errors = append(d.Errors, fmt.Sprintf("migrate %s (%s): %v", c.ID, c.Title, err))
			log.Error("migration failed, course will be kept", "discard_course", c.ID, "discard_title", c.Title, "error", err)
			continue
		}
		deletable = append(deletable, i)
	}

	d.Status = StatusDeleting
	deleted := 0
	for _, i := range deletable {
		c := p.discard[i]
		out := &d.Discard[i]
		if err := e.store.DeleteCourse(ctx, c.ID); err != nil {
			out.Error = fmt.Errorf("%w: %w", ErrStoreUnavailable, err).Error()
			d.Errors = append(d.Errors, fmt.Sprintf("delete %s (%s): %v", c.ID, c.Title, err))
			log.Error("delete failed", "discard_course", c.ID, "discard_title", c.Title, "error", err)
			continue
		}
		out.Deleted = true
		deleted++
	}

	switch {
	case deleted == len(p.discard):
		d.Status = StatusDone
	case deleted > 0 || d.MigratedChapterCount > 0 || d.MigratedPurchaseCount > 0:
		d.Status = StatusPartial
	default:
		d.Status = StatusFailed
	}
	log.Info("group merged",
		"status", d.Status,
		"deleted", deleted,
		"chapters_migrated", d.MigratedChapterCount,
		"purchases_migrated", d.MigratedPurchaseCount,
	)
}
