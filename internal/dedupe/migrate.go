package dedupe

import (
	"context"
	"errors"
	"fmt"

	"course-dedupe/internal/domain"
	"course-dedupe/internal/logger"
	"course-dedupe/internal/store"
)

var (
	// ErrStoreUnavailable marks a store call that failed before anything of
	// the current course was changed.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrPartialMigration marks a migration that moved some children of a
	// course and then failed.
	ErrPartialMigration = errors.New("partial migration")
)

// MigrationResult counts what happened to one discarded course's children.
type MigrationResult struct {
	ChaptersMoved    int `json:"chaptersMoved"`
	ChaptersSkipped  int `json:"chaptersSkipped"`
	PurchasesMoved   int `json:"purchasesMoved"`
	PurchasesSkipped int `json:"purchasesSkipped"`
}

func (r MigrationResult) touched() bool {
	return r.ChaptersMoved > 0 || r.PurchasesMoved > 0
}

// Migrator re-parents chapters and purchases between courses.
type Migrator struct {
	store store.Store
	log   *logger.Logger
}

func NewMigrator(st store.Store, log *logger.Logger) *Migrator {
	return &Migrator{store: st, log: log.With("component", "migrator")}
}

// Migrate moves from's chapters and purchases into to. Chapters whose title
// already exists on to, and purchases of learners who already own to, stay
// behind. Moved chapters are appended after to's last position.
//
// from must carry its preloaded chapters and purchases. The first store error
// stops the migration; the returned result still counts what was done.
func (m *Migrator) Migrate(ctx context.Context, from, to *domain.Course) (MigrationResult, error) {
	var res MigrationResult
	if from == nil || to == nil {
		return res, errors.New("dedupe: migrate needs both courses")
	}
	if from.ID == to.ID {
		return res, fmt.Errorf("dedupe: cannot migrate course %s into itself", from.ID)
	}
	log := m.log.With("from_course", from.ID, "to_course", to.ID)

	fail := func(step string, err error) (MigrationResult, error) {
		kind := ErrStoreUnavailable
		if res.touched() {
			kind = ErrPartialMigration
		}
		log.Error("migration step failed", "step", step, "error", err)
		return res, fmt.Errorf("%w: %s: %w", kind, step, err)
	}

	maxPos, hasChapters, err := m.store.MaxChapterPosition(ctx, to.ID)
	if err != nil {
		return fail("read positions", err)
	}
	next := 1
	if hasChapters {
		next = maxPos + 1
	}

	for _, ch := range from.Chapters {
		existing, err := m.store.FindChapterByCourseAndTitle(ctx, to.ID, ch.Title)
		if err != nil {
			return fail(fmt.Sprintf("find chapter %q", ch.Title), err)
		}
		if existing != nil {
			res.ChaptersSkipped++
			log.Debug("chapter already present, skipping", "chapter_id", ch.ID, "title", ch.Title)
			continue
		}
		if err := m.store.UpdateChapterParent(ctx, ch.ID, to.ID, next); err != nil {
			return fail(fmt.Sprintf("move chapter %s", ch.ID), err)
		}
		next++
		res.ChaptersMoved++
	}

	for _, p := range from.Purchases {
		existing, err := m.store.FindPurchaseByCourseAndUser(ctx, to.ID, p.UserID)
		if err != nil {
			return fail(fmt.Sprintf("find purchase %s", p.ID), err)
		}
		if existing != nil {
			res.PurchasesSkipped++
			log.Debug("learner already owns target, dropping purchase", "purchase_id", p.ID, "user_id", p.UserID)
			continue
		}
		if err := m.store.UpdatePurchaseParent(ctx, p.ID, to.ID); err != nil {
			return fail(fmt.Sprintf("move purchase %s", p.ID), err)
		}
		res.PurchasesMoved++
	}

	log.Info("migration finished",
		"chapters_moved", res.ChaptersMoved,
		"chapters_skipped", res.ChaptersSkipped,
		"purchases_moved", res.PurchasesMoved,
		"purchases_skipped", res.PurchasesSkipped,
	)
	return res, nil
}
