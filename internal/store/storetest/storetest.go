// Package storetest opens throwaway in-memory catalogs for tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"course-dedupe/internal/domain"
	"course-dedupe/internal/logger"
	"course-dedupe/internal/store"
)

// New returns a migrated, empty in-memory SQLite store closed at test end.
func New(tb testing.TB) store.Store {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	st, err := store.Open(store.Config{Driver: "sqlite", DSN: dsn}, logger.Nop())
	if err != nil {
		tb.Fatalf("open sqlite store: %v", err)
	}
	tb.Cleanup(func() { _ = st.Close() })

	if err := store.AutoMigrate(context.Background(), st); err != nil {
		tb.Fatalf("migrate sqlite store: %v", err)
	}
	return st
}

// CourseSeed describes a course to insert with its children.
type CourseSeed struct {
	Title     string
	CreatedAt time.Time
	Published bool
	Price     float64
	// Chapter titles, positions assigned 1..n.
	Chapters []string
	// Learner ids with a purchase.
	Buyers []string
	// Progress records per chapter index.
	Progress map[int][]string
}

// Seed inserts the course and its children and returns the stored course
// with everything preloaded.
func Seed(tb testing.TB, st store.Store, s CourseSeed) *domain.Course {
	tb.Helper()
	ctx := context.Background()

	c := &domain.Course{Title: s.Title, IsPublished: s.Published, CreatedAt: s.CreatedAt}
	if s.Price != 0 {
		price := s.Price
		c.Price = &price
	}
	if err := st.CreateCourse(ctx, c); err != nil {
		tb.Fatalf("seed course: %v", err)
	}

	for i, title := range s.Chapters {
		ch := &domain.Chapter{CourseID: c.ID, Title: title, Position: i + 1}
		if err := st.CreateChapter(ctx, ch); err != nil {
			tb.Fatalf("seed chapter: %v", err)
		}
		for _, user := range s.Progress[i] {
			if err := st.CreateUserProgress(ctx, &domain.UserProgress{UserID: user, ChapterID: ch.ID}); err != nil {
				tb.Fatalf("seed progress: %v", err)
			}
		}
	}
	for _, user := range s.Buyers {
		if err := st.CreatePurchase(ctx, &domain.Purchase{UserID: user, CourseID: c.ID}); err != nil {
			tb.Fatalf("seed purchase: %v", err)
		}
	}

	out, err := st.GetCourse(ctx, c.ID, All)
	if err != nil || out == nil {
		tb.Fatalf("reload seeded course: %v", err)
	}
	return out
}

// All preloads every child relation.
var All = store.ListOptions{WithChapters: true, WithProgress: true, WithPurchases: true}
