package dedupe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-dedupe/internal/logger"
	"course-dedupe/internal/store"
	"course-dedupe/internal/store/storetest"
)

var always = ConfirmFunc(func(context.Context, *MergeDecision) (bool, error) { return true, nil })

func clockAt(now time.Time) Option {
	return WithClock(func() time.Time { return now })
}

func titles(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %d", prefix, i+1)
	}
	return out
}

func buyers(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return out
}

func TestRunMergesExampleGroup(t *testing.T) {
	st := storetest.New(t)
	a := storetest.Seed(t, st, storetest.CourseSeed{
		Title:     "IA Básico - Cert",
		CreatedAt: t0,
		Published: true,
		Chapters:  titles("Lección A", 5),
		Buyers:    buyers("u", 10),
	})
	b := storetest.Seed(t, st, storetest.CourseSeed{
		Title:     "ia basico cert",
		CreatedAt: t0.Add(24 * time.Hour),
		Chapters:  titles("Lección B", 3),
		Buyers:    []string{"u1", "u99"},
	})
	storetest.Seed(t, st, storetest.CourseSeed{Title: "Curso de Python", CreatedAt: t0})
	storetest.Seed(t, st, storetest.CourseSeed{Title: "Curso de Java", CreatedAt: t0})

	report, err := NewExecutor(st, always, logger.Nop(), clockAt(t0.AddDate(0, 0, 30))).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.CoursesScanned)
	require.Equal(t, 1, report.GroupsFound)
	d := report.Decisions[0]
	assert.Equal(t, StatusDone, d.Status)
	assert.Equal(t, a.ID, d.Retain.ID)
	assert.Equal(t, []string{b.ID}, d.DiscardIDs())
	assert.Greater(t, d.Retain.Score, d.Discard[0].Course.Score)
	assert.Equal(t, 3, d.MigratedChapterCount)
	assert.Equal(t, 1, d.MigratedPurchaseCount)
	assert.True(t, d.Discard[0].Deleted)
	assert.Empty(t, d.Errors)

	merged := reload(t, st, a.ID)
	assert.Len(t, merged.Chapters, 8)
	assert.Len(t, merged.Purchases, 11)
	assert.Nil(t, reload(t, st, b.ID))

	assert.Equal(t, Totals{GroupsMerged: 1, CoursesRetained: 1, CoursesDeleted: 1, ChaptersMigrated: 3, PurchasesMigrated: 1}, report.Totals)
	assert.False(t, report.Failed())
	assert.False(t, report.DryRun)
}

func TestRunDeletesSkippedDuplicateChapters(t *testing.T) {
	st := storetest.New(t)
	a := storetest.Seed(t, st, storetest.CourseSeed{Title: "Excel para todos", CreatedAt: t0, Published: true, Chapters: []string{"Intro", "Tablas"}})
	b := storetest.Seed(t, st, storetest.CourseSeed{Title: "Excel para Todos!", CreatedAt: t0.Add(time.Hour), Chapters: []string{"Intro", "Macros"}})

	_, err := NewExecutor(st, always, logger.Nop(), clockAt(t0)).Run(context.Background())
	require.NoError(t, err)

	// no chapter may point at the deleted course
	for _, title := range []string{"Intro", "Macros"} {
		ch, err := st.FindChapterByCourseAndTitle(context.Background(), b.ID, title)
		require.NoError(t, err)
		assert.Nil(t, ch, "chapter %q orphaned", title)
	}
	assert.Equal(t, []string{"Intro", "Tablas", "Macros"}, chapterTitles(reload(t, st, a.ID)))

	all, err := st.ListCourses(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRunWithoutConfirmationChangesNothing(t *testing.T) {
	st := storetest.New(t)
	a := storetest.Seed(t, st, storetest.CourseSeed{Title: "Excel para todos", CreatedAt: t0, Chapters: []string{"a"}})
	b := storetest.Seed(t, st, storetest.CourseSeed{Title: "excel para todos", CreatedAt: t0.Add(time.Hour), Chapters: []string{"b"}})

	var asked []*MergeDecision
	never := ConfirmFunc(func(_ context.Context, d *MergeDecision) (bool, error) {
		asked = append(asked, d)
		assert.Equal(t, StatusAnalyzed, d.Status)
		return false, nil
	})

	report, err := NewExecutor(st, never, logger.Nop(), clockAt(t0)).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, asked, 1)
	assert.Equal(t, StatusSkipped, report.Decisions[0].Status)
	assert.Equal(t, 1, report.Totals.GroupsSkipped)
	assert.Len(t, reload(t, st, a.ID).Chapters, 1)
	assert.Len(t, reload(t, st, b.ID).Chapters, 1)
}

func TestRunConfirmationErrorSkipsGroup(t *testing.T) {
	st := storetest.New(t)
	storetest.Seed(t, st, storetest.CourseSeed{Title: "Excel para todos", CreatedAt: t0})
	b := storetest.Seed(t, st, storetest.CourseSeed{Title: "excel para todos", CreatedAt: t0.Add(time.Hour)})

	broken := ConfirmFunc(func(context.Context, *MergeDecision) (bool, error) { return false, errors.New("stdin closed") })

	report, err := NewExecutor(st, broken, logger.Nop(), clockAt(t0)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, report.Decisions[0].Status)
	assert.True(t, report.Failed())
	assert.NotNil(t, reload(t, st, b.ID))
}

func TestRunFailureInOneGroupDoesNotStopOthers(t *testing.T) {
	st := storetest.New(t)
	excelA := storetest.Seed(t, st, storetest.CourseSeed{Title: "Excel para todos", CreatedAt: t0, Published: true, Chapters: []string{"Intro"}})
	excelB := storetest.Seed(t, st, storetest.CourseSeed{Title: "excel para todos", CreatedAt: t0.Add(time.Hour), Chapters: []string{"Macros"}, Buyers: []string{"u1"}})
	pyA := storetest.Seed(t, st, storetest.CourseSeed{Title: "Curso de Python", CreatedAt: t0.Add(2 * time.Hour), Published: true})
	pyB := storetest.Seed(t, st, storetest.CourseSeed{Title: "curso de python", CreatedAt: t0.Add(3 * time.Hour), Chapters: []string{"Listas"}})

	flaky := &flakyStore{Store: st, failPurchaseMove: map[string]bool{excelB.Purchases[0].ID: true}}

	report, err := NewExecutor(flaky, always, logger.Nop(), clockAt(t0)).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Decisions, 2)

	excel := report.Decisions[0]
	assert.Equal(t, StatusPartial, excel.Status)
	assert.Equal(t, excelA.ID, excel.Retain.ID)
	assert.False(t, excel.Discard[0].Deleted)
	assert.Contains(t, excel.Discard[0].Error, ErrPartialMigration.Error())
	assert.NotEmpty(t, excel.Errors)
	assert.NotNil(t, reload(t, st, excelB.ID), "course with a failed migration must survive")

	py := report.Decisions[1]
	assert.Equal(t, StatusDone, py.Status)
	assert.Equal(t, pyA.ID, py.Retain.ID)
	assert.Nil(t, reload(t, st, pyB.ID))

	assert.Equal(t, 1, report.Totals.GroupsMerged)
	assert.Equal(t, 1, report.Totals.GroupsPartial)
	assert.Equal(t, 1, report.Totals.CoursesKept)
	assert.True(t, report.Failed())
}

func TestRunDeleteFailureKeepsCourse(t *testing.T) {
	st := storetest.New(t)
	storetest.Seed(t, st, storetest.CourseSeed{Title: "Excel para todos", CreatedAt: t0, Published: true})
	b := storetest.Seed(t, st, storetest.CourseSeed{Title: "excel para todos", CreatedAt: t0.Add(time.Hour)})

	flaky := &flakyStore{Store: st, failDelete: map[string]bool{b.ID: true}}

	report, err := NewExecutor(flaky, always, logger.Nop(), clockAt(t0)).Run(context.Background())
	require.NoError(t, err)

	d := report.Decisions[0]
	assert.Equal(t, StatusFailed, d.Status)
	assert.Contains(t, d.Discard[0].Error, ErrStoreUnavailable.Error())
	assert.NotNil(t, reload(t, st, b.ID))
}

func TestRunListFailureAbortsRun(t *testing.T) {
	st := storetest.New(t)
	require.NoError(t, st.Close())

	_, err := NewExecutor(st, always, logger.Nop()).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRunCanceledContextSkipsGroups(t *testing.T) {
	st := storetest.New(t)
	a := storetest.Seed(t, st, storetest.CourseSeed{Title: "Excel para todos", CreatedAt: t0})
	b := storetest.Seed(t, st, storetest.CourseSeed{Title: "excel para todos", CreatedAt: t0.Add(time.Hour)})

	ctx, cancel := context.WithCancel(context.Background())
	cancelling := ConfirmFunc(func(context.Context, *MergeDecision) (bool, error) {
		cancel()
		return false, nil
	})

	// Listing happens before cancellation; the first group is skipped by
	// the confirmer and nothing else remains.
	report, err := NewExecutor(st, cancelling, logger.Nop(), clockAt(t0)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, report.Decisions[0].Status)
	assert.NotNil(t, reload(t, st, a.ID))
	assert.NotNil(t, reload(t, st, b.ID))
}

func TestAnalyzeDoesNotMutate(t *testing.T) {
	st := storetest.New(t)
	storetest.Seed(t, st, storetest.CourseSeed{Title: "Excel para todos", CreatedAt: t0})
	b := storetest.Seed(t, st, storetest.CourseSeed{Title: "excel para todos", CreatedAt: t0.Add(time.Hour), Chapters: []string{"a"}})

	panicky := ConfirmFunc(func(context.Context, *MergeDecision) (bool, error) {
		t.Fatal("analyze must not ask for confirmation")
		return false, nil
	})

	report, err := NewExecutor(st, panicky, logger.Nop(), clockAt(t0)).Analyze(context.Background())
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	require.Len(t, report.Decisions, 1)
	assert.Equal(t, StatusAnalyzed, report.Decisions[0].Status)
	assert.Len(t, reload(t, st, b.ID).Chapters, 1)
}
