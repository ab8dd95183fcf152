package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-dedupe/internal/logger"
	"course-dedupe/internal/store"
	"course-dedupe/internal/store/storetest"
)

const sample = `
courses:
  - id: 11111111-1111-1111-1111-111111111111
    title: IA Básico
    createdAt: 2024-01-10T00:00:00Z
    isPublished: true
    price: 49.9
    chapters:
      - title: Intro
        progress:
          - userId: u1
            isCompleted: true
          - userId: u2
      - title: Modelos
        position: 7
    purchases:
      - userId: u1
      - userId: u2
  - title: ia basico
    chapters:
      - title: Intro
`

func TestRead(t *testing.T) {
	courses, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, courses, 2)

	first := courses[0]
	assert.Equal(t, "IA Básico", first.Title)
	assert.True(t, first.IsPublished)
	require.NotNil(t, first.Price)
	assert.InDelta(t, 49.9, *first.Price, 1e-9)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), first.CreatedAt.UTC())
	require.Len(t, first.Chapters, 2)
	assert.Len(t, first.Chapters[0].UserProgress, 2)
	assert.True(t, first.Chapters[0].UserProgress[0].IsCompleted)
	assert.Len(t, first.Purchases, 2)
}

func TestReadRejects(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown field", "courses:\n  - title: x\n    author: y\n", "catalog: decode"},
		{"missing title", "courses:\n  - isPublished: true\n", "course 1 has no title"},
		{"chapter without title", "courses:\n  - title: x\n    chapters:\n      - position: 1\n", `course "x" chapter 1 has no title`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestReadEmpty(t *testing.T) {
	courses, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	courses, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, courses, 2)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "catalog: open")
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	st := storetest.New(t)
	courses, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	stats, err := Import(ctx, st, courses, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, Stats{Courses: 2, Chapters: 3, Progress: 2, Purchases: 2}, stats)

	got, err := st.GetCourse(ctx, "11111111-1111-1111-1111-111111111111", storetest.All)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Chapters, 2)
	assert.Equal(t, "Intro", got.Chapters[0].Title)
	assert.Equal(t, 1, got.Chapters[0].Position)
	assert.Equal(t, 7, got.Chapters[1].Position)
	assert.Equal(t, 2, got.ProgressCount())
	assert.ElementsMatch(t, []string{"u1", "u2"}, got.LearnerIDs())

	all, err := st.ListCourses(ctx, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestImportSkipsExistingIDs(t *testing.T) {
	ctx := context.Background()
	st := storetest.New(t)
	courses, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	_, err = Import(ctx, st, courses[:1], logger.Nop())
	require.NoError(t, err)

	stats, err := Import(ctx, st, courses[:1], logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, Stats{Skipped: 1}, stats)
}

func TestImportCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	courses, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	_, err = Import(ctx, storetest.New(t), courses, logger.Nop())
	assert.ErrorIs(t, err, context.Canceled)
}
