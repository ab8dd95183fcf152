// Package catalog loads course catalogs from YAML and imports them into a
// store. It backs the seed command used for local databases and smoke runs.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"course-dedupe/internal/domain"
	"course-dedupe/internal/logger"
	"course-dedupe/internal/store"
)

// File is the YAML document layout:
//
//	courses:
//	  - title: IA Básico
//	    createdAt: 2024-01-10T00:00:00Z
//	    isPublished: true
//	    price: 49.9
//	    chapters:
//	      - title: Intro
//	        progress:
//	          - userId: u1
//	            isCompleted: true
//	    purchases:
//	      - userId: u1
type File struct {
	Courses []domain.Course `yaml:"courses"`
}

// Stats counts what Import wrote.
type Stats struct {
	Courses   int
	Chapters  int
	Progress  int
	Purchases int
	// Courses with an explicit id that already existed.
	Skipped int
}

func Read(r io.Reader) ([]domain.Course, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	for i, c := range f.Courses {
		if strings.TrimSpace(c.Title) == "" {
			return nil, fmt.Errorf("catalog: course %d has no title", i+1)
		}
		for j, ch := range c.Chapters {
			if strings.TrimSpace(ch.Title) == "" {
				return nil, fmt.Errorf("catalog: course %q chapter %d has no title", c.Title, j+1)
			}
		}
	}
	return f.Courses, nil
}

func ReadFile(path string) ([]domain.Course, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Import writes every course with its chapters, progress and purchases.
// Chapters without a position get their 1-based list index. Courses whose
// explicit id already exists are skipped so a catalog can be re-applied.
func Import(ctx context.Context, st store.Store, courses []domain.Course, log *logger.Logger) (Stats, error) {
	var stats Stats
	for _, src := range courses {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if src.ID != "" {
			existing, err := st.GetCourse(ctx, src.ID, store.ListOptions{})
			if err != nil {
				return stats, err
			}
			if existing != nil {
				stats.Skipped++
				log.Debug("catalog course exists, skipping", "course_id", src.ID)
				continue
			}
		}

		course := src
		course.Chapters = nil
		course.Purchases = nil
		if err := st.CreateCourse(ctx, &course); err != nil {
			return stats, err
		}
		stats.Courses++

		for i, srcCh := range src.Chapters {
			ch := srcCh
			ch.CourseID = course.ID
			ch.UserProgress = nil
			if ch.Position == 0 {
				ch.Position = i + 1
			}
			if err := st.CreateChapter(ctx, &ch); err != nil {
				return stats, err
			}
			stats.Chapters++

			for _, srcP := range srcCh.UserProgress {
				p := srcP
				p.ChapterID = ch.ID
				if err := st.CreateUserProgress(ctx, &p); err != nil {
					return stats, err
				}
				stats.Progress++
			}
		}

		for _, srcP := range src.Purchases {
			p := srcP
			p.CourseID = course.ID
			if err := st.CreatePurchase(ctx, &p); err != nil {
				return stats, err
			}
			stats.Purchases++
		}

		log.Info("catalog course imported",
			"course_id", course.ID,
			"title", course.Title,
			"chapters", len(src.Chapters),
			"purchases", len(src.Purchases),
		)
	}
	return stats, nil
}
