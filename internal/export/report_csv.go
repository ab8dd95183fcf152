package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"course-dedupe/internal/dedupe"
)

// Keep header order EXACT; downstream spreadsheets key on column position.
var reportHeader = []string{
	"RUN_ID",
	"GROUP",
	"STATUS",
	"ROLE",
	"COURSE_ID",
	"COURSE_TITLE",
	"CREATED_AT",
	"PUBLISHED",
	"CHAPTERS",
	"PURCHASES",
	"PROGRESS",
	"SCORE",
	"CHAPTERS_MOVED",
	"CHAPTERS_SKIPPED",
	"PURCHASES_MOVED",
	"PURCHASES_SKIPPED",
	"DELETED",
	"ERROR",
}

// WriteReportCSV writes one row per course of every group: the retained
// course first, then each discarded course with its migration counters.
func WriteReportCSV(w io.Writer, r *dedupe.Report) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	if r == nil {
		cw.Flush()
		return cw.Error()
	}

	for _, d := range r.Decisions {
		retainRow := courseRow(r.RunID, d, "retain", d.Retain)
		retainRow = append(retainRow,
			strconv.Itoa(d.MigratedChapterCount),  // CHAPTERS_MOVED
			"",                                    // CHAPTERS_SKIPPED
			strconv.Itoa(d.MigratedPurchaseCount), // PURCHASES_MOVED
			"",                                    // PURCHASES_SKIPPED
			"false",                               // DELETED
			clean(strings.Join(d.Errors, " | ")),  // ERROR
		)
		if err := cw.Write(retainRow); err != nil {
			return err
		}

		for _, o := range d.Discard {
			row := courseRow(r.RunID, d, "discard", o.Course)
			row = append(row,
				strconv.Itoa(o.Migration.ChaptersMoved),
				strconv.Itoa(o.Migration.ChaptersSkipped),
				strconv.Itoa(o.Migration.PurchasesMoved),
				strconv.Itoa(o.Migration.PurchasesSkipped),
				strconv.FormatBool(o.Deleted),
				clean(o.Error),
			)
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func courseRow(runID string, d *dedupe.MergeDecision, role string, c dedupe.CourseSummary) []string {
	created := ""
	if !c.CreatedAt.IsZero() {
		created = c.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		runID,                                    // RUN_ID
		strconv.Itoa(d.Group),                    // GROUP
		string(d.Status),                         // STATUS
		role,                                     // ROLE
		c.ID,                                     // COURSE_ID
		clean(c.Title),                           // COURSE_TITLE
		created,                                  // CREATED_AT
		strconv.FormatBool(c.Published),          // PUBLISHED
		strconv.Itoa(c.Chapters),                 // CHAPTERS
		strconv.Itoa(c.Purchases),                // PURCHASES
		strconv.Itoa(c.Progress),                 // PROGRESS
		strconv.FormatFloat(c.Score, 'f', 1, 64), // SCORE
	}
}

// avoid newlines inside cells
func clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}
