package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"course-dedupe/internal/dedupe"
	"course-dedupe/internal/export"
	"course-dedupe/internal/publish"
)

func printAnalysis(w io.Writer, r *dedupe.Report) {
	fmt.Fprintf(w, "Scanned %d courses, found %d duplicate groups\n", r.CoursesScanned, r.GroupsFound)
	for _, d := range r.Decisions {
		fmt.Fprintf(w, "\nGroup %d\n", d.Group)
		fmt.Fprintf(w, "  keep    %-40s %s  score=%.1f chapters=%d purchases=%d progress=%d\n",
			quote(d.Retain.Title), d.Retain.ID, d.Retain.Score, d.Retain.Chapters, d.Retain.Purchases, d.Retain.Progress)
		for _, o := range d.Discard {
			fmt.Fprintf(w, "  discard %-40s %s  score=%.1f chapters=%d purchases=%d progress=%d\n",
				quote(o.Course.Title), o.Course.ID, o.Course.Score, o.Course.Chapters, o.Course.Purchases, o.Course.Progress)
		}
	}
}

func printSummary(w io.Writer, r *dedupe.Report) {
	fmt.Fprintf(w, "\nRun %s\n", r.RunID)
	for _, d := range r.Decisions {
		fmt.Fprintf(w, "Group %d [%s] keep %s: %d chapters and %d purchases moved",
			d.Group, d.Status, quote(d.Retain.Title), d.MigratedChapterCount, d.MigratedPurchaseCount)
		var deleted, kept []string
		for _, o := range d.Discard {
			if o.Deleted {
				deleted = append(deleted, o.Course.ID)
			} else {
				kept = append(kept, o.Course.ID)
			}
		}
		if len(deleted) > 0 {
			fmt.Fprintf(w, ", deleted %s", strings.Join(deleted, ", "))
		}
		if len(kept) > 0 && d.Status != dedupe.StatusSkipped {
			fmt.Fprintf(w, ", kept %s", strings.Join(kept, ", "))
		}
		fmt.Fprintln(w)
		for _, e := range d.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
	}
	t := r.Totals
	fmt.Fprintf(w, "\nMerged %d, partial %d, skipped %d, failed %d groups; deleted %d courses; moved %d chapters and %d purchases\n",
		t.GroupsMerged, t.GroupsPartial, t.GroupsSkipped, t.GroupsFailed, t.CoursesDeleted, t.ChaptersMigrated, t.PurchasesMigrated)
}

func quote(s string) string { return fmt.Sprintf("%q", s) }

// publish renders the report and ships it to every configured sink. Sink
// failures are logged; they never fail the run.
func (a *app) publish(ctx context.Context, r *dedupe.Report) {
	docs, err := export.Render(a.cfg.ReportName, r)
	if err != nil {
		a.log.Error("render report", "error", err)
		return
	}
	sinks, closeSinks, err := publish.FromConfig(ctx, a.cfg)
	if err != nil {
		a.log.Error("report sinks", "error", err)
		return
	}
	defer func() {
		if err := closeSinks(); err != nil {
			a.log.Warn("close report sinks", "error", err)
		}
	}()
	if err := publish.All(ctx, sinks, docs, a.log); err != nil {
		a.log.Warn("report not delivered everywhere", "error", err)
	}
}
