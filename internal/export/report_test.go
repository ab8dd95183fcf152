package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-dedupe/internal/dedupe"
)

func sampleReport() *dedupe.Report {
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	return &dedupe.Report{
		RunID:          "run-1",
		CoursesScanned: 4,
		GroupsFound:    1,
		Decisions: []*dedupe.MergeDecision{
			{
				Group:                 1,
				Status:                dedupe.StatusPartial,
				Retain:                dedupe.CourseSummary{ID: "a", Title: "IA Básico - Cert", CreatedAt: created, Published: true, Chapters: 5, Purchases: 10, Score: 665},
				MigratedChapterCount:  3,
				MigratedPurchaseCount: 1,
				Errors:                []string{"migrate c: partial migration:\nboom"},
				Discard: []dedupe.DiscardOutcome{
					{
						Course:    dedupe.CourseSummary{ID: "b", Title: "ia basico, cert", Chapters: 3, Purchases: 2, Score: 144.5},
						Migration: dedupe.MigrationResult{ChaptersMoved: 3, PurchasesMoved: 1, PurchasesSkipped: 1},
						Deleted:   true,
					},
					{
						Course: dedupe.CourseSummary{ID: "c", Title: "IA basico"},
						Error:  "partial migration:\nboom",
					},
				},
			},
		},
	}
}

func TestWriteReportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReportCSV(&buf, sampleReport()))

	assert.Contains(t, buf.String(), "\r\n", "rows must use CRLF")

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, reportHeader, rows[0])
	for i, row := range rows {
		assert.Len(t, row, len(reportHeader), "row %d", i)
	}

	retain := rows[1]
	assert.Equal(t, []string{"run-1", "1", "partial", "retain", "a", "IA Básico - Cert", "2024-03-01T08:00:00Z", "true", "5", "10", "0", "665.0", "3", "", "1", "", "false"}, retain[:17])
	assert.Equal(t, "migrate c: partial migration: boom", retain[17])

	discard := rows[2]
	assert.Equal(t, "discard", discard[3])
	assert.Equal(t, "ia basico, cert", discard[5])
	assert.Equal(t, "", discard[6])
	assert.Equal(t, "144.5", discard[11])
	assert.Equal(t, []string{"3", "0", "1", "1", "true", ""}, discard[12:])

	assert.Equal(t, "partial migration: boom", rows[3][17])
}

func TestWriteReportCSVNil(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReportCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReportJSON(&buf, sampleReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["runId"])
	decisions, ok := decoded["decisions"].([]any)
	require.True(t, ok)
	require.Len(t, decisions, 1)
	first := decisions[0].(map[string]any)
	assert.Equal(t, "partial", first["status"])
	assert.EqualValues(t, 3, first["migratedChapterCount"])
}

func TestRender(t *testing.T) {
	docs, err := Render("dups", sampleReport())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "dups-run-1.json", docs[0].Name)
	assert.Equal(t, "application/json", docs[0].ContentType)
	assert.Equal(t, "dups-run-1.csv", docs[1].Name)
	assert.Equal(t, "text/csv", docs[1].ContentType)
	assert.NotEmpty(t, docs[1].Data)

	docs, err = Render("", &dedupe.Report{})
	require.NoError(t, err)
	assert.Equal(t, "duplicate-courses.json", docs[0].Name)
}
