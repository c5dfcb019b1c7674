// Package excel exports finished runs as xlsx workbooks for sharing
// outside the API.
package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"ideaforge/domain/brainstorm"
	"ideaforge/domain/run"
	"ideaforge/ports"
)

const (
	resultSheet = "Ranked Ideas"
	metaSheet   = "Run Metadata"
)

// ReportWriter writes one workbook per run.
type ReportWriter struct{}

// NewReportWriter creates a report writer.
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// WriteRunReport writes the ranked result and run metadata into
// <dir>/brainstorm-<run_id>.xlsx and returns the file path.
func (w *ReportWriter) WriteRunReport(dir string, result *brainstorm.RankedResult, md run.Metadata) (string, error) {
	if result == nil {
		return "", fmt.Errorf("no result to export")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), resultSheet)
	headers := []string{"Rank", "Composite", "Idea", "Summary", "Relevance", "User Fit", "Feasibility", "Originality", "Justification", "Plan Detail"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(resultSheet, cell, h)
	}

	for i, entry := range result.Entries {
		values := []interface{}{
			i + 1,
			entry.Composite,
			entry.Plan.Idea,
			entry.Plan.Summary,
			entry.Scorecard.Relevance,
			entry.Scorecard.UserFit,
			entry.Scorecard.Feasibility,
			entry.Scorecard.Originality,
			entry.Scorecard.Justification,
			entry.Plan.Detail(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(resultSheet, cell, v)
		}
	}

	if _, err := f.NewSheet(metaSheet); err != nil {
		return "", fmt.Errorf("create metadata sheet: %w", err)
	}
	w.writeMetadata(f, md, result)

	path := filepath.Join(dir, fmt.Sprintf("brainstorm-%s.xlsx", result.RunID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}

func (w *ReportWriter) writeMetadata(f *excelize.File, md run.Metadata, result *brainstorm.RankedResult) {
	rows := [][]interface{}{
		{"Run ID", result.RunID.String()},
		{"Topic", result.Topic.String()},
		{"Status", string(md.Status)},
		{"Started", md.StartedAt.Format("2006-01-02 15:04:05")},
		{"Finished", md.FinishedAt.Format("2006-01-02 15:04:05")},
		{"Total Retries", md.TotalRetries()},
		{"Partial Failures", md.DropCount()},
		{"Used Fallback", md.UsedFallback()},
	}
	for _, stage := range run.Stages {
		s, ok := md.StageStats[stage]
		if !ok {
			continue
		}
		rows = append(rows, []interface{}{
			fmt.Sprintf("%s latency", titleCase(string(stage))),
			s.Latency.String(),
		})
	}
	if md.ScoreSummary != nil {
		rows = append(rows,
			[]interface{}{"Score Mean", md.ScoreSummary.Mean},
			[]interface{}{"Score Median", md.ScoreSummary.Median},
			[]interface{}{"Score StdDev", md.ScoreSummary.StdDev},
		)
	}
	for i, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+1)
			f.SetCellValue(metaSheet, cell, v)
		}
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var _ ports.ReportWriter = (*ReportWriter)(nil)
