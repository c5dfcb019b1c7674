package ports

import (
	"ideaforge/domain/brainstorm"
	"ideaforge/domain/run"
)

// ReportWriter exports one finished run to a file and returns its path.
type ReportWriter interface {
	WriteRunReport(dir string, result *brainstorm.RankedResult, md run.Metadata) (string, error)
}
