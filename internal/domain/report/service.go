package report

import (
	"context"
	"io"
)

// ReportService defines the interface for report generation
type ReportService interface {
	GenerateContributionBaseReport(ctx context.Context, req ContributionBaseRequest) (ContributionBaseReport, error)

	// WriteContributionBaseCSV renders the rows of a generated report.
	WriteContributionBaseCSV(w io.Writer, rep ContributionBaseReport) error
}
