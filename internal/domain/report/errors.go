package report

import "errors"

var (
	ErrInvalidFormat          = errors.New("format must be json or csv")
	ErrNoDataFound            = errors.New("no data found for the specified criteria")
	ErrReportGenerationFailed = errors.New("failed to generate report")
)
