package http

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/report"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type ReportHandler interface {
	GetContributionBaseReport(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reportService report.ReportService
}

func NewReportHandler(reportService report.ReportService) ReportHandler {
	return &reportHandlerImpl{
		reportService: reportService,
	}
}

// GetContributionBaseReport handles GET /reports/periods/{period}/contribution-bases
func (h *reportHandlerImpl) GetContributionBaseReport(w http.ResponseWriter, r *http.Request) {
	format := report.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = report.FormatJSON
	}

	result, err := h.reportService.GenerateContributionBaseReport(r.Context(), report.ContributionBaseRequest{
		Period: chi.URLParam(r, "period"),
		Format: format,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if format == report.FormatCSV {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="contribution-bases-%s.csv"`, result.PeriodName))
		if err := h.reportService.WriteContributionBaseCSV(w, result); err != nil {
			response.InternalServerError(w, "Failed to render report")
		}
		return
	}

	response.Success(w, result)
}
