package http

import (
	"net/http"
	"strconv"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/app/report"
	"github.com/alemudanse/dispatch/internal/domain"
	"github.com/alemudanse/dispatch/internal/interfaces"
)

type ReportHandler struct {
	reports interfaces.ReportService
	logger  logger.Logger
}

func NewReportHandler(reports interfaces.ReportService, lgr logger.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  lgr,
	}
}

// DriverReport aggregates delivery outcomes. Admins may query any driver;
// drivers are forced onto their own id regardless of the query parameter.
func (h *ReportHandler) DriverReport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		writeError(w, domain.E(domain.KindUnauthenticated, "missing credentials"))
		return
	}

	q := r.URL.Query()
	var driverID int64
	if claims.Role == RoleAdmin {
		driverID, _ = strconv.ParseInt(q.Get("driver"), 10, 64)
	} else {
		id, err := strconv.ParseInt(claims.UserID, 10, 64)
		if err != nil {
			writeError(w, domain.E(domain.KindForbidden, "driver id required"))
			return
		}
		driverID = id
	}

	resp, err := h.reports.Report(r.Context(), q.Get("start"), q.Get("end"), driverID)
	if err != nil {
		writeError(w, err)
		return
	}

	if q.Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="driver-report.csv"`)
		if err := report.WriteCSV(w, resp); err != nil {
			h.logger.Error("report_csv", "Failed to write CSV report", "", nil, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
