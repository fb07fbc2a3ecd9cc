package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sadewadee/dgs-scraper/internal/domain"
	"github.com/sadewadee/dgs-scraper/internal/export"
)

// ExportHandler handles project export downloads
type ExportHandler struct {
	exporter *export.Exporter
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(exporter *export.Exporter) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

// CSV handles GET /api/v1/export/csv
func (h *ExportHandler) CSV(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, err.Error())
		return
	}

	filename := fmt.Sprintf("dgs_projects_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.exporter.CSV(r.Context(), w, filter); err != nil {
		// Headers are already out; all we can do is log via the caller's
		// middleware and cut the stream short.
		return
	}
}

// XLSX handles GET /api/v1/export/xlsx
func (h *ExportHandler) XLSX(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, err.Error())
		return
	}

	filename := fmt.Sprintf("dgs_projects_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.exporter.XLSX(r.Context(), w, filter); err != nil {
		return
	}
}

func parseFilter(r *http.Request) (*domain.ProjectFilter, error) {
	filter := &domain.ProjectFilter{}
	q := r.URL.Query()

	if v := q.Get("estimated_amt_min"); v != "" {
		amt, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid estimated_amt_min: %s", v)
		}
		filter.EstimatedAmtMin = &amt
	}

	if v := q.Get("received_date_after"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, fmt.Errorf("invalid received_date_after: %s", v)
		}
		filter.ReceivedDateAfter = &t
	}

	if v := q.Get("approved_date_after"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, fmt.Errorf("invalid approved_date_after: %s", v)
		}
		filter.ApprovedDateAfter = &t
	}

	return filter, nil
}
