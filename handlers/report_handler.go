package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/Sovan7777/spardha-26/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	reportService services.ReportService
	pages         *Pages
}

func NewReportHandler(rs services.ReportService, pages *Pages) *ReportHandler {
	return &ReportHandler{reportService: rs, pages: pages}
}

func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reportService.Summary(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, summary, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ReportHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	// При ошибке отдаём JSON, а не обрезанный файл.
	var buf bytes.Buffer
	if err := h.reportService.ExportXLSX(r.Context(), &buf); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="spardha-registrations.xlsx"`)
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Page renders the protected report route the login view navigates to.
func (h *ReportHandler) Page(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reportService.Summary(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	h.pages.render(w, r, "report.html", summary)
}
