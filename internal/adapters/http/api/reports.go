package api

import (
	"net/http"

	service "github.com/okian/fitscore/internal/app"
	"github.com/okian/fitscore/internal/domain/model"
)

type reportResponse struct {
	service.Confirmation
	Report *model.Report `json:"report"`
}

// ReportsHandler serves report generation.
type ReportsHandler struct {
	deps Dependencies
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps Dependencies) *ReportsHandler {
	return &ReportsHandler{deps: deps}
}

// HandleGenerate handles POST /api/reports.
func (h *ReportsHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	conf, rep, err := h.deps.GenerateReport(r.Context())
	if err != nil {
		writeFailure(w, conf, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Confirmation: conf, Report: rep})
}
