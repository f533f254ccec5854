package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/fitscore/internal/app"
	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/pkg/metrics"
)

const maxSubmitBody = 64 << 10

// FormsHandler serves the evaluation form lifecycle.
type FormsHandler struct {
	deps Dependencies
}

// NewFormsHandler creates a new forms handler.
func NewFormsHandler(deps Dependencies) *FormsHandler {
	return &FormsHandler{deps: deps}
}

// HandleOpen handles POST /api/forms. A valid identity cookie is reused;
// otherwise sign-in runs in the background and the page polls the form state.
func (h *FormsHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	f := h.deps.OpenForm(r.Context(), identityToken(r))
	syncIdentityCookie(w, r, f)
	writeJSON(w, http.StatusCreated, f.State())
}

// HandleState handles GET /api/forms/{formID}.
func (h *FormsHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	f, err := h.deps.Form(chi.URLParam(r, "formID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	syncIdentityCookie(w, r, f)
	writeJSON(w, http.StatusOK, f.State())
}

// HandleSubmit handles POST /api/forms/{formID}/submit.
func (h *FormsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	f, err := h.deps.Form(chi.URLParam(r, "formID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}

	var ev model.Evaluation
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			metrics.RecordSubmissionError("validation")
			writeFailure(w, service.Confirmation{Title: service.TitleSubmitFailed, Message: verr.Error()}, verr)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	conf, err := f.Submit(r.Context(), ev)
	syncIdentityCookie(w, r, f)
	if err != nil {
		writeFailure(w, conf, err)
		return
	}
	writeJSON(w, http.StatusCreated, conf)
}
