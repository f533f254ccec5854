package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	service "github.com/okian/fitscore/internal/app"
	"github.com/okian/fitscore/internal/domain/roster"
	"github.com/okian/fitscore/pkg/logger"
)

const (
	streamHeartbeat = 15 * time.Second
	maxFilterBody   = 4 << 10
)

// CandidatesHandler serves the roster, once or as a live stream.
type CandidatesHandler struct {
	deps    Dependencies
	log     logger.Logger
	streams *streamRegistry
}

// NewCandidatesHandler creates a new candidates handler.
func NewCandidatesHandler(deps Dependencies, log logger.Logger) *CandidatesHandler {
	return &CandidatesHandler{deps: deps, log: log, streams: newStreamRegistry()}
}

// HandleList handles GET /api/candidates?classification=.
func (h *CandidatesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	frame := h.deps.RosterFrame(r.Context(), r.URL.Query().Get("classification"))
	if frame.Status == roster.Error {
		writeJSON(w, http.StatusBadGateway, errorResponse{Code: "read_error", Message: frame.Error})
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

type streamOpened struct {
	ID string `json:"id"`
}

// HandleStream handles GET /api/candidates/stream?classification=.
//
// Each connection mounts its own view and subscription. The first event,
// "stream", carries the id used to change the filter of this view. Frames are
// sent as "frame" events; a subscription failure is sent once as an "error"
// event and ends the stream.
func (h *CandidatesHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream"
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, ErrNoStreaming))
		return
	}
	ctx := r.Context()

	ls := newLiveStream()
	view, sub, err := h.deps.Watch(ctx, r.URL.Query().Get("classification"), func(roster.Frame) {
		ls.poke()
	})
	if err != nil {
		writeFailure(w, service.Confirmation{}, err)
		return
	}
	defer sub.Unsubscribe()
	ls.view = view

	id := uuid.NewString()
	h.streams.add(id, ls)
	defer h.streams.remove(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := writeEvent(w, "stream", streamOpened{ID: id}); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-ls.wake:
			f := ls.view.Render()
			event := "frame"
			if f.Status == roster.Error {
				event = "error"
			}
			if err := writeEvent(w, event, f); err != nil {
				h.log.Debug(ctx, "stream write failed", logger.Error(err))
				return
			}
			flusher.Flush()
			if f.Status == roster.Error {
				return
			}
		}
	}
}

type filterRequest struct {
	Classification string `json:"classification"`
}

// HandleFilter handles POST /api/candidates/stream/{streamID}/filter. The
// filter is applied to the stream's current snapshot; the stream emits the new
// frame and the same frame is returned.
func (h *CandidatesHandler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	const op = "api.filter"
	id := chi.URLParam(r, "streamID")
	ls, ok := h.streams.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: %s", ErrNoStream, id))
		return
	}

	var req filterRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFilterBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ls.view.SetFilter(req.Classification)
	ls.poke()
	writeJSON(w, http.StatusOK, ls.view.Render())
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
