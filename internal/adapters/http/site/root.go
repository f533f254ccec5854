// Package site serves the embedded evaluation form page.
package site

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Register attaches the form page to r at /.
func Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Get("/", NewRootHandler().HandleRoot)
}

// RootHandler handles root path requests.
type RootHandler struct {
	files http.FileSystem
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{files: FS()}
}

// HandleRoot handles GET / and serves the evaluation form.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	http.FileServer(h.files).ServeHTTP(w, r)
}
