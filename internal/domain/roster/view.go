// Package roster holds the client-side state of the live candidate listing.
//
// A View is owned by exactly one mounted dashboard (one SSE connection). It keeps
// the latest snapshot, the selected classification filter and the derived frame.
// Snapshots replace each other wholesale; nothing is merged.
package roster

import (
	"sync"

	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/internal/domain/scoring"
)

// FilterAll is the identity filter.
const FilterAll = "all"

// Status is the state of a View.
type Status string

// View states.
const (
	Loading   Status = "loading"
	Populated Status = "populated"
	Empty     Status = "empty"
	Error     Status = "error"
)

// Row is a candidate as displayed, with the badge color resolved from the stored
// label. The label is never recomputed from the score.
type Row struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	FitScore       int           `json:"fitScore"`
	Classification scoring.Label `json:"classification"`
	Color          scoring.Color `json:"color"`
	Badge          string        `json:"badge"`
}

// Frame is an immutable rendering of a View.
type Frame struct {
	Status     Status   `json:"status"`
	Filter     string   `json:"filter"`
	Options    []string `json:"options"`
	Candidates []Row    `json:"candidates"`
	Total      int      `json:"total"`
	Error      string   `json:"error,omitempty"`
}

// View is safe for concurrent use; snapshot delivery and filter changes may come
// from different goroutines.
type View struct {
	mu       sync.Mutex
	status   Status
	filter   string
	snapshot []model.Candidate
	err      error
}

// New returns a View in the Loading state with the identity filter.
func New() *View {
	return &View{status: Loading, filter: FilterAll}
}

// Apply replaces the current snapshot. It is a no-op once the view failed.
func (v *View) Apply(snapshot []model.Candidate) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.status == Error {
		return
	}
	v.snapshot = append([]model.Candidate(nil), snapshot...)
	v.rederive()
}

// Fail moves the view to the terminal Error state.
func (v *View) Fail(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.status == Error {
		return
	}
	v.status = Error
	v.err = err
}

// SetFilter selects a classification label or FilterAll. An empty value means
// FilterAll.
func (v *View) SetFilter(f string) {
	if f == "" {
		f = FilterAll
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = f
	if v.status == Error || v.status == Loading {
		return
	}
	v.rederive()
}

// rederive must be called with mu held and after the first snapshot.
func (v *View) rederive() {
	if len(Filter(v.snapshot, v.filter)) > 0 {
		v.status = Populated
	} else {
		v.status = Empty
	}
}

// State returns the current status.
func (v *View) State() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// Options returns the selectable filter values of the current snapshot.
func (v *View) Options() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return DistinctLabels(v.snapshot)
}

// Visible returns the filtered candidates.
func (v *View) Visible() []model.Candidate {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Filter(v.snapshot, v.filter)
}

// Render builds a frame of the current state.
func (v *View) Render() Frame {
	v.mu.Lock()
	defer v.mu.Unlock()

	f := Frame{
		Status:     v.status,
		Filter:     v.filter,
		Options:    DistinctLabels(v.snapshot),
		Candidates: []Row{},
		Total:      len(v.snapshot),
	}
	if v.status == Error {
		if v.err != nil {
			f.Error = v.err.Error()
		}
		return f
	}
	for _, c := range Filter(v.snapshot, v.filter) {
		style := scoring.StyleForLabel(c.Classification)
		f.Candidates = append(f.Candidates, Row{
			ID:             c.ID,
			Name:           c.Name,
			Email:          c.Email,
			FitScore:       c.FitScore,
			Classification: style.Label,
			Color:          style.Color,
			Badge:          scoring.BadgeClass(style.Color),
		})
	}
	return f
}
