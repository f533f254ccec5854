package seed

import (
	"github.com/okian/fitscore/internal/domain/roster"
	"github.com/okian/fitscore/internal/domain/scoring"
)

type verification struct {
	visible    int
	mismatched []string
}

// verify matches submitted records against listed rows by id. A listed row must
// carry the expected score, and its label must be the one the threshold table
// gives for that score.
func verify(records []submitted, rows []roster.Row) verification {
	byID := make(map[string]roster.Row, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	var v verification
	for _, rec := range records {
		row, ok := byID[rec.ID]
		if !ok {
			continue
		}
		v.visible++
		if row.FitScore != rec.Expected.Score ||
			row.Classification != rec.Expected.Classification ||
			row.Classification != scoring.Classify(row.FitScore) {
			v.mismatched = append(v.mismatched, rec.ID)
		}
	}
	return v
}
