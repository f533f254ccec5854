package roster

import "github.com/okian/fitscore/internal/domain/model"

// Filter returns the candidates whose stored classification equals f, or all of
// them for FilterAll. The input slice is never modified.
func Filter(snapshot []model.Candidate, f string) []model.Candidate {
	if f == FilterAll || f == "" {
		return append([]model.Candidate(nil), snapshot...)
	}
	out := make([]model.Candidate, 0, len(snapshot))
	for _, c := range snapshot {
		if string(c.Classification) == f {
			out = append(out, c)
		}
	}
	return out
}

// DistinctLabels returns the classification values present in snapshot in the
// order they are first seen.
func DistinctLabels(snapshot []model.Candidate) []string {
	seen := make(map[string]struct{}, 4)
	out := make([]string, 0, 4)
	for _, c := range snapshot {
		l := string(c.Classification)
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
