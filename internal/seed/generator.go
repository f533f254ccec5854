package seed

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/internal/domain/scoring"
)

// Rating profiles. Each profile draws every slider from [lo, hi].
var profiles = []struct {
	name   string
	lo, hi int
}{
	{"average", 3, 7}, // most common
	{"average", 3, 7},
	{"strong", 7, 9},
	{"elite", 9, 10}, // rare
	{"weak", 0, 3},
	{"mid-high", 6, 8},
	{"mid-low", 2, 4},
	{"wide", 0, 10},
}

func randInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// Generate returns n evaluations with unique emails and varied ratings.
func Generate(n int) []model.Evaluation {
	out := make([]model.Evaluation, n)
	for i := range out {
		out[i] = generateOne(i)
	}
	return out
}

func generateOne(i int) model.Evaluation {
	p := profiles[randInt(len(profiles))]
	var ratings [scoring.ItemCount]int
	for j := range ratings {
		ratings[j] = p.lo + randInt(p.hi-p.lo+1)
	}
	tag := uuid.NewString()[:8]
	return model.Evaluation{
		Name:    fmt.Sprintf("Candidato %d (%s)", i+1, p.name),
		Email:   fmt.Sprintf("candidato-%d-%s@example.com", i+1, tag),
		Ratings: ratings,
	}
}
