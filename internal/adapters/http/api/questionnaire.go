package api

import (
	"net/http"

	"github.com/okian/fitscore/internal/domain/scoring"
)

type questionnaireResponse struct {
	Categories    []scoring.Category `json:"categories"`
	Thresholds    []scoring.Tier     `json:"thresholds"`
	MinRating     int                `json:"minRating"`
	MaxRating     int                `json:"maxRating"`
	DefaultRating int                `json:"defaultRating"`
	MaxScore      int                `json:"maxScore"`
}

// HandleQuestionnaire handles GET /api/questionnaire.
func HandleQuestionnaire(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, questionnaireResponse{
		Categories:    scoring.Questionnaire(),
		Thresholds:    scoring.Table(),
		MinRating:     scoring.MinRating,
		MaxRating:     scoring.MaxRating,
		DefaultRating: scoring.DefaultRating,
		MaxScore:      scoring.MaxScore,
	})
}
