// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/fitscore/internal/domain/scoring"
)

// Candidate is the persisted evaluation record. JSON names match the documents
// already written by the web client so old and new records read the same.
type Candidate struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	FitScore       int           `json:"fitScore"`
	Classification scoring.Label `json:"classification"`
	OwnerIdentity  string        `json:"userId"`
	CreatedAt      time.Time     `json:"timestamp"`
}

// Evaluation is what a form submits: the candidate's contact data and the ten
// slider ratings.
type Evaluation struct {
	Name    string                 `json:"name" validate:"required"`
	Email   string                 `json:"email" validate:"required,email"`
	Ratings [scoring.ItemCount]int `json:"scores" validate:"dive,min=0,max=10"`
}

// UnmarshalJSON decodes a submitted evaluation. The scores list must hold
// exactly one rating per questionnaire item; a short, long or missing list is a
// ValidationError rather than zero-filled ratings.
func (e *Evaluation) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name   string `json:"name"`
		Email  string `json:"email"`
		Scores []int  `json:"scores"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if len(raw.Scores) != scoring.ItemCount {
		return &ValidationError{
			Field:  "scores",
			Reason: fmt.Sprintf("must hold %d ratings, got %d", scoring.ItemCount, len(raw.Scores)),
		}
	}
	e.Name = raw.Name
	e.Email = raw.Email
	copy(e.Ratings[:], raw.Scores)
	return nil
}

// ValidationError reports a missing or malformed evaluation field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims surrounding whitespace from the text fields.
func (e Evaluation) Normalize() Evaluation {
	e.Name = strings.TrimSpace(e.Name)
	e.Email = strings.TrimSpace(e.Email)
	return e
}

// Validate checks required fields and slider bounds. The first failing field
// is reported.
func (e Evaluation) Validate() error {
	err := validate.Struct(e)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Field: "evaluation", Reason: err.Error()}
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch {
	case strings.HasPrefix(fe.Field(), "Ratings"):
		field = "scores" + strings.TrimPrefix(fe.Field(), "Ratings")
	}
	return &ValidationError{Field: field, Reason: reason(fe)}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be an email address"
	case "min", "max":
		return fmt.Sprintf("must be between %d and %d", scoring.MinRating, scoring.MaxRating)
	default:
		return fe.Tag()
	}
}

// NewCandidate derives the persisted record for an evaluation submitted by owner.
// ID and CreatedAt are left for the store to assign.
func NewCandidate(e Evaluation, owner string) Candidate {
	res := scoring.Evaluate(e.Ratings)
	return Candidate{
		Name:           e.Name,
		Email:          e.Email,
		FitScore:       res.Score,
		Classification: res.Classification,
		OwnerIdentity:  owner,
	}
}
