package generator

import (
	"context"
	"errors"
)

// Error values for the generator layer.
var (
	ErrGenerationFailed = errors.New("instance generation failed")
	ErrEmptyPlan        = errors.New("generator returned no exercises")
)

// GenerationRequest carries the user context and constraints sent to the
// instance generator when a session is created.
type GenerationRequest struct {
	UserID               string   `json:"user_id"`
	Intent               string   `json:"intent"`
	TimeAvailableMinutes int      `json:"time_available_minutes"`
	Equipment            []string `json:"equipment,omitempty"`
	CoachMode            string   `json:"coach_mode,omitempty"`
}

// GeneratedPlan is the generator's proposal for one workout. It is an
// untrusted external response: every field is defaulted and validated before
// it becomes a payload.
type GeneratedPlan struct {
	Title                    string             `json:"title"`
	Category                 string             `json:"category"`
	EstimatedDurationMinutes int                `json:"estimated_duration_minutes"`
	Focus                    []string           `json:"focus"`
	Exercises                []ExerciseProposal `json:"exercises"`
}

// ExerciseProposal is one proposed exercise. Which target fields are present
// depends on the type tag; absent or malformed fields are defaulted when the
// initial payload is built.
type ExerciseProposal struct {
	Name string `json:"name"`
	Type string `json:"type"` // reps | hold | duration | intervals

	Sets        *int      `json:"sets,omitempty"`
	Reps        []int     `json:"reps,omitempty"`
	Loads       []float64 `json:"loads,omitempty"`
	LoadUnit    string    `json:"load_unit,omitempty"`
	HoldSeconds []int     `json:"hold_seconds,omitempty"`

	DurationMinutes *float64 `json:"duration_minutes,omitempty"`
	DistanceM       *float64 `json:"distance_m,omitempty"`

	Rounds      *int `json:"rounds,omitempty"`
	WorkSeconds *int `json:"work_seconds,omitempty"`
	RestSeconds *int `json:"rest_seconds,omitempty"`
}

// Generator is the external component that proposes the initial exercise
// list for a new session.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GeneratedPlan, error)
}
