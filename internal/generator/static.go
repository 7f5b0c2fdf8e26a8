package generator

import (
	"context"
	"strings"
)

// staticGenerator is the built-in fallback used when no external generator
// service is configured. It produces a small deterministic full-body plan
// shaped by the time constraint, so the system stays usable in development
// and in degraded mode.
type staticGenerator struct{}

// NewStaticGenerator creates the built-in fallback Generator.
func NewStaticGenerator() Generator {
	return &staticGenerator{}
}

func (g *staticGenerator) Generate(_ context.Context, req GenerationRequest) (*GeneratedPlan, error) {
	minutes := req.TimeAvailableMinutes
	if minutes <= 0 {
		minutes = 30
	}

	sets := 3
	if minutes < 20 {
		sets = 2
	}

	title := "Full Body Basics"
	if req.Intent != "" {
		title = capitalize(req.Intent) + " Session"
	}

	plan := &GeneratedPlan{
		Title:                    title,
		Category:                 "strength",
		EstimatedDurationMinutes: minutes,
		Focus:                    []string{"full_body"},
		Exercises: []ExerciseProposal{
			{
				Name:        "Bodyweight Squat",
				Type:        "reps",
				Sets:        intPtr(sets),
				Reps:        []int{12, 12, 10},
				RestSeconds: intPtr(60),
			},
			{
				Name:        "Push-Up",
				Type:        "reps",
				Sets:        intPtr(sets),
				Reps:        []int{10, 10, 8},
				RestSeconds: intPtr(60),
			},
			{
				Name:        "Plank",
				Type:        "hold",
				Sets:        intPtr(sets),
				HoldSeconds: []int{40, 40, 30},
				RestSeconds: intPtr(45),
			},
		},
	}

	if minutes >= 30 {
		plan.Exercises = append(plan.Exercises, ExerciseProposal{
			Name:            "Easy Run",
			Type:            "duration",
			DurationMinutes: floatPtr(10),
		})
	}
	return plan, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
