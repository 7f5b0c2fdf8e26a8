package engine_test

import (
	"testing"

	"pulsefit/workout-app/internal/domain"
	"pulsefit/workout-app/internal/engine"
	"pulsefit/workout-app/internal/generator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPayload_RepsExercise(t *testing.T) {
	sets := 3
	rest := 90
	payload := engine.BuildPayload(generator.ExerciseProposal{
		Name:        "Bench Press",
		Type:        "reps",
		Sets:        &sets,
		Reps:        []int{8, 8, 6},
		Loads:       []float64{60, 60, 65},
		LoadUnit:    "kg",
		RestSeconds: &rest,
	})

	assert.Equal(t, domain.PayloadSchemaVersion, payload.SchemaVersion)
	assert.Equal(t, "Bench Press", payload.Identity.Name)
	assert.Equal(t, domain.ExerciseTypeReps, payload.Identity.Type)

	require.Len(t, payload.Prescription.Sets, 3)
	assert.Equal(t, 6, *payload.Prescription.Sets[2].Reps)
	assert.Equal(t, 65.0, *payload.Prescription.Sets[2].Load)
	assert.Equal(t, "kg", payload.Prescription.Sets[2].LoadUnit)
	require.NotNil(t, payload.Prescription.RestSeconds)
	assert.Equal(t, 90, *payload.Prescription.RestSeconds)

	// Performance starts index-aligned and empty.
	require.Len(t, payload.Performance.Sets, 3)
	for _, set := range payload.Performance.Sets {
		assert.False(t, set.HasActual())
		assert.Nil(t, set.CompletedAt)
	}
}

func TestBuildPayload_ShortTargetArraysRepeatLastValue(t *testing.T) {
	sets := 4
	payload := engine.BuildPayload(generator.ExerciseProposal{
		Name:  "Deadlift",
		Type:  "reps",
		Sets:  &sets,
		Reps:  []int{5},
		Loads: []float64{100, 110},
	})

	require.Len(t, payload.Prescription.Sets, 4)
	assert.Equal(t, 5, *payload.Prescription.Sets[3].Reps)
	assert.Equal(t, 110.0, *payload.Prescription.Sets[3].Load)
}

func TestBuildPayload_SetCountFromLongestArray(t *testing.T) {
	payload := engine.BuildPayload(generator.ExerciseProposal{
		Name:        "Plank",
		Type:        "hold",
		HoldSeconds: []int{45, 45, 60},
	})

	require.Len(t, payload.Prescription.Sets, 3)
	assert.Equal(t, 60, *payload.Prescription.Sets[2].DurationSec)
	assert.Nil(t, payload.Prescription.Sets[2].Reps)
}

func TestBuildPayload_DurationExercise(t *testing.T) {
	minutes := 22.5
	distance := 5000.0
	payload := engine.BuildPayload(generator.ExerciseProposal{
		Name:            "Easy Run",
		Type:            "duration",
		DurationMinutes: &minutes,
		DistanceM:       &distance,
	})

	require.Len(t, payload.Prescription.Sets, 1)
	assert.Equal(t, 1350, *payload.Prescription.Sets[0].DurationSec)
	assert.Equal(t, 5000.0, *payload.Prescription.Sets[0].DistanceM)
}

func TestBuildPayload_IntervalsUseRounds(t *testing.T) {
	rounds := 8
	work := 30
	payload := engine.BuildPayload(generator.ExerciseProposal{
		Name:        "Bike Sprints",
		Type:        "intervals",
		Rounds:      &rounds,
		WorkSeconds: &work,
	})

	require.Len(t, payload.Prescription.Sets, 8)
	assert.Equal(t, 30, *payload.Prescription.Sets[0].DurationSec)
}

func TestBuildPayload_DefaultsUntrustedInput(t *testing.T) {
	payload := engine.BuildPayload(generator.ExerciseProposal{
		Name: "  ",
		Type: "telepathy",
		Reps: []int{-3},
	})

	assert.Equal(t, "Unnamed Exercise", payload.Identity.Name)
	assert.Equal(t, domain.ExerciseTypeReps, payload.Identity.Type)
	require.Len(t, payload.Prescription.Sets, 1)
	// Negative targets are treated as absent.
	assert.Nil(t, payload.Prescription.Sets[0].Reps)
}

func TestBuildPayload_NormalizesTypeTag(t *testing.T) {
	payload := engine.BuildPayload(generator.ExerciseProposal{
		Name:        "Wall Sit",
		Type:        " HOLD ",
		HoldSeconds: []int{30},
	})
	assert.Equal(t, domain.ExerciseTypeHold, payload.Identity.Type)
}
