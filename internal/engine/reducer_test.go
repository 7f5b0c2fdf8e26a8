package engine_test

import (
	"testing"
	"time"

	"pulsefit/workout-app/internal/domain"
	"pulsefit/workout-app/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

// repsPayload builds a reps exercise with the given number of sets, each
// prescribed 10 reps at 20 load.
func repsPayload(sets int) domain.Payload {
	p := domain.Payload{
		SchemaVersion: domain.PayloadSchemaVersion,
		Identity: domain.ExerciseIdentity{
			Name: "Goblet Squat",
			Type: domain.ExerciseTypeReps,
		},
	}
	for i := 0; i < sets; i++ {
		p.Prescription.Sets = append(p.Prescription.Sets, domain.TargetSet{
			Reps: intPtr(10), Load: floatPtr(20), LoadUnit: "kg",
		})
		p.Performance.Sets = append(p.Performance.Sets, domain.SetResult{})
	}
	return p
}

func TestReduce_CompleteSet(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	payload := repsPayload(2)

	result, err := engine.Reduce(payload, domain.ExerciseStatusPending, domain.CompleteSet{
		SetIndex: 0,
		Reps:     intPtr(9),
		Load:     floatPtr(20),
	}, now)
	require.NoError(t, err)

	set := result.Payload.Performance.Sets[0]
	assert.Equal(t, 9, *set.Reps)
	assert.Equal(t, 20.0, *set.Load)
	require.NotNil(t, set.CompletedAt)
	assert.Equal(t, now, *set.CompletedAt)

	// One of two sets done: in progress, metrics reflect the one set.
	assert.Equal(t, domain.ExerciseStatusInProgress, result.Status)
	assert.Equal(t, 9, result.Metrics.TotalReps)
	assert.Equal(t, 180.0, result.Metrics.Volume)

	// The input payload must not be mutated.
	assert.Nil(t, payload.Performance.Sets[0].Reps)
	assert.Nil(t, payload.Performance.Sets[0].CompletedAt)
}

func TestReduce_CompletingAllSetsDerivesCompleted(t *testing.T) {
	now := time.Now().UTC()
	payload := repsPayload(2)
	status := domain.ExerciseStatusPending

	for i := 0; i < 2; i++ {
		result, err := engine.Reduce(payload, status, domain.CompleteSet{
			SetIndex: i, Reps: intPtr(9), Load: floatPtr(20),
		}, now)
		require.NoError(t, err)
		payload, status = result.Payload, result.Status
	}

	assert.Equal(t, domain.ExerciseStatusCompleted, status)
	metrics := engine.DeriveMetrics(payload)
	assert.Equal(t, 18, metrics.TotalReps)
	assert.Equal(t, 360.0, metrics.Volume)
}

func TestReduce_UpdateSetActual_StampsOnlyFirstTime(t *testing.T) {
	first := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	later := first.Add(10 * time.Minute)
	payload := repsPayload(1)

	result, err := engine.Reduce(payload, domain.ExerciseStatusPending, domain.UpdateSetActual{
		SetIndex: 0, Reps: intPtr(8),
	}, first)
	require.NoError(t, err)
	require.NotNil(t, result.Payload.Performance.Sets[0].CompletedAt)
	assert.Equal(t, first, *result.Payload.Performance.Sets[0].CompletedAt)

	// Editing an already recorded set keeps the original stamp.
	result, err = engine.Reduce(result.Payload, result.Status, domain.UpdateSetActual{
		SetIndex: 0, Reps: intPtr(10),
	}, later)
	require.NoError(t, err)
	assert.Equal(t, 10, *result.Payload.Performance.Sets[0].Reps)
	assert.Equal(t, first, *result.Payload.Performance.Sets[0].CompletedAt)
}

func TestReduce_UpdateSetTarget_MarksModified(t *testing.T) {
	payload := repsPayload(1)

	result, err := engine.Reduce(payload, domain.ExerciseStatusPending, domain.UpdateSetTarget{
		SetIndex: 0, Reps: intPtr(12), Load: floatPtr(25),
	}, time.Now().UTC())
	require.NoError(t, err)

	target := result.Payload.Prescription.Sets[0]
	assert.Equal(t, 12, *target.Reps)
	assert.Equal(t, 25.0, *target.Load)
	assert.True(t, result.Payload.Flags.Modified)
	// Target edits never touch performance, so status stays derived.
	assert.Equal(t, domain.ExerciseStatusPending, result.Status)
}

func TestReduce_AdjustRestSeconds(t *testing.T) {
	payload := repsPayload(1)

	result, err := engine.Reduce(payload, domain.ExerciseStatusPending,
		domain.AdjustRestSeconds{RestSeconds: 120}, time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, result.Payload.Prescription.RestSeconds)
	assert.Equal(t, 120, *result.Payload.Prescription.RestSeconds)
	assert.True(t, result.Payload.Flags.Modified)
}

func TestReduce_SkipIsSticky(t *testing.T) {
	now := time.Now().UTC()
	payload := repsPayload(2)

	result, err := engine.Reduce(payload, domain.ExerciseStatusPending,
		domain.SkipExercise{Reason: "knee pain"}, now)
	require.NoError(t, err)
	assert.Equal(t, domain.ExerciseStatusSkipped, result.Status)
	require.NotNil(t, result.Payload.Flags.SkipReason)
	assert.Equal(t, "knee pain", *result.Payload.Flags.SkipReason)

	// Recording a set on a skipped exercise applies the data but keeps the
	// status skipped.
	result, err = engine.Reduce(result.Payload, result.Status, domain.CompleteSet{
		SetIndex: 0, Reps: intPtr(5),
	}, now)
	require.NoError(t, err)
	assert.Equal(t, domain.ExerciseStatusSkipped, result.Status)
	assert.Equal(t, 5, *result.Payload.Performance.Sets[0].Reps)

	// Unskip clears the reason and re-derives from performance: one of two
	// sets has actuals, so in progress.
	result, err = engine.Reduce(result.Payload, result.Status, domain.UnskipExercise{}, now)
	require.NoError(t, err)
	assert.Equal(t, domain.ExerciseStatusInProgress, result.Status)
	assert.Nil(t, result.Payload.Flags.SkipReason)
}

func TestReduce_CompleteExercise_WithNoPerformance(t *testing.T) {
	result, err := engine.Reduce(repsPayload(3), domain.ExerciseStatusPending,
		domain.CompleteExercise{}, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, domain.ExerciseStatusCompleted, result.Status)
	assert.Zero(t, result.Metrics.TotalReps)
	assert.Zero(t, result.Metrics.Volume)
	for _, set := range result.Payload.Performance.Sets {
		assert.Nil(t, set.CompletedAt)
	}
}

func TestReduce_CompleteExercise_StampsUnstampedActuals(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	payload := repsPayload(2)
	payload.Performance.Sets[0].Reps = intPtr(10)

	result, err := engine.Reduce(payload, domain.ExerciseStatusInProgress,
		domain.CompleteExercise{}, now)
	require.NoError(t, err)
	assert.Equal(t, domain.ExerciseStatusCompleted, result.Status)
	require.NotNil(t, result.Payload.Performance.Sets[0].CompletedAt)
	assert.Equal(t, now, *result.Payload.Performance.Sets[0].CompletedAt)
	assert.Nil(t, result.Payload.Performance.Sets[1].CompletedAt)
}

func TestReduce_ReopenExercise_RederivesStatus(t *testing.T) {
	now := time.Now().UTC()
	payload := repsPayload(2)
	payload.Performance.Sets[0].Reps = intPtr(10)

	result, err := engine.Reduce(payload, domain.ExerciseStatusCompleted,
		domain.ReopenExercise{}, now)
	require.NoError(t, err)
	assert.Equal(t, domain.ExerciseStatusInProgress, result.Status)
}

func TestReduce_SetExerciseRPE_OverridesDerivedRPE(t *testing.T) {
	now := time.Now().UTC()
	payload := repsPayload(2)
	payload.Performance.Sets[0].Reps = intPtr(10)
	payload.Performance.Sets[0].RPE = intPtr(6)
	payload.Performance.Sets[1].Reps = intPtr(10)
	payload.Performance.Sets[1].RPE = intPtr(9)

	// Without an explicit value the RPE is the integer average of the sets.
	metrics := engine.DeriveMetrics(payload)
	require.NotNil(t, metrics.ExerciseRPE)
	assert.Equal(t, 7, *metrics.ExerciseRPE)

	result, err := engine.Reduce(payload, domain.ExerciseStatusCompleted,
		domain.SetExerciseRPE{RPE: 9}, now)
	require.NoError(t, err)
	require.NotNil(t, result.Metrics.ExerciseRPE)
	assert.Equal(t, 9, *result.Metrics.ExerciseRPE)
}

func TestReduce_SetExerciseNote(t *testing.T) {
	result, err := engine.Reduce(repsPayload(1), domain.ExerciseStatusPending,
		domain.SetExerciseNote{Note: "felt strong today"}, time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, result.Payload.Note)
	assert.Equal(t, "felt strong today", *result.Payload.Note)
}

func TestReduce_InvalidSetIndex(t *testing.T) {
	_, err := engine.Reduce(repsPayload(2), domain.ExerciseStatusPending,
		domain.CompleteSet{SetIndex: 2, Reps: intPtr(10)}, time.Now().UTC())
	require.Error(t, err)

	var badIndex *domain.InvalidSetIndexError
	require.ErrorAs(t, err, &badIndex)
	assert.Equal(t, 2, badIndex.Index)
	assert.Equal(t, 2, badIndex.SetCount)
}

func TestReduce_InvalidRPE(t *testing.T) {
	_, err := engine.Reduce(repsPayload(1), domain.ExerciseStatusPending,
		domain.CompleteSet{SetIndex: 0, RPE: intPtr(11)}, time.Now().UTC())
	require.Error(t, err)

	var domErr *domain.Error
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, domain.ErrKindValidation, domErr.Kind)
}

func TestReduce_CorruptPayloadLengthMismatch(t *testing.T) {
	payload := repsPayload(2)
	payload.Performance.Sets = payload.Performance.Sets[:1]

	_, err := engine.Reduce(payload, domain.ExerciseStatusPending,
		domain.SetExerciseNote{Note: "x"}, time.Now().UTC())
	require.Error(t, err)
}

func TestReduce_StampsCurrentSchemaVersion(t *testing.T) {
	payload := repsPayload(1)
	payload.SchemaVersion = 1

	result, err := engine.Reduce(payload, domain.ExerciseStatusPending,
		domain.SetExerciseNote{Note: "x"}, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, domain.PayloadSchemaVersion, result.Payload.SchemaVersion)
}

func TestDeriveStatus(t *testing.T) {
	perf := domain.Performance{Sets: []domain.SetResult{{}, {}}}
	assert.Equal(t, domain.ExerciseStatusPending, engine.DeriveStatus(perf))

	perf.Sets[0].Reps = intPtr(5)
	assert.Equal(t, domain.ExerciseStatusInProgress, engine.DeriveStatus(perf))

	perf.Sets[1].DurationSec = intPtr(30)
	assert.Equal(t, domain.ExerciseStatusCompleted, engine.DeriveStatus(perf))
}

func TestDeriveMetrics_VolumeNeedsRepsAndLoad(t *testing.T) {
	payload := repsPayload(2)
	payload.Performance.Sets[0].Reps = intPtr(10)
	payload.Performance.Sets[0].Load = floatPtr(40)
	// Reps without load contribute to total reps but not volume.
	payload.Performance.Sets[1].Reps = intPtr(10)

	metrics := engine.DeriveMetrics(payload)
	assert.Equal(t, 20, metrics.TotalReps)
	assert.Equal(t, 400.0, metrics.Volume)
	assert.Nil(t, metrics.ExerciseRPE)
}
