package engine_test

import (
	"testing"
	"time"

	"pulsefit/workout-app/internal/domain"
	"pulsefit/workout-app/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func mustRaw(t *testing.T, doc bson.M) bson.Raw {
	t.Helper()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	return bson.Raw(raw)
}

func TestDecodePayload_CurrentVersionRoundTrips(t *testing.T) {
	payload := repsPayload(2)
	payload.Performance.Sets[0].Reps = intPtr(9)
	payload.Flags.Modified = true

	raw, err := engine.EncodePayload(payload)
	require.NoError(t, err)

	decoded, err := engine.DecodePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, payload, *decoded)
}

func TestDecodePayload_UpgradesV1(t *testing.T) {
	completed := time.Date(2026, 1, 10, 18, 30, 0, 0, time.UTC)
	raw := mustRaw(t, bson.M{
		"schemaVersion": 1,
		"identity":      bson.M{"name": "Back Squat", "type": "reps"},
		"prescription": bson.M{
			"sets": []bson.M{
				{"reps": 5, "load": 80.0, "loadUnit": "kg", "restSeconds": 180},
				{"reps": 5, "load": 80.0, "loadUnit": "kg", "restSeconds": 180},
			},
		},
		"performance": bson.M{
			"sets": []bson.M{
				{"reps": 5, "load": 80.0, "completedAt": completed},
				{},
			},
		},
		"overallRpe": 8,
		"note":       "heavy",
	})

	payload, err := engine.DecodePayload(raw)
	require.NoError(t, err)

	assert.Equal(t, domain.PayloadSchemaVersion, payload.SchemaVersion)
	assert.Equal(t, "Back Squat", payload.Identity.Name)
	assert.Equal(t, domain.ExerciseTypeReps, payload.Identity.Type)

	// Set-level rest collapses to the payload level.
	require.NotNil(t, payload.Prescription.RestSeconds)
	assert.Equal(t, 180, *payload.Prescription.RestSeconds)
	require.Len(t, payload.Prescription.Sets, 2)
	assert.Equal(t, 5, *payload.Prescription.Sets[0].Reps)
	assert.Equal(t, 80.0, *payload.Prescription.Sets[0].Load)
	assert.Equal(t, "kg", payload.Prescription.Sets[0].LoadUnit)

	// Recorded performance survives the upgrade untouched.
	require.Len(t, payload.Performance.Sets, 2)
	assert.Equal(t, 5, *payload.Performance.Sets[0].Reps)
	require.NotNil(t, payload.Performance.Sets[0].CompletedAt)
	assert.True(t, completed.Equal(*payload.Performance.Sets[0].CompletedAt))
	assert.False(t, payload.Performance.Sets[1].HasActual())

	require.NotNil(t, payload.OverallRPE)
	assert.Equal(t, 8, *payload.OverallRPE)
	require.NotNil(t, payload.Note)
	assert.Equal(t, "heavy", *payload.Note)

	// New fields start cleared.
	assert.False(t, payload.Flags.Pain)
	assert.False(t, payload.Flags.Modified)
	assert.Nil(t, payload.Flags.SkipReason)
}

func TestDecodePayload_V1RepairsLengthDrift(t *testing.T) {
	raw := mustRaw(t, bson.M{
		"schemaVersion": 1,
		"identity":      bson.M{"name": "Row", "type": "reps"},
		"prescription": bson.M{
			"sets": []bson.M{{"reps": 10}, {"reps": 10}, {"reps": 10}},
		},
		"performance": bson.M{
			"sets": []bson.M{{"reps": 10}},
		},
	})

	payload, err := engine.DecodePayload(raw)
	require.NoError(t, err)
	assert.Len(t, payload.Performance.Sets, 3)
	assert.Equal(t, 10, *payload.Performance.Sets[0].Reps)
	assert.False(t, payload.Performance.Sets[2].HasActual())
}

func TestDecodePayload_RejectsNewerVersion(t *testing.T) {
	raw := mustRaw(t, bson.M{
		"schemaVersion": 3,
		"identity":      bson.M{"name": "Future", "type": "reps"},
	})

	_, err := engine.DecodePayload(raw)
	require.Error(t, err)

	var unsupported *domain.UnsupportedSchemaVersionError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, 3, unsupported.Version)
}

func TestDecodePayload_MissingVersion(t *testing.T) {
	raw := mustRaw(t, bson.M{"identity": bson.M{"name": "Legacy"}})

	_, err := engine.DecodePayload(raw)
	require.Error(t, err)
}
