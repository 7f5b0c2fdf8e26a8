package domain_test

import (
	"encoding/json"
	"testing"

	"pulsefit/workout-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand_TypedBodies(t *testing.T) {
	cmd, err := domain.DecodeCommand(domain.KindCompleteSet,
		json.RawMessage(`{"set_index":1,"reps":8,"load":62.5,"rpe":7}`))
	require.NoError(t, err)

	complete, ok := cmd.(domain.CompleteSet)
	require.True(t, ok)
	assert.Equal(t, 1, complete.SetIndex)
	assert.Equal(t, 8, *complete.Reps)
	assert.Equal(t, 62.5, *complete.Load)
	assert.Equal(t, 7, *complete.RPE)
	assert.Nil(t, complete.DurationSec)

	cmd, err = domain.DecodeCommand(domain.KindSkipExercise,
		json.RawMessage(`{"reason":"equipment taken"}`))
	require.NoError(t, err)
	skip, ok := cmd.(domain.SkipExercise)
	require.True(t, ok)
	assert.Equal(t, "equipment taken", skip.Reason)

	cmd, err = domain.DecodeCommand(domain.KindAdjustRestSeconds,
		json.RawMessage(`{"rest_seconds":150}`))
	require.NoError(t, err)
	rest, ok := cmd.(domain.AdjustRestSeconds)
	require.True(t, ok)
	assert.Equal(t, 150, rest.RestSeconds)
}

func TestDecodeCommand_FieldlessKindsAcceptEmptyBody(t *testing.T) {
	for _, kind := range []domain.CommandKind{
		domain.KindUnskipExercise,
		domain.KindCompleteExercise,
		domain.KindReopenExercise,
	} {
		cmd, err := domain.DecodeCommand(kind, nil)
		require.NoError(t, err, string(kind))
		assert.Equal(t, kind, cmd.Kind())
	}
}

func TestDecodeCommand_UnknownKind(t *testing.T) {
	_, err := domain.DecodeCommand("emote", json.RawMessage(`{}`))
	require.Error(t, err)

	var domErr *domain.Error
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, domain.ErrKindValidation, domErr.Kind)
}

func TestDecodeCommand_MalformedBody(t *testing.T) {
	_, err := domain.DecodeCommand(domain.KindCompleteSet, json.RawMessage(`{"set_index":"one"}`))
	require.Error(t, err)
}

func TestCommandValidate(t *testing.T) {
	assert.NoError(t, domain.CompleteSet{SetIndex: 0}.Validate(3))

	err := domain.CompleteSet{SetIndex: 3}.Validate(3)
	var badIndex *domain.InvalidSetIndexError
	require.ErrorAs(t, err, &badIndex)
	assert.Equal(t, 3, badIndex.Index)
	assert.Equal(t, 3, badIndex.SetCount)

	assert.Error(t, domain.SetExerciseRPE{RPE: 0}.Validate(1))
	assert.Error(t, domain.SetExerciseRPE{RPE: 11}.Validate(1))
	assert.NoError(t, domain.SetExerciseRPE{RPE: 10}.Validate(1))

	assert.Error(t, domain.AdjustRestSeconds{RestSeconds: -1}.Validate(1))

	negative := -5
	assert.Error(t, domain.UpdateSetActual{SetIndex: 0, Reps: &negative}.Validate(1))
}
