// Package engine holds the pure core of the tracker: payload construction,
// schema migration, the command reducer, and status/metric derivation.
// Nothing in this package touches the store or the network.
package engine

import (
	"math"
	"strings"

	"pulsefit/workout-app/internal/domain"
	"pulsefit/workout-app/internal/generator"
)

const defaultExerciseName = "Unnamed Exercise"

// BuildPayload constructs the initial payload for one generator proposal.
// The proposal is untrusted external input: absent fields are defaulted,
// negative values are dropped, unknown type tags fall back to reps.
// Performance sets are initialized in lock-step with the prescription,
// all nulled out.
func BuildPayload(p generator.ExerciseProposal) domain.Payload {
	exType := domain.ExerciseType(strings.ToLower(strings.TrimSpace(p.Type)))
	if !domain.ValidExerciseType(exType) {
		exType = domain.ExerciseTypeReps
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = defaultExerciseName
	}

	count := setCount(p, exType)
	targets := make([]domain.TargetSet, count)
	for i := range targets {
		targets[i] = buildTargetSet(p, exType, i)
	}

	payload := domain.Payload{
		SchemaVersion: domain.PayloadSchemaVersion,
		Identity: domain.ExerciseIdentity{
			Name: name,
			Type: exType,
		},
		Prescription: domain.Prescription{
			Sets:        targets,
			RestSeconds: positiveInt(p.RestSeconds),
		},
		Performance: domain.Performance{
			Sets: make([]domain.SetResult, count),
		},
	}
	return payload
}

// setCount resolves how many sets the prescription gets: explicit sets win,
// then the longest present target array, then rounds for intervals, then 1.
func setCount(p generator.ExerciseProposal, exType domain.ExerciseType) int {
	if p.Sets != nil && *p.Sets > 0 {
		return *p.Sets
	}
	longest := len(p.Reps)
	if len(p.Loads) > longest {
		longest = len(p.Loads)
	}
	if len(p.HoldSeconds) > longest {
		longest = len(p.HoldSeconds)
	}
	if longest > 0 {
		return longest
	}
	if exType == domain.ExerciseTypeIntervals && p.Rounds != nil && *p.Rounds > 0 {
		return *p.Rounds
	}
	// Duration exercises get exactly one set; everything else defaults to 1
	// as well when the proposal carries no usable count.
	return 1
}

func buildTargetSet(p generator.ExerciseProposal, exType domain.ExerciseType, i int) domain.TargetSet {
	switch exType {
	case domain.ExerciseTypeReps:
		return domain.TargetSet{
			Reps:     atOrLastInt(p.Reps, i),
			Load:     atOrLastFloat(p.Loads, i),
			LoadUnit: strings.TrimSpace(p.LoadUnit),
		}
	case domain.ExerciseTypeHold:
		return domain.TargetSet{
			DurationSec: atOrLastInt(p.HoldSeconds, i),
		}
	case domain.ExerciseTypeDuration:
		return domain.TargetSet{
			DurationSec: minutesToSeconds(p.DurationMinutes),
			DistanceM:   positiveFloat(p.DistanceM),
		}
	case domain.ExerciseTypeIntervals:
		return domain.TargetSet{
			DurationSec: positiveInt(p.WorkSeconds),
		}
	}
	return domain.TargetSet{}
}

// atOrLastInt picks values[i], falling back to the last element when the
// proposal's array is shorter than the set count. Negative values are
// treated as absent.
func atOrLastInt(values []int, i int) *int {
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	if i < len(values) {
		v = values[i]
	}
	if v < 0 {
		return nil
	}
	return &v
}

func atOrLastFloat(values []float64, i int) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	if i < len(values) {
		v = values[i]
	}
	if v < 0 {
		return nil
	}
	return &v
}

func minutesToSeconds(minutes *float64) *int {
	if minutes == nil || *minutes <= 0 {
		return nil
	}
	sec := int(math.Round(*minutes * 60))
	return &sec
}

func positiveInt(v *int) *int {
	if v == nil || *v < 0 {
		return nil
	}
	c := *v
	return &c
}

func positiveFloat(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	c := *v
	return &c
}
