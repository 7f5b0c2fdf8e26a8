package engine

import "pulsefit/workout-app/internal/domain"

// DeriveStatus computes exercise status from performance completeness: no
// sets with recorded actuals means pending, all sets means completed,
// anything in between is in progress. Skipped never comes out of here: it
// is set explicitly and short-circuits this rule entirely.
func DeriveStatus(perf domain.Performance) domain.ExerciseStatus {
	total := len(perf.Sets)
	done := 0
	for _, s := range perf.Sets {
		if s.HasActual() {
			done++
		}
	}
	switch {
	case done == 0:
		return domain.ExerciseStatusPending
	case done == total:
		return domain.ExerciseStatusCompleted
	default:
		return domain.ExerciseStatusInProgress
	}
}
