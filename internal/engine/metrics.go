package engine

import "pulsefit/workout-app/internal/domain"

// Metrics are the aggregates derived from a payload's performance sets. They
// are recomputed on every command application and denormalized onto the
// exercise row.
type Metrics struct {
	TotalReps   int
	Volume      float64
	DurationSec int
	ExerciseRPE *int
}

// DeriveMetrics aggregates reps, volume and duration from the performance
// sets, treating null values as zero. The exercise RPE is the explicit
// exercise-level value when set, otherwise the integer average of the
// non-null per-set RPEs, otherwise null. Never defaulted to zero.
func DeriveMetrics(p domain.Payload) Metrics {
	var m Metrics
	var rpeSum, rpeCount int

	for _, s := range p.Performance.Sets {
		if s.Reps != nil {
			m.TotalReps += *s.Reps
			if s.Load != nil {
				m.Volume += float64(*s.Reps) * *s.Load
			}
		}
		if s.DurationSec != nil {
			m.DurationSec += *s.DurationSec
		}
		if s.RPE != nil {
			rpeSum += *s.RPE
			rpeCount++
		}
	}

	switch {
	case p.OverallRPE != nil:
		rpe := *p.OverallRPE
		m.ExerciseRPE = &rpe
	case rpeCount > 0:
		avg := rpeSum / rpeCount
		m.ExerciseRPE = &avg
	}
	return m
}
