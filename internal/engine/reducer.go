package engine

import (
	"fmt"
	"time"

	"pulsefit/workout-app/internal/domain"
)

// ReduceResult is what one command application produces: the next payload,
// the next status, and the metrics derived from the next payload.
type ReduceResult struct {
	Payload domain.Payload
	Status  domain.ExerciseStatus
	Metrics Metrics
}

// Reduce applies one command to a payload. Pure: the input payload is cloned,
// no I/O happens, and the same inputs always produce the same result (now is
// passed in rather than read from the clock for exactly that reason).
//
// Most commands re-derive status from performance afterwards; the four
// explicit-status commands (skip, unskip, complete, reopen) set it directly.
// Skip is absolute: once skipped, every command except unskip_exercise keeps
// the status skipped while still applying its payload transform.
func Reduce(payload domain.Payload, status domain.ExerciseStatus, cmd domain.Command, now time.Time) (*ReduceResult, error) {
	if len(payload.Performance.Sets) != len(payload.Prescription.Sets) {
		return nil, fmt.Errorf("corrupt payload: %d performance sets for %d prescription sets",
			len(payload.Performance.Sets), len(payload.Prescription.Sets))
	}
	if err := cmd.Validate(len(payload.Performance.Sets)); err != nil {
		return nil, err
	}

	next := payload.Clone()
	nextStatus := status
	explicit := false

	switch c := cmd.(type) {
	case domain.CompleteSet:
		set := &next.Performance.Sets[c.SetIndex]
		applyActuals(set, c.Reps, c.Load, c.DurationSec, c.DistanceM, c.RPE)
		stamped := now
		set.CompletedAt = &stamped

	case domain.UpdateSetActual:
		set := &next.Performance.Sets[c.SetIndex]
		hadActual := set.HasActual()
		applyActuals(set, c.Reps, c.Load, c.DurationSec, c.DistanceM, c.RPE)
		if !hadActual && set.HasActual() && set.CompletedAt == nil {
			stamped := now
			set.CompletedAt = &stamped
		}

	case domain.UpdateSetTarget:
		target := &next.Prescription.Sets[c.SetIndex]
		if c.Reps != nil {
			target.Reps = c.Reps
		}
		if c.Load != nil {
			target.Load = c.Load
		}
		if c.LoadUnit != nil {
			target.LoadUnit = *c.LoadUnit
		}
		if c.DurationSec != nil {
			target.DurationSec = c.DurationSec
		}
		if c.DistanceM != nil {
			target.DistanceM = c.DistanceM
		}
		next.Flags.Modified = true

	case domain.SetExerciseRPE:
		rpe := c.RPE
		next.OverallRPE = &rpe

	case domain.SetExerciseNote:
		note := c.Note
		next.Note = &note

	case domain.SkipExercise:
		reason := c.Reason
		next.Flags.SkipReason = &reason
		nextStatus = domain.ExerciseStatusSkipped
		explicit = true

	case domain.UnskipExercise:
		next.Flags.SkipReason = nil
		nextStatus = DeriveStatus(next.Performance)
		explicit = true

	case domain.CompleteExercise:
		// Stamp any set that has performance data but no timestamp yet.
		// Permitted with zero recorded performance: the exercise closes
		// out as completed and metrics stay at zero.
		for i := range next.Performance.Sets {
			set := &next.Performance.Sets[i]
			if set.HasActual() && set.CompletedAt == nil {
				stamped := now
				set.CompletedAt = &stamped
			}
		}
		nextStatus = domain.ExerciseStatusCompleted
		explicit = true

	case domain.ReopenExercise:
		nextStatus = DeriveStatus(next.Performance)
		explicit = true

	case domain.AdjustRestSeconds:
		rest := c.RestSeconds
		next.Prescription.RestSeconds = &rest
		next.Flags.Modified = true

	default:
		// The command set is closed; hitting this means a kind was added
		// without a reducer case.
		return nil, fmt.Errorf("no reducer transform for command kind %q", cmd.Kind())
	}

	if !explicit {
		nextStatus = DeriveStatus(next.Performance)
	}

	// Skip is sticky: only unskip_exercise can move the status off skipped.
	if status == domain.ExerciseStatusSkipped && cmd.Kind() != domain.KindUnskipExercise {
		nextStatus = domain.ExerciseStatusSkipped
	}

	next.SchemaVersion = domain.PayloadSchemaVersion
	return &ReduceResult{
		Payload: next,
		Status:  nextStatus,
		Metrics: DeriveMetrics(next),
	}, nil
}

func applyActuals(set *domain.SetResult, reps *int, load *float64, durationSec *int, distanceM *float64, rpe *int) {
	if reps != nil {
		set.Reps = reps
	}
	if load != nil {
		set.Load = load
	}
	if durationSec != nil {
		set.DurationSec = durationSec
	}
	if distanceM != nil {
		set.DistanceM = distanceM
	}
	if rpe != nil {
		set.RPE = rpe
	}
}
