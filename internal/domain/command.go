package domain

import (
	"encoding/json"
)

// CommandKind discriminates the closed set of mutations a client may submit
// against one exercise.
type CommandKind string

const (
	KindCompleteSet       CommandKind = "complete_set"
	KindUpdateSetActual   CommandKind = "update_set_actual"
	KindUpdateSetTarget   CommandKind = "update_set_target"
	KindSetExerciseRPE    CommandKind = "set_exercise_rpe"
	KindSetExerciseNote   CommandKind = "set_exercise_note"
	KindSkipExercise      CommandKind = "skip_exercise"
	KindUnskipExercise    CommandKind = "unskip_exercise"
	KindCompleteExercise  CommandKind = "complete_exercise"
	KindReopenExercise    CommandKind = "reopen_exercise"
	KindAdjustRestSeconds CommandKind = "adjust_rest_seconds"
)

// Command is one typed mutation intent. The reducer switches exhaustively
// over the concrete types, so adding a kind forces a code change there.
type Command interface {
	Kind() CommandKind
	// Validate checks field constraints against the exercise's set count.
	// It runs before any store write.
	Validate(setCount int) error
}

// CompleteSet records the actual values for one set and stamps its
// completion time unconditionally.
type CompleteSet struct {
	SetIndex    int      `bson:"setIndex" json:"set_index"`
	Reps        *int     `bson:"reps,omitempty" json:"reps,omitempty"`
	Load        *float64 `bson:"load,omitempty" json:"load,omitempty"`
	DurationSec *int     `bson:"durationSec,omitempty" json:"duration_sec,omitempty"`
	DistanceM   *float64 `bson:"distanceM,omitempty" json:"distance_m,omitempty"`
	RPE         *int     `bson:"rpe,omitempty" json:"rpe,omitempty"`
}

func (c CompleteSet) Kind() CommandKind { return KindCompleteSet }

func (c CompleteSet) Validate(setCount int) error {
	if err := validateSetIndex(c.SetIndex, setCount); err != nil {
		return err
	}
	return validateActuals(c.Reps, c.Load, c.DurationSec, c.DistanceM, c.RPE)
}

// UpdateSetActual edits the actual values for one set. The completion time is
// stamped only the first time any actual field becomes non-null.
type UpdateSetActual struct {
	SetIndex    int      `bson:"setIndex" json:"set_index"`
	Reps        *int     `bson:"reps,omitempty" json:"reps,omitempty"`
	Load        *float64 `bson:"load,omitempty" json:"load,omitempty"`
	DurationSec *int     `bson:"durationSec,omitempty" json:"duration_sec,omitempty"`
	DistanceM   *float64 `bson:"distanceM,omitempty" json:"distance_m,omitempty"`
	RPE         *int     `bson:"rpe,omitempty" json:"rpe,omitempty"`
}

func (c UpdateSetActual) Kind() CommandKind { return KindUpdateSetActual }

func (c UpdateSetActual) Validate(setCount int) error {
	if err := validateSetIndex(c.SetIndex, setCount); err != nil {
		return err
	}
	return validateActuals(c.Reps, c.Load, c.DurationSec, c.DistanceM, c.RPE)
}

// UpdateSetTarget edits one prescription set. Any target edit marks the
// payload as modified.
type UpdateSetTarget struct {
	SetIndex    int      `bson:"setIndex" json:"set_index"`
	Reps        *int     `bson:"reps,omitempty" json:"reps,omitempty"`
	Load        *float64 `bson:"load,omitempty" json:"load,omitempty"`
	LoadUnit    *string  `bson:"loadUnit,omitempty" json:"load_unit,omitempty"`
	DurationSec *int     `bson:"durationSec,omitempty" json:"duration_sec,omitempty"`
	DistanceM   *float64 `bson:"distanceM,omitempty" json:"distance_m,omitempty"`
}

func (c UpdateSetTarget) Kind() CommandKind { return KindUpdateSetTarget }

func (c UpdateSetTarget) Validate(setCount int) error {
	if err := validateSetIndex(c.SetIndex, setCount); err != nil {
		return err
	}
	return validateActuals(c.Reps, c.Load, c.DurationSec, c.DistanceM, nil)
}

// SetExerciseRPE sets the exercise-level overall RPE.
type SetExerciseRPE struct {
	RPE int `bson:"rpe" json:"rpe"`
}

func (c SetExerciseRPE) Kind() CommandKind { return KindSetExerciseRPE }

func (c SetExerciseRPE) Validate(int) error {
	if c.RPE < 1 || c.RPE > 10 {
		return NewValidationError("rpe must be between 1 and 10, got %d", c.RPE)
	}
	return nil
}

// SetExerciseNote sets the exercise-level free-text note.
type SetExerciseNote struct {
	Note string `bson:"note" json:"note"`
}

func (c SetExerciseNote) Kind() CommandKind { return KindSetExerciseNote }

func (c SetExerciseNote) Validate(int) error {
	if len(c.Note) > 2000 {
		return NewValidationError("note is too long (max 2000 characters)")
	}
	return nil
}

// SkipExercise records a reason and forces the exercise into skipped.
type SkipExercise struct {
	Reason string `bson:"reason" json:"reason"`
}

func (c SkipExercise) Kind() CommandKind { return KindSkipExercise }

func (c SkipExercise) Validate(int) error {
	if len(c.Reason) > 500 {
		return NewValidationError("skip reason is too long (max 500 characters)")
	}
	return nil
}

// UnskipExercise clears the skip reason and re-derives status from the
// recorded performance.
type UnskipExercise struct{}

func (c UnskipExercise) Kind() CommandKind { return KindUnskipExercise }

func (c UnskipExercise) Validate(int) error { return nil }

// CompleteExercise forces the exercise into completed, stamping any set that
// has performance data but no completion time yet.
type CompleteExercise struct{}

func (c CompleteExercise) Kind() CommandKind { return KindCompleteExercise }

func (c CompleteExercise) Validate(int) error { return nil }

// ReopenExercise drops the explicit completed status and re-derives from the
// recorded performance.
type ReopenExercise struct{}

func (c ReopenExercise) Kind() CommandKind { return KindReopenExercise }

func (c ReopenExercise) Validate(int) error { return nil }

// AdjustRestSeconds edits the prescription rest time.
type AdjustRestSeconds struct {
	RestSeconds int `bson:"restSeconds" json:"rest_seconds"`
}

func (c AdjustRestSeconds) Kind() CommandKind { return KindAdjustRestSeconds }

func (c AdjustRestSeconds) Validate(int) error {
	if c.RestSeconds < 0 {
		return NewValidationError("rest_seconds must not be negative, got %d", c.RestSeconds)
	}
	return nil
}

// DecodeCommand turns a wire command (type tag + raw JSON body) into its
// typed form. Unknown kinds are a validation error, not a panic: the wire is
// untrusted even though the type set is closed.
func DecodeCommand(kind CommandKind, body json.RawMessage) (Command, error) {
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	var (
		cmd Command
		err error
	)
	switch kind {
	case KindCompleteSet:
		var c CompleteSet
		err = json.Unmarshal(body, &c)
		cmd = c
	case KindUpdateSetActual:
		var c UpdateSetActual
		err = json.Unmarshal(body, &c)
		cmd = c
	case KindUpdateSetTarget:
		var c UpdateSetTarget
		err = json.Unmarshal(body, &c)
		cmd = c
	case KindSetExerciseRPE:
		var c SetExerciseRPE
		err = json.Unmarshal(body, &c)
		cmd = c
	case KindSetExerciseNote:
		var c SetExerciseNote
		err = json.Unmarshal(body, &c)
		cmd = c
	case KindSkipExercise:
		var c SkipExercise
		err = json.Unmarshal(body, &c)
		cmd = c
	case KindUnskipExercise:
		cmd = UnskipExercise{}
	case KindCompleteExercise:
		cmd = CompleteExercise{}
	case KindReopenExercise:
		cmd = ReopenExercise{}
	case KindAdjustRestSeconds:
		var c AdjustRestSeconds
		err = json.Unmarshal(body, &c)
		cmd = c
	default:
		return nil, NewValidationError("unknown command type %q", string(kind))
	}
	if err != nil {
		return nil, NewValidationError("malformed %s body: %v", string(kind), err)
	}
	return cmd, nil
}

func validateSetIndex(index, setCount int) error {
	if index < 0 || index >= setCount {
		return &InvalidSetIndexError{Index: index, SetCount: setCount}
	}
	return nil
}

func validateActuals(reps *int, load *float64, durationSec *int, distanceM *float64, rpe *int) error {
	if reps != nil && *reps < 0 {
		return NewValidationError("reps must not be negative, got %d", *reps)
	}
	if load != nil && *load < 0 {
		return NewValidationError("load must not be negative, got %v", *load)
	}
	if durationSec != nil && *durationSec < 0 {
		return NewValidationError("duration_sec must not be negative, got %d", *durationSec)
	}
	if distanceM != nil && *distanceM < 0 {
		return NewValidationError("distance_m must not be negative, got %v", *distanceM)
	}
	if rpe != nil && (*rpe < 1 || *rpe > 10) {
		return NewValidationError("rpe must be between 1 and 10, got %d", *rpe)
	}
	return nil
}
