package domain

import (
	"time"
)

// PayloadSchemaVersion is the schema version this build reads and writes.
// Stored payloads below it are migrated forward on read; payloads above it
// are rejected with an UnsupportedSchemaVersionError.
const PayloadSchemaVersion = 2

// ExerciseType tags how an exercise is prescribed and tracked.
type ExerciseType string

const (
	ExerciseTypeReps      ExerciseType = "reps"
	ExerciseTypeHold      ExerciseType = "hold"
	ExerciseTypeDuration  ExerciseType = "duration"
	ExerciseTypeIntervals ExerciseType = "intervals"
)

// ValidExerciseType reports whether t is one of the known type tags.
func ValidExerciseType(t ExerciseType) bool {
	switch t {
	case ExerciseTypeReps, ExerciseTypeHold, ExerciseTypeDuration, ExerciseTypeIntervals:
		return true
	}
	return false
}

// Payload is the versioned document holding everything tracked for one
// exercise: what was prescribed, what was actually performed, and flags.
// It is the single source of truth for the exercise; the denormalized
// columns on the Exercise row are derived from it.
type Payload struct {
	SchemaVersion int              `bson:"schemaVersion" json:"schemaVersion"`
	Identity      ExerciseIdentity `bson:"identity" json:"identity"`
	Prescription  Prescription     `bson:"prescription" json:"prescription"`
	Performance   Performance      `bson:"performance" json:"performance"`
	Flags         PayloadFlags     `bson:"flags" json:"flags"`
	OverallRPE    *int             `bson:"overallRpe,omitempty" json:"overallRpe,omitempty"`
	Note          *string          `bson:"note,omitempty" json:"note,omitempty"`
}

// ExerciseIdentity names the exercise and how it is tracked.
type ExerciseIdentity struct {
	Name string       `bson:"name" json:"name"`
	Type ExerciseType `bson:"type" json:"type"`
}

// Prescription holds the ordered target sets plus the rest time between them.
type Prescription struct {
	Sets        []TargetSet `bson:"sets" json:"sets"`
	RestSeconds *int        `bson:"restSeconds,omitempty" json:"restSeconds,omitempty"`
}

// TargetSet is one prescribed set. All targets are nullable; which ones are
// populated depends on the exercise type.
type TargetSet struct {
	Reps        *int     `bson:"reps,omitempty" json:"reps,omitempty"`
	Load        *float64 `bson:"load,omitempty" json:"load,omitempty"`
	LoadUnit    string   `bson:"loadUnit,omitempty" json:"loadUnit,omitempty"`
	DurationSec *int     `bson:"durationSec,omitempty" json:"durationSec,omitempty"`
	DistanceM   *float64 `bson:"distanceM,omitempty" json:"distanceM,omitempty"`
}

// Performance holds the ordered set results, always index-aligned with
// Prescription.Sets (same length, maintained by construction and by the
// reducer, never by the caller).
type Performance struct {
	Sets []SetResult `bson:"sets" json:"sets"`
}

// SetResult is what actually happened in one set. CompletedAt is stamped the
// first time any actual value is recorded for the set.
type SetResult struct {
	Reps        *int       `bson:"reps,omitempty" json:"reps,omitempty"`
	Load        *float64   `bson:"load,omitempty" json:"load,omitempty"`
	DurationSec *int       `bson:"durationSec,omitempty" json:"durationSec,omitempty"`
	DistanceM   *float64   `bson:"distanceM,omitempty" json:"distanceM,omitempty"`
	RPE         *int       `bson:"rpe,omitempty" json:"rpe,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// HasActual reports whether any actual value has been recorded for the set.
func (s SetResult) HasActual() bool {
	return s.Reps != nil || s.Load != nil || s.DurationSec != nil || s.DistanceM != nil
}

// PayloadFlags carries exercise-level markers outside the set data.
type PayloadFlags struct {
	Pain       bool    `bson:"pain" json:"pain"`
	Modified   bool    `bson:"modified" json:"modified"`
	SkipReason *string `bson:"skipReason,omitempty" json:"skipReason,omitempty"`
}

// Clone returns a deep copy of the payload so the reducer can transform it
// without mutating the caller's value.
func (p Payload) Clone() Payload {
	out := p
	out.Prescription.Sets = make([]TargetSet, len(p.Prescription.Sets))
	for i, s := range p.Prescription.Sets {
		out.Prescription.Sets[i] = TargetSet{
			Reps:        cloneInt(s.Reps),
			Load:        cloneFloat(s.Load),
			LoadUnit:    s.LoadUnit,
			DurationSec: cloneInt(s.DurationSec),
			DistanceM:   cloneFloat(s.DistanceM),
		}
	}
	out.Prescription.RestSeconds = cloneInt(p.Prescription.RestSeconds)
	out.Performance.Sets = make([]SetResult, len(p.Performance.Sets))
	for i, s := range p.Performance.Sets {
		out.Performance.Sets[i] = SetResult{
			Reps:        cloneInt(s.Reps),
			Load:        cloneFloat(s.Load),
			DurationSec: cloneInt(s.DurationSec),
			DistanceM:   cloneFloat(s.DistanceM),
			RPE:         cloneInt(s.RPE),
			CompletedAt: cloneTime(s.CompletedAt),
		}
	}
	out.Flags.SkipReason = cloneString(p.Flags.SkipReason)
	out.OverallRPE = cloneInt(p.OverallRPE)
	out.Note = cloneString(p.Note)
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
