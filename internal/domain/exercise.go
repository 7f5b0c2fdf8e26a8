package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExerciseStatus tracks one exercise through the session.
type ExerciseStatus string

const (
	ExerciseStatusPending    ExerciseStatus = "pending"
	ExerciseStatusInProgress ExerciseStatus = "in_progress"
	ExerciseStatusCompleted  ExerciseStatus = "completed"
	ExerciseStatusSkipped    ExerciseStatus = "skipped"
)

// Exercise is one item within a Workout, addressed by (workout id, order).
// The payload document is the source of truth; Name and the metric columns
// are denormalized from it on every write for cheap querying.
//
// Payload is kept raw on read so the schema migration layer can inspect its
// stored schemaVersion before decoding into the current shape.
type Exercise struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	WorkoutID primitive.ObjectID `bson:"workoutId" json:"workoutId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"` // Denormalized for ownership checks
	Order     int                `bson:"order" json:"order"`

	Status ExerciseStatus `bson:"status" json:"status"`

	// PayloadVersion is the optimistic-concurrency token. Starts at 1 on
	// creation; incremented by exactly 1 on every successful command
	// application.
	PayloadVersion int      `bson:"payloadVersion" json:"payloadVersion"`
	Payload        bson.Raw `bson:"payload" json:"-"`

	// Denormalized from the payload.
	Name        string     `bson:"name" json:"name"`
	ExerciseRPE *int       `bson:"exerciseRpe,omitempty" json:"exerciseRpe,omitempty"`
	TotalReps   int        `bson:"totalReps" json:"totalReps"`
	Volume      float64    `bson:"volume" json:"volume"`
	DurationSec int        `bson:"durationSec" json:"durationSec"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DerivedFields are the denormalized metric columns written back to the
// exercise row together with the payload on every command application.
type DerivedFields struct {
	ExerciseRPE *int
	TotalReps   int
	Volume      float64
	DurationSec int
	CompletedAt *time.Time
}
