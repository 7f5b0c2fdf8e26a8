package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workout is one generated plan instance belonging to exactly one Session.
// Immutable once created except for ActualDurationMin, set at finalization.
type Workout struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"` // Denormalized

	Title    string `bson:"title" json:"title"`
	Category string `bson:"category,omitempty" json:"category,omitempty"`

	PlannedDurationMin int      `bson:"plannedDurationMin" json:"plannedDurationMin"`
	ActualDurationMin  *int     `bson:"actualDurationMin,omitempty" json:"actualDurationMin,omitempty"`
	Focus              []string `bson:"focus,omitempty" json:"focus,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
