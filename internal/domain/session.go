package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionStatus type for session lifecycle.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusStopped    SessionStatus = "stopped"
	SessionStatusCanceled   SessionStatus = "canceled" // Read from legacy rows; no write path creates it
)

// Terminal reports whether the session can no longer accept commands or be
// finalized again.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusStopped || s == SessionStatusCanceled
}

// Session is one workout attempt by one user.
type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Status    SessionStatus      `bson:"status" json:"status"`
	CoachMode string             `bson:"coachMode,omitempty" json:"coachMode,omitempty"`

	StartedAt   time.Time  `bson:"startedAt" json:"startedAt"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`

	// Optional links to an external plan / calendar entry, kept opaque.
	Metadata map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`

	// Set at finalization.
	SessionRPE *int            `bson:"sessionRpe,omitempty" json:"sessionRpe,omitempty"`
	Notes      string          `bson:"notes,omitempty" json:"notes,omitempty"`
	StopReason string          `bson:"stopReason,omitempty" json:"stopReason,omitempty"`
	Summary    *SessionSummary `bson:"summary,omitempty" json:"summary,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SessionSummary is computed purely from the exercise rows at finalization.
type SessionSummary struct {
	ExercisesCompleted int      `bson:"exercisesCompleted" json:"exercisesCompleted"`
	ExercisesSkipped   int      `bson:"exercisesSkipped" json:"exercisesSkipped"`
	ExercisesTotal     int      `bson:"exercisesTotal" json:"exercisesTotal"`
	TotalSetsCompleted int      `bson:"totalSetsCompleted" json:"totalSetsCompleted"`
	Wins               []string `bson:"wins" json:"wins"`
	NextSessionFocus   string   `bson:"nextSessionFocus,omitempty" json:"nextSessionFocus,omitempty"`
}

// Reflection is the optional user input captured at finalization.
type Reflection struct {
	RPE      *int   `json:"rpe,omitempty"`
	PainNote string `json:"painNote,omitempty"`
	Text     string `json:"text,omitempty"`
}
