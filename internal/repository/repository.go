package repository

import (
	"context"

	"pulsefit/workout-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer. Services map these onto the
// user-facing error taxonomy.
var (
	ErrNotFound        = RepositoryError("not found")
	ErrAlreadyExists   = RepositoryError("already exists")
	ErrVersionConflict = RepositoryError("version conflict")
	ErrUpdateFailed    = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// SessionRepository defines the interface for interacting with session data.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error)
	// Finalize writes the terminal status, completion time, summary and
	// reflection in one update, only if the session is still in progress.
	// Returns ErrUpdateFailed if the session was already terminal.
	Finalize(ctx context.Context, id primitive.ObjectID, update domain.Session) error
	// Delete removes a session row; used only to roll back a partially
	// created session.
	Delete(ctx context.Context, id primitive.ObjectID) error
	// ListFinished returns completed/stopped sessions for the user, newest
	// first, starting strictly after the cursor when one is given.
	ListFinished(ctx context.Context, userID primitive.ObjectID, cursor *primitive.ObjectID, limit int) ([]domain.Session, error)
}

// WorkoutRepository defines the interface for interacting with workout data.
type WorkoutRepository interface {
	Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error)
	GetBySessionID(ctx context.Context, sessionID primitive.ObjectID) (*domain.Workout, error)
	SetActualDuration(ctx context.Context, id primitive.ObjectID, minutes int) error
	DeleteBySessionID(ctx context.Context, sessionID primitive.ObjectID) error
}

// ExerciseRepository defines the store contract the concurrency controller
// relies on: primary-key reads and a single-row compare-and-swap update.
type ExerciseRepository interface {
	// InsertMany bulk-creates exercise rows at session creation.
	InsertMany(ctx context.Context, exercises []domain.Exercise) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	GetByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) ([]domain.Exercise, error)
	GetBySessionID(ctx context.Context, sessionID primitive.ObjectID) ([]domain.Exercise, error)
	// UpdateVersioned writes payload, status and derived fields only if the
	// stored payloadVersion still equals expectedVersion, bumping it by one
	// atomically. Returns ErrVersionConflict when the row moved on.
	UpdateVersioned(ctx context.Context, id primitive.ObjectID, expectedVersion int, payload domain.Payload, status domain.ExerciseStatus, derived domain.DerivedFields) (*domain.Exercise, error)
	DeleteBySessionID(ctx context.Context, sessionID primitive.ObjectID) error
}

// ActionLogRepository is the idempotency ledger: append-only, uniquely keyed
// by the client-supplied command identifier.
type ActionLogRepository interface {
	// Insert appends one entry. Returns ErrAlreadyExists when an entry with
	// the same command identifier is already present (first writer wins).
	Insert(ctx context.Context, entry *domain.ActionLogEntry) (primitive.ObjectID, error)
	GetByCommandID(ctx context.Context, commandID string) (*domain.ActionLogEntry, error)
}
