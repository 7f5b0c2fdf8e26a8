package service

import (
	"context"
	"errors"
	"time"

	"pulsefit/workout-app/internal/domain"
	"pulsefit/workout-app/internal/engine"
	"pulsefit/workout-app/internal/repository"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApplyCommandInput is one client-submitted command against one exercise.
type ApplyCommandInput struct {
	CommandID       string
	ExerciseID      primitive.ObjectID
	UserID          primitive.ObjectID
	ExpectedVersion int
	Command         domain.Command
	ClientMeta      domain.ClientMetadata
}

// CommandResult is the outcome of a command application (or of replaying a
// previously applied one).
type CommandResult struct {
	ExerciseID     primitive.ObjectID
	PayloadVersion int
	Status         domain.ExerciseStatus
	Payload        domain.Payload
	Replayed       bool
}

// CommandService gates every exercise mutation through the idempotency
// ledger and the optimistic concurrency check before handing the payload to
// the reducer.
type CommandService interface {
	Apply(ctx context.Context, in ApplyCommandInput) (*CommandResult, error)
}

type commandService struct {
	exerciseRepo  repository.ExerciseRepository
	actionLogRepo repository.ActionLogRepository
	sessionRepo   repository.SessionRepository
	now           func() time.Time
}

// NewCommandService creates a new instance of commandService.
func NewCommandService(
	exerciseRepo repository.ExerciseRepository,
	actionLogRepo repository.ActionLogRepository,
	sessionRepo repository.SessionRepository,
) CommandService {
	return &commandService{
		exerciseRepo:  exerciseRepo,
		actionLogRepo: actionLogRepo,
		sessionRepo:   sessionRepo,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Apply processes one command end to end:
//
//	ledger lookup -> read row -> version check -> reduce -> CAS write -> ledger insert
//
// A replayed command identifier is answered from the ledger without touching
// the exercise row, which is what makes client retries safe. A stale
// expected version fails with a VersionConflictError carrying the current
// version; the caller must re-fetch and resubmit with a fresh command
// identifier.
func (s *commandService) Apply(ctx context.Context, in ApplyCommandInput) (*CommandResult, error) {
	if in.CommandID == "" {
		return nil, domain.NewValidationError("command_id is required")
	}
	if in.ExpectedVersion < 1 {
		return nil, domain.NewValidationError("expected_version must be at least 1, got %d", in.ExpectedVersion)
	}
	if in.Command == nil {
		return nil, domain.NewValidationError("command body is required")
	}

	// Idempotency ledger first: a known command identifier short-circuits
	// everything else.
	entry, err := s.actionLogRepo.GetByCommandID(ctx, in.CommandID)
	if err == nil {
		return s.replay(in, entry)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	exercise, err := s.exerciseRepo.GetByID(ctx, in.ExerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("exercise")
		}
		return nil, err
	}
	if exercise.UserID != in.UserID {
		return nil, domain.NewForbiddenError("exercise")
	}

	session, err := s.sessionRepo.GetByID(ctx, exercise.SessionID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// Orphaned row (its session is mid-rollback); nothing terminal to
		// guard against, let the exercise checks decide.
	case err != nil:
		return nil, err
	case session.Status.Terminal():
		return nil, &domain.Error{
			Kind:    domain.ErrKindAlreadyFinalized,
			Message: "session is already finalized; exercises can no longer be changed",
		}
	}

	if exercise.PayloadVersion != in.ExpectedVersion {
		return nil, &domain.VersionConflictError{
			ExpectedVersion: in.ExpectedVersion,
			CurrentVersion:  exercise.PayloadVersion,
		}
	}

	// Migrate-then-reduce: older payload shapes are upgraded before any
	// validation or transform sees them.
	payload, err := engine.DecodePayload(exercise.Payload)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result, err := engine.Reduce(*payload, exercise.Status, in.Command, now)
	if err != nil {
		return nil, err
	}

	derived := domain.DerivedFields{
		ExerciseRPE: result.Metrics.ExerciseRPE,
		TotalReps:   result.Metrics.TotalReps,
		Volume:      result.Metrics.Volume,
		DurationSec: result.Metrics.DurationSec,
		CompletedAt: exerciseCompletedAt(exercise, result.Status, now),
	}

	updated, err := s.exerciseRepo.UpdateVersioned(ctx, in.ExerciseID, in.ExpectedVersion, result.Payload, result.Status, derived)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// Lost the race; re-read so the conflict reports the version
			// that actually won.
			current, readErr := s.exerciseRepo.GetByID(ctx, in.ExerciseID)
			if readErr != nil {
				return nil, readErr
			}
			return nil, &domain.VersionConflictError{
				ExpectedVersion: in.ExpectedVersion,
				CurrentVersion:  current.PayloadVersion,
			}
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("exercise")
		}
		return nil, err
	}

	body, err := domain.EncodeCommandBody(in.Command)
	if err != nil {
		return nil, err
	}
	entry = &domain.ActionLogEntry{
		CommandID:     in.CommandID,
		ExerciseID:    in.ExerciseID,
		UserID:        in.UserID,
		CommandKind:   in.Command.Kind(),
		CommandBody:   body,
		ResultVersion: updated.PayloadVersion,
		ResultStatus:  updated.Status,
		ResultPayload: result.Payload,
		ClientMeta:    in.ClientMeta,
	}
	if _, err := s.actionLogRepo.Insert(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			// Two identical identifiers raced; first writer wins and this
			// request answers from the winning entry.
			existing, getErr := s.actionLogRepo.GetByCommandID(ctx, in.CommandID)
			if getErr != nil {
				return nil, getErr
			}
			return s.replay(in, existing)
		}
		// The row update already happened, so the command is applied; a
		// ledger write failure here is logged loudly rather than undone.
		log.WithError(err).WithField("commandId", in.CommandID).
			Error("command applied but action log insert failed")
		return nil, err
	}

	return &CommandResult{
		ExerciseID:     updated.ID,
		PayloadVersion: updated.PayloadVersion,
		Status:         updated.Status,
		Payload:        result.Payload,
	}, nil
}

// replay answers a duplicate submission from the recorded ledger entry
// without re-applying anything.
func (s *commandService) replay(in ApplyCommandInput, entry *domain.ActionLogEntry) (*CommandResult, error) {
	if entry.UserID != in.UserID {
		return nil, domain.NewForbiddenError("command")
	}
	if entry.ExerciseID != in.ExerciseID {
		return nil, domain.NewValidationError("command_id %q was issued against a different exercise", in.CommandID)
	}
	return &CommandResult{
		ExerciseID:     entry.ExerciseID,
		PayloadVersion: entry.ResultVersion,
		Status:         entry.ResultStatus,
		Payload:        entry.ResultPayload,
		Replayed:       true,
	}, nil
}

// exerciseCompletedAt keeps the denormalized completion timestamp in step
// with the status: stamped when the exercise lands in completed, preserved
// while it stays there, cleared when it leaves.
func exerciseCompletedAt(prev *domain.Exercise, next domain.ExerciseStatus, now time.Time) *time.Time {
	if next != domain.ExerciseStatusCompleted {
		return nil
	}
	if prev.Status == domain.ExerciseStatusCompleted && prev.CompletedAt != nil {
		return prev.CompletedAt
	}
	return &now
}
