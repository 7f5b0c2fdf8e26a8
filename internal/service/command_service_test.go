package service_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"pulsefit/workout-app/internal/domain"
	"pulsefit/workout-app/internal/engine"
	"pulsefit/workout-app/internal/repository"
	"pulsefit/workout-app/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- in-memory fakes ---

type fakeExerciseRepo struct {
	exercises     map[primitive.ObjectID]*domain.Exercise
	updateCalls   int
	forceConflict bool
}

func newFakeExerciseRepo() *fakeExerciseRepo {
	return &fakeExerciseRepo{exercises: map[primitive.ObjectID]*domain.Exercise{}}
}

func (f *fakeExerciseRepo) InsertMany(_ context.Context, exercises []domain.Exercise) error {
	for i := range exercises {
		if exercises[i].ID.IsZero() {
			exercises[i].ID = primitive.NewObjectID()
		}
		copied := exercises[i]
		f.exercises[copied.ID] = &copied
	}
	return nil
}

func (f *fakeExerciseRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	ex, ok := f.exercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *ex
	return &copied, nil
}

func (f *fakeExerciseRepo) GetByWorkoutID(_ context.Context, workoutID primitive.ObjectID) ([]domain.Exercise, error) {
	var out []domain.Exercise
	for _, ex := range f.exercises {
		if ex.WorkoutID == workoutID {
			out = append(out, *ex)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeExerciseRepo) GetBySessionID(_ context.Context, sessionID primitive.ObjectID) ([]domain.Exercise, error) {
	var out []domain.Exercise
	for _, ex := range f.exercises {
		if ex.SessionID == sessionID {
			out = append(out, *ex)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeExerciseRepo) UpdateVersioned(_ context.Context, id primitive.ObjectID, expectedVersion int, payload domain.Payload, status domain.ExerciseStatus, derived domain.DerivedFields) (*domain.Exercise, error) {
	f.updateCalls++
	ex, ok := f.exercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if f.forceConflict || ex.PayloadVersion != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	raw, err := engine.EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	ex.Payload = raw
	ex.Status = status
	ex.PayloadVersion++
	ex.ExerciseRPE = derived.ExerciseRPE
	ex.TotalReps = derived.TotalReps
	ex.Volume = derived.Volume
	ex.DurationSec = derived.DurationSec
	ex.CompletedAt = derived.CompletedAt
	copied := *ex
	return &copied, nil
}

func (f *fakeExerciseRepo) DeleteBySessionID(_ context.Context, sessionID primitive.ObjectID) error {
	for id, ex := range f.exercises {
		if ex.SessionID == sessionID {
			delete(f.exercises, id)
		}
	}
	return nil
}

type fakeActionLogRepo struct {
	entries map[string]*domain.ActionLogEntry
	// When set, the next Insert reports a duplicate and this entry becomes
	// visible, simulating losing an insert race.
	duplicateOnInsert *domain.ActionLogEntry
}

func newFakeActionLogRepo() *fakeActionLogRepo {
	return &fakeActionLogRepo{entries: map[string]*domain.ActionLogEntry{}}
}

func (f *fakeActionLogRepo) Insert(_ context.Context, entry *domain.ActionLogEntry) (primitive.ObjectID, error) {
	if f.duplicateOnInsert != nil {
		f.entries[f.duplicateOnInsert.CommandID] = f.duplicateOnInsert
		f.duplicateOnInsert = nil
		return primitive.NilObjectID, repository.ErrAlreadyExists
	}
	if _, ok := f.entries[entry.CommandID]; ok {
		return primitive.NilObjectID, repository.ErrAlreadyExists
	}
	entry.ID = primitive.NewObjectID()
	f.entries[entry.CommandID] = entry
	return entry.ID, nil
}

func (f *fakeActionLogRepo) GetByCommandID(_ context.Context, commandID string) (*domain.ActionLogEntry, error) {
	entry, ok := f.entries[commandID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

type fakeSessionRepo struct {
	sessions  map[primitive.ObjectID]*domain.Session
	deleted   []primitive.ObjectID
	createErr error
	getErr    error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[primitive.ObjectID]*domain.Session{}}
}

func (f *fakeSessionRepo) Create(_ context.Context, session *domain.Session) (primitive.ObjectID, error) {
	if f.createErr != nil {
		return primitive.NilObjectID, f.createErr
	}
	id := primitive.NewObjectID()
	session.ID = id
	copied := *session
	f.sessions[id] = &copied
	return id, nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	session, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionRepo) Finalize(_ context.Context, id primitive.ObjectID, update domain.Session) error {
	session, ok := f.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if session.Status != domain.SessionStatusInProgress {
		return repository.ErrUpdateFailed
	}
	session.Status = update.Status
	session.CompletedAt = update.CompletedAt
	session.Summary = update.Summary
	session.SessionRPE = update.SessionRPE
	session.Notes = update.Notes
	session.StopReason = update.StopReason
	return nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.sessions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.sessions, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSessionRepo) ListFinished(_ context.Context, userID primitive.ObjectID, cursor *primitive.ObjectID, limit int) ([]domain.Session, error) {
	var out []domain.Session
	for _, session := range f.sessions {
		if session.UserID != userID || !session.Status.Terminal() {
			continue
		}
		if cursor != nil && session.ID.Hex() >= cursor.Hex() {
			continue
		}
		out = append(out, *session)
	}
	// Newest first by object id, as the store orders it.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ID.Hex() > out[i].ID.Hex() {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- helpers ---

func seedExercise(t *testing.T, repo *fakeExerciseRepo, sessions *fakeSessionRepo, userID primitive.ObjectID) *domain.Exercise {
	t.Helper()

	session := &domain.Session{UserID: userID, Status: domain.SessionStatusInProgress}
	sessionID, err := sessions.Create(context.Background(), session)
	require.NoError(t, err)

	payload := domain.Payload{
		SchemaVersion: domain.PayloadSchemaVersion,
		Identity:      domain.ExerciseIdentity{Name: "Push-Up", Type: domain.ExerciseTypeReps},
		Prescription: domain.Prescription{
			Sets: []domain.TargetSet{{Reps: intPtr(10)}, {Reps: intPtr(10)}},
		},
		Performance: domain.Performance{Sets: []domain.SetResult{{}, {}}},
	}
	raw, err := engine.EncodePayload(payload)
	require.NoError(t, err)

	ex := &domain.Exercise{
		ID:             primitive.NewObjectID(),
		SessionID:      sessionID,
		UserID:         userID,
		Status:         domain.ExerciseStatusPending,
		PayloadVersion: 1,
		Payload:        raw,
		Name:           payload.Identity.Name,
	}
	repo.exercises[ex.ID] = ex
	return ex
}

func intPtr(v int) *int { return &v }

// --- tests ---

func TestCommandService_Apply(t *testing.T) {
	userID := primitive.NewObjectID()
	exercises := newFakeExerciseRepo()
	ledger := newFakeActionLogRepo()
	sessions := newFakeSessionRepo()
	ex := seedExercise(t, exercises, sessions, userID)

	svc := service.NewCommandService(exercises, ledger, sessions)

	result, err := svc.Apply(context.Background(), service.ApplyCommandInput{
		CommandID:       "cmd-1",
		ExerciseID:      ex.ID,
		UserID:          userID,
		ExpectedVersion: 1,
		Command:         domain.CompleteSet{SetIndex: 0, Reps: intPtr(10)},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.PayloadVersion)
	assert.Equal(t, domain.ExerciseStatusInProgress, result.Status)
	assert.False(t, result.Replayed)
	assert.Equal(t, 10, *result.Payload.Performance.Sets[0].Reps)

	// Exactly one ledger entry, carrying the applied result.
	require.Len(t, ledger.entries, 1)
	entry := ledger.entries["cmd-1"]
	assert.Equal(t, domain.KindCompleteSet, entry.CommandKind)
	assert.Equal(t, 2, entry.ResultVersion)
	assert.Equal(t, ex.ID, entry.ExerciseID)

	// The denormalized row moved with the payload.
	stored := exercises.exercises[ex.ID]
	assert.Equal(t, 2, stored.PayloadVersion)
	assert.Equal(t, 10, stored.TotalReps)
}

func TestCommandService_Apply_IdempotentReplay(t *testing.T) {
	userID := primitive.NewObjectID()
	exercises := newFakeExerciseRepo()
	ledger := newFakeActionLogRepo()
	sessions := newFakeSessionRepo()
	ex := seedExercise(t, exercises, sessions, userID)

	svc := service.NewCommandService(exercises, ledger, sessions)

	in := service.ApplyCommandInput{
		CommandID:       "cmd-dup",
		ExerciseID:      ex.ID,
		UserID:          userID,
		ExpectedVersion: 1,
		Command:         domain.CompleteSet{SetIndex: 0, Reps: intPtr(8)},
	}
	first, err := svc.Apply(context.Background(), in)
	require.NoError(t, err)

	// Retrying with the same command identifier answers from the ledger:
	// same result, no second row update, even with a stale version.
	in.ExpectedVersion = 99
	second, err := svc.Apply(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.PayloadVersion, second.PayloadVersion)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, 1, exercises.updateCalls)
	assert.Len(t, ledger.entries, 1)
}

func TestCommandService_Apply_ReplayChecksIdentity(t *testing.T) {
	userID := primitive.NewObjectID()
	exercises := newFakeExerciseRepo()
	ledger := newFakeActionLogRepo()
	sessions := newFakeSessionRepo()
	ex := seedExercise(t, exercises, sessions, userID)

	svc := service.NewCommandService(exercises, ledger, sessions)

	in := service.ApplyCommandInput{
		CommandID:       "cmd-owned",
		ExerciseID:      ex.ID,
		UserID:          userID,
		ExpectedVersion: 1,
		Command:         domain.SetExerciseNote{Note: "ok"},
	}
	_, err := svc.Apply(context.Background(), in)
	require.NoError(t, err)

	// Another user replaying the identifier is forbidden.
	in.UserID = primitive.NewObjectID()
	_, err = svc.Apply(context.Background(), in)
	var domErr *domain.Error
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, domain.ErrKindForbidden, domErr.Kind)

	// Same user, different exercise: the identifier is bound to the one it
	// was issued against.
	in.UserID = userID
	in.ExerciseID = primitive.NewObjectID()
	_, err = svc.Apply(context.Background(), in)
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, domain.ErrKindValidation, domErr.Kind)
}

func TestCommandService_Apply_VersionConflict(t *testing.T) {
	userID := primitive.NewObjectID()
	exercises := newFakeExerciseRepo()
	ledger := newFakeActionLogRepo()
	sessions := newFakeSessionRepo()
	ex := seedExercise(t, exercises, sessions, userID)
	ex.PayloadVersion = 3

	svc := service.NewCommandService(exercises, ledger, sessions)

	_, err := svc.Apply(context.Background(), service.ApplyCommandInput{
		CommandID:       "cmd-stale",
		ExerciseID:      ex.ID,
		UserID:          userID,
		ExpectedVersion: 2,
		Command:         domain.SetExerciseNote{Note: "late"},
	})
	require.Error(t, err)

	var conflict *domain.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.ExpectedVersion)
	assert.Equal(t, 3, conflict.CurrentVersion)
	// A rejected command leaves no ledger entry.
	assert.Empty(t, ledger.entries)
}

func TestCommandService_Apply_LostWriteRace(t *testing.T) {
	userID := primitive.NewObjectID()
	exercises := newFakeExerciseRepo()
	ledger := newFakeActionLogRepo()
	sessions := newFakeSessionRepo()
	ex := seedExercise(t, exercises, sessions, userID)
	exercises.forceConflict = true

	svc := service.NewCommandService(exercises, ledger, sessions)

	_, err := svc.Apply(context.Background(), service.ApplyCommandInput{
		CommandID:       "cmd-race",
		ExerciseID:      ex.ID,
		UserID:          userID,
		ExpectedVersion: 1,
		Command:         domain.SetExerciseNote{Note: "racer"},
	})
	require.Error(t, err)

	var conflict *domain.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 1, conflict.CurrentVersion)
}

func TestCommandService_Apply_DuplicateInsertRace(t *testing.T) {
	userID := primitive.NewObjectID()
	exercises := newFakeExerciseRepo()
	ledger := newFakeActionLogRepo()
	sessions := newFakeSessionRepo()
	ex := seedExercise(t, exercises, sessions, userID)

	winning := &domain.ActionLogEntry{
		CommandID:     "cmd-insert-race",
		ExerciseID:    ex.ID,
		UserID:        userID,
		CommandKind:   domain.KindSetExerciseNote,
		ResultVersion: 2,
		ResultStatus:  domain.ExerciseStatusPending,
	}
	ledger.duplicateOnInsert = winning

	svc := service.NewCommandService(exercises, ledger, sessions)

	result, err := svc.Apply(context.Background(), service.ApplyCommandInput{
		CommandID:       "cmd-insert-race",
		ExerciseID:      ex.ID,
		UserID:          userID,
		ExpectedVersion: 1,
		Command:         domain.SetExerciseNote{Note: "loser"},
	})
	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, 2, result.PayloadVersion)
}

func TestCommandService_Apply_Forbidden(t *testing.T) {
	userID := primitive.NewObjectID()
	exercises := newFakeExerciseRepo()
	ledger := newFakeActionLogRepo()
	sessions := newFakeSessionRepo()
	ex := seedExercise(t, exercises, sessions, userID)

	svc := service.NewCommandService(exercises, ledger, sessions)

	_, err := svc.Apply(context.Background(), service.ApplyCommandInput{
		CommandID:       "cmd-x",
		ExerciseID:      ex.ID,
		UserID:          primitive.NewObjectID(),
		ExpectedVersion: 1,
		Command:         domain.SetExerciseNote{Note: "not mine"},
	})
	var domErr *domain.Error
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, domain.ErrKindForbidden, domErr.Kind)
}

func TestCommandService_Apply_ExerciseNotFound(t *testing.T) {
	svc := service.NewCommandService(newFakeExerciseRepo(), newFakeActionLogRepo(), newFakeSessionRepo())

	_, err := svc.Apply(context.Background(), service.ApplyCommandInput{
		CommandID:       "cmd-x",
		ExerciseID:      primitive.NewObjectID(),
		UserID:          primitive.NewObjectID(),
		ExpectedVersion: 1,
		Command:         domain.SetExerciseNote{Note: "ghost"},
	})
	var domErr *domain.Error
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, domain.ErrKindNotFound, domErr.Kind)
}

func TestCommandService_Apply_FinalizedSession(t *testing.T) {
	userID := primitive.NewObjectID()
	exercises := newFakeExerciseRepo()
	ledger := newFakeActionLogRepo()
	sessions := newFakeSessionRepo()
	ex := seedExercise(t, exercises, sessions, userID)
	sessions.sessions[ex.SessionID].Status = domain.SessionStatusCompleted

	svc := service.NewCommandService(exercises, ledger, sessions)

	_, err := svc.Apply(context.Background(), service.ApplyCommandInput{
		CommandID:       "cmd-late",
		ExerciseID:      ex.ID,
		UserID:          userID,
		ExpectedVersion: 1,
		Command:         domain.SetExerciseNote{Note: "too late"},
	})
	var domErr *domain.Error
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, domain.ErrKindAlreadyFinalized, domErr.Kind)
}

func TestCommandService_Apply_SessionReadFailureBlocksWrite(t *testing.T) {
	userID := primitive.NewObjectID()
	exercises := newFakeExerciseRepo()
	ledger := newFakeActionLogRepo()
	sessions := newFakeSessionRepo()
	ex := seedExercise(t, exercises, sessions, userID)

	// A transient store failure while checking the session must fail the
	// command, not fall through the terminal-session guard.
	sessions.getErr = errors.New("connection reset")

	svc := service.NewCommandService(exercises, ledger, sessions)

	_, err := svc.Apply(context.Background(), service.ApplyCommandInput{
		CommandID:       "cmd-flaky",
		ExerciseID:      ex.ID,
		UserID:          userID,
		ExpectedVersion: 1,
		Command:         domain.SetExerciseNote{Note: "x"},
	})
	require.Error(t, err)
	assert.Equal(t, 0, exercises.updateCalls)
	assert.Empty(t, ledger.entries)
}

func TestCommandService_Apply_OrphanedExerciseStillApplies(t *testing.T) {
	userID := primitive.NewObjectID()
	exercises := newFakeExerciseRepo()
	ledger := newFakeActionLogRepo()
	sessions := newFakeSessionRepo()
	ex := seedExercise(t, exercises, sessions, userID)
	delete(sessions.sessions, ex.SessionID)

	svc := service.NewCommandService(exercises, ledger, sessions)

	result, err := svc.Apply(context.Background(), service.ApplyCommandInput{
		CommandID:       "cmd-orphan",
		ExerciseID:      ex.ID,
		UserID:          userID,
		ExpectedVersion: 1,
		Command:         domain.SetExerciseNote{Note: "still works"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.PayloadVersion)
}

func TestCommandService_Apply_InputValidation(t *testing.T) {
	svc := service.NewCommandService(newFakeExerciseRepo(), newFakeActionLogRepo(), newFakeSessionRepo())

	_, err := svc.Apply(context.Background(), service.ApplyCommandInput{
		ExerciseID:      primitive.NewObjectID(),
		UserID:          primitive.NewObjectID(),
		ExpectedVersion: 1,
		Command:         domain.SetExerciseNote{Note: "x"},
	})
	require.Error(t, err) // missing command id

	_, err = svc.Apply(context.Background(), service.ApplyCommandInput{
		CommandID:       "cmd-x",
		ExerciseID:      primitive.NewObjectID(),
		UserID:          primitive.NewObjectID(),
		ExpectedVersion: 0,
		Command:         domain.SetExerciseNote{Note: "x"},
	})
	require.Error(t, err) // version below 1
}
