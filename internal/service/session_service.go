package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pulsefit/workout-app/internal/domain"
	"pulsefit/workout-app/internal/engine"
	"pulsefit/workout-app/internal/generator"
	"pulsefit/workout-app/internal/repository"
	"pulsefit/workout-app/internal/storage"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	minSessionMinutes = 5
	maxSessionMinutes = 240

	defaultHistoryPageSize = 20
	maxHistoryPageSize     = 50
)

// FinalizeMode selects how a session ends.
type FinalizeMode string

const (
	FinalizeModeComplete FinalizeMode = "complete"
	FinalizeModeStop     FinalizeMode = "stop"
)

// CreateSessionInput carries the validated parameters for a new session.
type CreateSessionInput struct {
	Intent               string
	TimeAvailableMinutes int
	Equipment            []string
	CoachMode            string
	PlanRef              string
	CalendarRef          string
}

// FinalizeInput carries the terminal mode plus the optional reflection.
type FinalizeInput struct {
	Mode       FinalizeMode
	StopReason string
	Reflection domain.Reflection
}

// ExerciseDetail pairs an exercise row with its decoded payload.
type ExerciseDetail struct {
	Exercise domain.Exercise
	Payload  domain.Payload
}

// SessionDetail is the full read model of one session.
type SessionDetail struct {
	Session   domain.Session
	Workout   domain.Workout
	Exercises []ExerciseDetail
}

// FinalizeResult is what finalization returns to the caller.
type FinalizeResult struct {
	Session           domain.Session
	Summary           domain.SessionSummary
	ActualDurationMin int
	// ArchiveURL is a presigned link to the archived summary document,
	// empty when archiving is disabled or failed (archiving is best
	// effort).
	ArchiveURL string
}

// HistoryRollup is the per-session aggregate shown in history listings,
// summed from the exercise rows at read time.
type HistoryRollup struct {
	ExercisesCompleted int
	ExercisesTotal     int
	TotalReps          int
	Volume             float64
	DurationSec        int
}

// HistoryItem is one finished session in a history page.
type HistoryItem struct {
	Session domain.Session
	Rollup  HistoryRollup
}

// HistoryPage is one page of finished sessions, newest first.
type HistoryPage struct {
	Items      []HistoryItem
	NextCursor string
}

// SessionService owns the session lifecycle: creation (seeding exercises
// from the instance generator), reads, finalization, and history.
type SessionService interface {
	Create(ctx context.Context, userID primitive.ObjectID, in CreateSessionInput) (*SessionDetail, error)
	Get(ctx context.Context, userID, sessionID primitive.ObjectID) (*SessionDetail, error)
	Finalize(ctx context.Context, userID, sessionID primitive.ObjectID, in FinalizeInput) (*FinalizeResult, error)
	History(ctx context.Context, userID primitive.ObjectID, cursor string, limit int) (*HistoryPage, error)
}

type sessionService struct {
	sessionRepo  repository.SessionRepository
	workoutRepo  repository.WorkoutRepository
	exerciseRepo repository.ExerciseRepository
	gen          generator.Generator
	archive      storage.SummaryArchive // may be nil: archiving disabled
	now          func() time.Time
}

// NewSessionService creates a new instance of sessionService. Pass a nil
// archive to disable summary archiving.
func NewSessionService(
	sessionRepo repository.SessionRepository,
	workoutRepo repository.WorkoutRepository,
	exerciseRepo repository.ExerciseRepository,
	gen generator.Generator,
	archive storage.SummaryArchive,
) SessionService {
	return &sessionService{
		sessionRepo:  sessionRepo,
		workoutRepo:  workoutRepo,
		exerciseRepo: exerciseRepo,
		gen:          gen,
		archive:      archive,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the session parameters, asks the generator for a plan,
// and persists session + workout + exercises. Any failure after the session
// row exists rolls the partial session back rather than leaving it orphaned.
func (s *sessionService) Create(ctx context.Context, userID primitive.ObjectID, in CreateSessionInput) (*SessionDetail, error) {
	if userID == primitive.NilObjectID {
		return nil, domain.NewValidationError("user id is required")
	}
	if in.TimeAvailableMinutes < minSessionMinutes || in.TimeAvailableMinutes > maxSessionMinutes {
		return nil, domain.NewValidationError("time_available_minutes must be between %d and %d, got %d",
			minSessionMinutes, maxSessionMinutes, in.TimeAvailableMinutes)
	}
	switch in.CoachMode {
	case "", "guided", "solo":
	default:
		return nil, domain.NewValidationError("coach_mode must be guided or solo, got %q", in.CoachMode)
	}

	plan, err := s.gen.Generate(ctx, generator.GenerationRequest{
		UserID:               userID.Hex(),
		Intent:               in.Intent,
		TimeAvailableMinutes: in.TimeAvailableMinutes,
		Equipment:            in.Equipment,
		CoachMode:            in.CoachMode,
	})
	if err != nil {
		return nil, fmt.Errorf("generate session plan: %w", err)
	}
	if len(plan.Exercises) == 0 {
		return nil, fmt.Errorf("generate session plan: %w", generator.ErrEmptyPlan)
	}

	session := &domain.Session{
		UserID:    userID,
		Status:    domain.SessionStatusInProgress,
		CoachMode: in.CoachMode,
		StartedAt: s.now(),
		Metadata:  sessionMetadata(in),
	}
	sessionID, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		return nil, err
	}
	session.ID = sessionID

	detail, err := s.seedWorkout(ctx, userID, session, plan)
	if err != nil {
		s.rollbackCreate(ctx, sessionID)
		return nil, err
	}
	return detail, nil
}

// seedWorkout persists the workout and its exercise rows for a freshly
// created session.
func (s *sessionService) seedWorkout(ctx context.Context, userID primitive.ObjectID, session *domain.Session, plan *generator.GeneratedPlan) (*SessionDetail, error) {
	title := plan.Title
	if title == "" {
		title = "Workout"
	}
	workout := &domain.Workout{
		SessionID:          session.ID,
		UserID:             userID,
		Title:              title,
		Category:           plan.Category,
		PlannedDurationMin: plan.EstimatedDurationMinutes,
		Focus:              plan.Focus,
	}
	workoutID, err := s.workoutRepo.Create(ctx, workout)
	if err != nil {
		return nil, err
	}
	workout.ID = workoutID

	exercises := make([]domain.Exercise, 0, len(plan.Exercises))
	details := make([]ExerciseDetail, 0, len(plan.Exercises))
	for i, proposal := range plan.Exercises {
		payload := engine.BuildPayload(proposal)
		raw, err := engine.EncodePayload(payload)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, domain.Exercise{
			SessionID:      session.ID,
			WorkoutID:      workoutID,
			UserID:         userID,
			Order:          i,
			Status:         domain.ExerciseStatusPending,
			PayloadVersion: 1,
			Payload:        raw,
			Name:           payload.Identity.Name,
		})
		details = append(details, ExerciseDetail{Payload: payload})
	}
	if err := s.exerciseRepo.InsertMany(ctx, exercises); err != nil {
		return nil, err
	}
	for i := range exercises {
		details[i].Exercise = exercises[i]
	}

	return &SessionDetail{
		Session:   *session,
		Workout:   *workout,
		Exercises: details,
	}, nil
}

// rollbackCreate deletes whatever parts of a failed session creation made it
// to the store. Errors here are logged, not surfaced: the caller already has
// the original failure.
func (s *sessionService) rollbackCreate(ctx context.Context, sessionID primitive.ObjectID) {
	if err := s.exerciseRepo.DeleteBySessionID(ctx, sessionID); err != nil {
		log.WithError(err).WithField("sessionId", sessionID.Hex()).Error("rollback: delete exercises failed")
	}
	if err := s.workoutRepo.DeleteBySessionID(ctx, sessionID); err != nil {
		log.WithError(err).WithField("sessionId", sessionID.Hex()).Error("rollback: delete workout failed")
	}
	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.WithError(err).WithField("sessionId", sessionID.Hex()).Error("rollback: delete session failed")
	}
}

// Get returns the full session detail for its owner.
func (s *sessionService) Get(ctx context.Context, userID, sessionID primitive.ObjectID) (*SessionDetail, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	workout, err := s.workoutRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("workout")
		}
		return nil, err
	}

	rows, err := s.exerciseRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	details := make([]ExerciseDetail, 0, len(rows))
	for _, row := range rows {
		payload, err := engine.DecodePayload(row.Payload)
		if err != nil {
			return nil, err
		}
		details = append(details, ExerciseDetail{Exercise: row, Payload: *payload})
	}

	return &SessionDetail{
		Session:   *session,
		Workout:   *workout,
		Exercises: details,
	}, nil
}

// Finalize ends a session, computing the summary purely from the current
// exercise rows; no generator or model call happens on this path.
func (s *sessionService) Finalize(ctx context.Context, userID, sessionID primitive.ObjectID, in FinalizeInput) (*FinalizeResult, error) {
	switch in.Mode {
	case FinalizeModeComplete, FinalizeModeStop:
	default:
		return nil, domain.NewValidationError("mode must be complete or stop, got %q", string(in.Mode))
	}
	if in.Reflection.RPE != nil && (*in.Reflection.RPE < 1 || *in.Reflection.RPE > 10) {
		return nil, domain.NewValidationError("reflection rpe must be between 1 and 10, got %d", *in.Reflection.RPE)
	}

	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, &domain.Error{
			Kind:    domain.ErrKindAlreadyFinalized,
			Message: "session is already finalized",
		}
	}

	workout, err := s.workoutRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("workout")
		}
		return nil, err
	}

	exercises, err := s.exerciseRepo.GetByWorkoutID(ctx, workout.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := buildSummary(exercises, workout.Category)
	actualMin := int(now.Sub(session.StartedAt).Round(time.Minute) / time.Minute)
	if actualMin < 0 {
		actualMin = 0
	}

	status := domain.SessionStatusCompleted
	if in.Mode == FinalizeModeStop {
		status = domain.SessionStatusStopped
	}

	update := domain.Session{
		Status:      status,
		CompletedAt: &now,
		Summary:     &summary,
		SessionRPE:  in.Reflection.RPE,
		Notes:       reflectionNotes(in.Reflection),
		StopReason:  in.StopReason,
	}
	if err := s.sessionRepo.Finalize(ctx, sessionID, update); err != nil {
		if errors.Is(err, repository.ErrUpdateFailed) {
			return nil, &domain.Error{
				Kind:    domain.ErrKindAlreadyFinalized,
				Message: "session is already finalized",
			}
		}
		return nil, err
	}
	if err := s.workoutRepo.SetActualDuration(ctx, workout.ID, actualMin); err != nil {
		// The session is already terminal; log and carry on rather than
		// failing a finalize that mostly succeeded.
		log.WithError(err).WithField("workoutId", workout.ID.Hex()).
			Error("finalize: writing actual duration failed")
	}

	session.Status = status
	session.CompletedAt = &now
	session.Summary = &summary
	session.SessionRPE = in.Reflection.RPE
	session.Notes = update.Notes
	session.StopReason = in.StopReason

	archiveURL := s.archiveSummary(ctx, session, workout, summary, actualMin)

	return &FinalizeResult{
		Session:           *session,
		Summary:           summary,
		ActualDurationMin: actualMin,
		ArchiveURL:        archiveURL,
	}, nil
}

// History returns one page of finished sessions, newest first, with rollups
// summed from the exercise rows.
func (s *sessionService) History(ctx context.Context, userID primitive.ObjectID, cursor string, limit int) (*HistoryPage, error) {
	if limit <= 0 {
		limit = defaultHistoryPageSize
	}
	if limit > maxHistoryPageSize {
		limit = maxHistoryPageSize
	}

	var cursorID *primitive.ObjectID
	if cursor != "" {
		id, err := primitive.ObjectIDFromHex(cursor)
		if err != nil {
			return nil, domain.NewValidationError("invalid cursor %q", cursor)
		}
		cursorID = &id
	}

	// Fetch one extra row to know whether another page exists.
	sessions, err := s.sessionRepo.ListFinished(ctx, userID, cursorID, limit+1)
	if err != nil {
		return nil, err
	}

	page := &HistoryPage{}
	hasMore := len(sessions) > limit
	if hasMore {
		sessions = sessions[:limit]
	}

	for _, session := range sessions {
		rows, err := s.exerciseRepo.GetBySessionID(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, HistoryItem{
			Session: session,
			Rollup:  buildRollup(rows),
		})
	}
	if hasMore && len(sessions) > 0 {
		page.NextCursor = sessions[len(sessions)-1].ID.Hex()
	}
	return page, nil
}

// ownedSession loads a session and enforces ownership.
func (s *sessionService) ownedSession(ctx context.Context, userID, sessionID primitive.ObjectID) (*domain.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("session")
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, domain.NewForbiddenError("session")
	}
	return session, nil
}

// buildSummary derives the finalization summary from the exercise rows
// alone, so finalize stays deterministic.
func buildSummary(exercises []domain.Exercise, category string) domain.SessionSummary {
	summary := domain.SessionSummary{
		ExercisesTotal: len(exercises),
		Wins:           []string{},
	}

	var firstSkipped string
	var bestVolume float64
	var bestVolumeName string
	totalReps := 0

	for _, ex := range exercises {
		switch ex.Status {
		case domain.ExerciseStatusCompleted:
			summary.ExercisesCompleted++
		case domain.ExerciseStatusSkipped:
			summary.ExercisesSkipped++
			if firstSkipped == "" {
				firstSkipped = ex.Name
			}
		}
		totalReps += ex.TotalReps
		if ex.Volume > bestVolume {
			bestVolume = ex.Volume
			bestVolumeName = ex.Name
		}
	}
	summary.TotalSetsCompleted = countCompletedSets(exercises)

	if summary.ExercisesCompleted > 0 {
		summary.Wins = append(summary.Wins,
			fmt.Sprintf("Completed %d of %d exercises", summary.ExercisesCompleted, summary.ExercisesTotal))
	}
	if bestVolumeName != "" {
		summary.Wins = append(summary.Wins,
			fmt.Sprintf("Strong work on %s (%.0f volume)", bestVolumeName, bestVolume))
	}
	if totalReps > 0 {
		summary.Wins = append(summary.Wins, fmt.Sprintf("Logged %d total reps", totalReps))
	}

	switch {
	case firstSkipped != "":
		summary.NextSessionFocus = fmt.Sprintf("Revisit %s next time", firstSkipped)
	case category != "":
		summary.NextSessionFocus = fmt.Sprintf("Keep building on %s", category)
	default:
		summary.NextSessionFocus = "Keep the momentum going"
	}
	return summary
}

// countCompletedSets counts performance sets with a completion timestamp
// across all exercises, tolerating undecodable legacy payloads by falling
// back to zero for that exercise.
func countCompletedSets(exercises []domain.Exercise) int {
	total := 0
	for _, ex := range exercises {
		payload, err := engine.DecodePayload(ex.Payload)
		if err != nil {
			log.WithError(err).WithField("exerciseId", ex.ID.Hex()).
				Warn("summary: skipping undecodable payload")
			continue
		}
		for _, set := range payload.Performance.Sets {
			if set.CompletedAt != nil {
				total++
			}
		}
	}
	return total
}

func buildRollup(exercises []domain.Exercise) HistoryRollup {
	rollup := HistoryRollup{ExercisesTotal: len(exercises)}
	for _, ex := range exercises {
		if ex.Status == domain.ExerciseStatusCompleted {
			rollup.ExercisesCompleted++
		}
		rollup.TotalReps += ex.TotalReps
		rollup.Volume += ex.Volume
		rollup.DurationSec += ex.DurationSec
	}
	return rollup
}

func sessionMetadata(in CreateSessionInput) map[string]string {
	meta := map[string]string{}
	if in.Intent != "" {
		meta["intent"] = in.Intent
	}
	if in.PlanRef != "" {
		meta["planRef"] = in.PlanRef
	}
	if in.CalendarRef != "" {
		meta["calendarRef"] = in.CalendarRef
	}
	if len(in.Equipment) > 0 {
		sorted := append([]string(nil), in.Equipment...)
		sort.Strings(sorted)
		meta["equipment"] = strings.Join(sorted, ",")
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func reflectionNotes(r domain.Reflection) string {
	switch {
	case r.Text != "" && r.PainNote != "":
		return r.Text + "\nPain: " + r.PainNote
	case r.PainNote != "":
		return "Pain: " + r.PainNote
	default:
		return r.Text
	}
}

// archiveSummary writes the finalized summary to the archive store and
// returns a presigned link. Best effort: failures are logged and the
// finalize result simply carries no link.
func (s *sessionService) archiveSummary(ctx context.Context, session *domain.Session, workout *domain.Workout, summary domain.SessionSummary, actualMin int) string {
	if s.archive == nil {
		return ""
	}
	url, err := s.archive.ArchiveSessionSummary(ctx, storage.SessionSummaryDocument{
		SessionID:         session.ID.Hex(),
		UserID:            session.UserID.Hex(),
		Status:            string(session.Status),
		WorkoutTitle:      workout.Title,
		CompletedAt:       *session.CompletedAt,
		ActualDurationMin: actualMin,
		Summary:           summary,
	})
	if err != nil {
		log.WithError(err).WithField("sessionId", session.ID.Hex()).
			Warn("archiving session summary failed")
		return ""
	}
	return url
}
