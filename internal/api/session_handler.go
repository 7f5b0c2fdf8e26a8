package api

import (
	"net/http"
	"strconv"

	"pulsefit/workout-app/internal/domain"
	"pulsefit/workout-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionHandler holds the session service dependency.
type SessionHandler struct {
	sessionService service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// --- DTOs ---

type CreateSessionRequest struct {
	Intent               string   `json:"intent"`
	TimeAvailableMinutes int      `json:"time_available_minutes" binding:"required"`
	Equipment            []string `json:"equipment"`
	CoachMode            string   `json:"coach_mode"`
	PlanRef              string   `json:"plan_ref"`
	CalendarRef          string   `json:"calendar_ref"`
}

type FinalizeSessionRequest struct {
	Mode       string            `json:"mode" binding:"required"`
	StopReason string            `json:"stop_reason"`
	Reflection domain.Reflection `json:"reflection"`
}

// ExerciseView is one exercise row with its decoded payload.
type ExerciseView struct {
	ID             string                `json:"id"`
	Order          int                   `json:"order"`
	Name           string                `json:"name"`
	Status         domain.ExerciseStatus `json:"status"`
	PayloadVersion int                   `json:"payloadVersion"`
	Payload        domain.Payload        `json:"payload"`
}

// InstanceView is the plan-shaped rendering of the session's workout:
// title, duration and per-exercise targets in the layout older clients read,
// reconstructed from the workout row and the current prescriptions.
type InstanceView struct {
	Title                    string                 `json:"title"`
	Category                 string                 `json:"category,omitempty"`
	EstimatedDurationMinutes int                    `json:"estimated_duration_minutes"`
	Focus                    []string               `json:"focus,omitempty"`
	Exercises                []InstanceExerciseView `json:"exercises"`
}

// InstanceExerciseView is one exercise of the instance view. Which target
// fields are populated depends on the exercise type, mirroring the shape
// plans arrive in.
type InstanceExerciseView struct {
	Name string `json:"name"`
	Type string `json:"type"`

	Sets        int       `json:"sets"`
	Reps        []int     `json:"reps,omitempty"`
	Loads       []float64 `json:"loads,omitempty"`
	LoadUnit    string    `json:"load_unit,omitempty"`
	HoldSeconds []int     `json:"hold_seconds,omitempty"`

	DurationMinutes *float64 `json:"duration_minutes,omitempty"`
	DistanceM       *float64 `json:"distance_m,omitempty"`

	Rounds      *int `json:"rounds,omitempty"`
	WorkSeconds *int `json:"work_seconds,omitempty"`
	RestSeconds *int `json:"rest_seconds,omitempty"`
}

// SessionDetailResponse is the full read model of one session.
type SessionDetailResponse struct {
	Session   domain.Session `json:"session"`
	Workout   domain.Workout `json:"workout"`
	Exercises []ExerciseView `json:"exercises"`
	Instance  InstanceView   `json:"instance"`
}

// FinalizeSessionResponse reports the terminal session plus its summary.
type FinalizeSessionResponse struct {
	Session           domain.Session        `json:"session"`
	Summary           domain.SessionSummary `json:"summary"`
	ActualDurationMin int                   `json:"actualDurationMin"`
	ArchiveURL        string                `json:"archiveUrl,omitempty"`
}

// HistoryItemResponse is one finished session in a history page.
type HistoryItemResponse struct {
	Session domain.Session        `json:"session"`
	Rollup  service.HistoryRollup `json:"rollup"`
}

// HistoryResponse is one page of finished sessions, newest first.
type HistoryResponse struct {
	Items      []HistoryItemResponse `json:"items"`
	NextCursor string                `json:"nextCursor,omitempty"`
}

// --- Handlers ---

// CreateSession handles POST /sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	detail, err := h.sessionService.Create(c.Request.Context(), userID, service.CreateSessionInput{
		Intent:               req.Intent,
		TimeAvailableMinutes: req.TimeAvailableMinutes,
		Equipment:            req.Equipment,
		CoachMode:            req.CoachMode,
		PlanRef:              req.PlanRef,
		CalendarRef:          req.CalendarRef,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSessionDetailResponse(detail))
}

// GetSession handles GET /sessions/:id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, domain.NewValidationError("invalid session id %q", c.Param("id")))
		return
	}

	detail, err := h.sessionService.Get(c.Request.Context(), userID, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionDetailResponse(detail))
}

// FinalizeSession handles POST /sessions/:id/finalize.
func (h *SessionHandler) FinalizeSession(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, domain.NewValidationError("invalid session id %q", c.Param("id")))
		return
	}

	var req FinalizeSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	result, err := h.sessionService.Finalize(c.Request.Context(), userID, sessionID, service.FinalizeInput{
		Mode:       service.FinalizeMode(req.Mode),
		StopReason: req.StopReason,
		Reflection: req.Reflection,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, FinalizeSessionResponse{
		Session:           result.Session,
		Summary:           result.Summary,
		ActualDurationMin: result.ActualDurationMin,
		ArchiveURL:        result.ArchiveURL,
	})
}

// History handles GET /sessions?cursor=&limit=.
func (h *SessionHandler) History(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(c, domain.NewValidationError("limit must be a positive integer, got %q", raw))
			return
		}
	}

	page, err := h.sessionService.History(c.Request.Context(), userID, c.Query("cursor"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := HistoryResponse{Items: []HistoryItemResponse{}, NextCursor: page.NextCursor}
	for _, item := range page.Items {
		resp.Items = append(resp.Items, HistoryItemResponse{Session: item.Session, Rollup: item.Rollup})
	}
	c.JSON(http.StatusOK, resp)
}

func toSessionDetailResponse(detail *service.SessionDetail) SessionDetailResponse {
	views := make([]ExerciseView, 0, len(detail.Exercises))
	for _, ex := range detail.Exercises {
		views = append(views, ExerciseView{
			ID:             ex.Exercise.ID.Hex(),
			Order:          ex.Exercise.Order,
			Name:           ex.Exercise.Name,
			Status:         ex.Exercise.Status,
			PayloadVersion: ex.Exercise.PayloadVersion,
			Payload:        ex.Payload,
		})
	}
	return SessionDetailResponse{
		Session:   detail.Session,
		Workout:   detail.Workout,
		Exercises: views,
		Instance:  toInstanceView(detail),
	}
}

func toInstanceView(detail *service.SessionDetail) InstanceView {
	view := InstanceView{
		Title:                    detail.Workout.Title,
		Category:                 detail.Workout.Category,
		EstimatedDurationMinutes: detail.Workout.PlannedDurationMin,
		Focus:                    detail.Workout.Focus,
		Exercises:                make([]InstanceExerciseView, 0, len(detail.Exercises)),
	}
	for _, ex := range detail.Exercises {
		view.Exercises = append(view.Exercises, toInstanceExerciseView(ex.Payload))
	}
	return view
}

// toInstanceExerciseView folds a prescription back into the plan shape:
// per-set targets become arrays, set-count and rest come along, and the
// type decides which fields are meaningful.
func toInstanceExerciseView(payload domain.Payload) InstanceExerciseView {
	sets := payload.Prescription.Sets
	out := InstanceExerciseView{
		Name:        payload.Identity.Name,
		Type:        string(payload.Identity.Type),
		Sets:        len(sets),
		RestSeconds: payload.Prescription.RestSeconds,
	}

	switch payload.Identity.Type {
	case domain.ExerciseTypeReps:
		for _, set := range sets {
			if set.Reps != nil {
				out.Reps = append(out.Reps, *set.Reps)
			}
			if set.Load != nil {
				out.Loads = append(out.Loads, *set.Load)
			}
			if out.LoadUnit == "" {
				out.LoadUnit = set.LoadUnit
			}
		}
	case domain.ExerciseTypeHold:
		for _, set := range sets {
			if set.DurationSec != nil {
				out.HoldSeconds = append(out.HoldSeconds, *set.DurationSec)
			}
		}
	case domain.ExerciseTypeDuration:
		if len(sets) > 0 {
			if set := sets[0]; set.DurationSec != nil {
				minutes := float64(*set.DurationSec) / 60
				out.DurationMinutes = &minutes
			}
			out.DistanceM = sets[0].DistanceM
		}
	case domain.ExerciseTypeIntervals:
		rounds := len(sets)
		out.Rounds = &rounds
		if len(sets) > 0 {
			out.WorkSeconds = sets[0].DurationSec
		}
	}
	return out
}
