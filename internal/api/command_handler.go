package api

import (
	"encoding/json"
	"net/http"
	"time"

	"pulsefit/workout-app/internal/domain"
	"pulsefit/workout-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommandHandler holds the command service dependency.
type CommandHandler struct {
	commandService service.CommandService
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(commandService service.CommandService) *CommandHandler {
	return &CommandHandler{commandService: commandService}
}

// --- DTOs ---

// CommandEnvelope is the submission shape: a client-generated unique command
// identifier, the expected payload version, and a kind-tagged body.
type CommandEnvelope struct {
	CommandID       string                `json:"command_id" binding:"required"`
	ExpectedVersion int                   `json:"expected_version" binding:"required,min=1"`
	Command         CommandBody           `json:"command" binding:"required"`
	ClientMetadata  ClientMetadataRequest `json:"client_metadata"`
}

// CommandBody carries the kind tag plus the raw fields, decoded into the
// typed command union before anything else runs.
type CommandBody struct {
	Type   string          `json:"type" binding:"required"`
	Fields json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the whole body around so kind-specific fields can be
// decoded after the type tag is known.
func (b *CommandBody) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	b.Type = tag.Type
	b.Fields = append(json.RawMessage(nil), data...)
	return nil
}

// ClientMetadataRequest is optional audit context echoed into the action log.
type ClientMetadataRequest struct {
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	DeviceID      string     `json:"device_id,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

// CommandResponse is returned for both fresh applications and replays.
type CommandResponse struct {
	ExerciseID     string                `json:"exerciseId"`
	PayloadVersion int                   `json:"payloadVersion"`
	Status         domain.ExerciseStatus `json:"status"`
	Payload        domain.Payload        `json:"payload"`
	Replayed       bool                  `json:"replayed"`
}

// SubmitCommand handles POST /exercises/:id/commands.
func (h *CommandHandler) SubmitCommand(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	exerciseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, domain.NewValidationError("invalid exercise id %q", c.Param("id")))
		return
	}

	var envelope CommandEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		respondError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	cmd, err := domain.DecodeCommand(domain.CommandKind(envelope.Command.Type), envelope.Command.Fields)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.commandService.Apply(c.Request.Context(), service.ApplyCommandInput{
		CommandID:       envelope.CommandID,
		ExerciseID:      exerciseID,
		UserID:          userID,
		ExpectedVersion: envelope.ExpectedVersion,
		Command:         cmd,
		ClientMeta: domain.ClientMetadata{
			SubmittedAt:   envelope.ClientMetadata.SubmittedAt,
			DeviceID:      envelope.ClientMetadata.DeviceID,
			CorrelationID: envelope.ClientMetadata.CorrelationID,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CommandResponse{
		ExerciseID:     result.ExerciseID.Hex(),
		PayloadVersion: result.PayloadVersion,
		Status:         result.Status,
		Payload:        result.Payload,
		Replayed:       result.Replayed,
	})
}
