package api

import (
	"errors"
	"net/http"

	"pulsefit/workout-app/internal/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ErrorBody is the wire shape of every error response: a stable kind plus a
// human-readable message, with extra fields where the kind calls for them.
type ErrorBody struct {
	Kind           string `json:"kind"`
	Message        string `json:"message"`
	CurrentVersion *int   `json:"currentVersion,omitempty"`
}

// respondError maps the domain error taxonomy onto HTTP status codes. Errors
// outside the taxonomy are internal and surface without detail.
func respondError(c *gin.Context, err error) {
	var conflict *domain.VersionConflictError
	if errors.As(err, &conflict) {
		current := conflict.CurrentVersion
		c.JSON(http.StatusConflict, gin.H{"error": ErrorBody{
			Kind:           string(domain.ErrKindVersionConflict),
			Message:        conflict.Error(),
			CurrentVersion: &current,
		}})
		return
	}

	var badIndex *domain.InvalidSetIndexError
	if errors.As(err, &badIndex) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrorBody{
			Kind:    string(domain.ErrKindInvalidSetIndex),
			Message: badIndex.Error(),
		}})
		return
	}

	var badSchema *domain.UnsupportedSchemaVersionError
	if errors.As(err, &badSchema) {
		// The stored data is newer than this server; nothing the caller can
		// fix, but the kind tells operators exactly what happened.
		c.JSON(http.StatusInternalServerError, gin.H{"error": ErrorBody{
			Kind:    string(domain.ErrKindUnsupportedSchema),
			Message: badSchema.Error(),
		}})
		return
	}

	var domErr *domain.Error
	if errors.As(err, &domErr) {
		status := http.StatusInternalServerError
		switch domErr.Kind {
		case domain.ErrKindValidation:
			status = http.StatusBadRequest
		case domain.ErrKindNotFound:
			status = http.StatusNotFound
		case domain.ErrKindForbidden:
			status = http.StatusForbidden
		case domain.ErrKindAlreadyFinalized:
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": ErrorBody{
			Kind:    string(domErr.Kind),
			Message: domErr.Message,
		}})
		return
	}

	log.WithError(err).Error("unhandled error in request")
	c.JSON(http.StatusInternalServerError, gin.H{"error": ErrorBody{
		Kind:    "internal",
		Message: "internal server error",
	}})
}
