package storage

import (
	"context"
	"time"

	"pulsefit/workout-app/internal/domain"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// SessionSummaryDocument is the archived form of one finalized session.
type SessionSummaryDocument struct {
	SessionID         string                `json:"sessionId"`
	UserID            string                `json:"userId"`
	Status            string                `json:"status"`
	WorkoutTitle      string                `json:"workoutTitle"`
	CompletedAt       time.Time             `json:"completedAt"`
	ActualDurationMin int                   `json:"actualDurationMin"`
	Summary           domain.SessionSummary `json:"summary"`
}

// SummaryArchive defines the interface for archiving finalized session
// summaries to object storage.
type SummaryArchive interface {
	// ArchiveSessionSummary stores the document and returns a temporary
	// download URL for it.
	ArchiveSessionSummary(ctx context.Context, doc SessionSummaryDocument) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET
	// requests for an archived object.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
}
