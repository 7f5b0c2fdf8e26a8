package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClientMetadata is optional audit context supplied with a command. Never
// interpreted by the server beyond storage.
type ClientMetadata struct {
	SubmittedAt   *time.Time `bson:"submittedAt,omitempty" json:"submitted_at,omitempty"`
	DeviceID      string     `bson:"deviceId,omitempty" json:"device_id,omitempty"`
	CorrelationID string     `bson:"correlationId,omitempty" json:"correlation_id,omitempty"`
}

// ActionLogEntry is the immutable record of one successfully applied command.
// Exactly one entry exists per distinct command identifier; the unique index
// on CommandID is the sole mechanism behind exactly-once application.
// Entries are never updated.
type ActionLogEntry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CommandID  string             `bson:"commandId" json:"commandId"` // Unique
	ExerciseID primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`

	CommandKind CommandKind `bson:"commandKind" json:"commandKind"`
	CommandBody bson.M      `bson:"commandBody" json:"commandBody"` // Full command body for audit

	// The result recorded at apply time. Replays of the same command
	// identifier are answered from these fields without touching the
	// exercise row.
	ResultVersion int            `bson:"resultVersion" json:"resultVersion"`
	ResultStatus  ExerciseStatus `bson:"resultStatus" json:"resultStatus"`
	ResultPayload Payload        `bson:"resultPayload" json:"resultPayload"`

	ClientMeta ClientMetadata `bson:"clientMeta,omitempty" json:"clientMeta,omitempty"`
	CreatedAt  time.Time      `bson:"createdAt" json:"createdAt"`
}

// EncodeCommandBody converts a typed command into the generic document form
// stored on the action log entry.
func EncodeCommandBody(cmd Command) (bson.M, error) {
	raw, err := bson.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
