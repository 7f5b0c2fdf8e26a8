package mongo

import (
	"context"
	"errors"
	"time"

	"pulsefit/workout-app/internal/domain"
	"pulsefit/workout-app/internal/repository"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const actionLogCollectionName = "action_log"

// mongoActionLogRepository implements repository.ActionLogRepository.
// The collection is append-only: entries are inserted once and never
// updated or deleted. The unique index on commandId is the correctness
// mechanism for exactly-once command application, not any lock.
type mongoActionLogRepository struct {
	collection *mongo.Collection
}

// NewMongoActionLogRepository creates a new ActionLog repository backed by MongoDB.
func NewMongoActionLogRepository(db *mongo.Database) repository.ActionLogRepository {
	return &mongoActionLogRepository{
		collection: db.Collection(actionLogCollectionName),
	}
}

// Insert appends one ledger entry. A duplicate-key violation on commandId
// means another request with the same command identifier got there first;
// that is reported as ErrAlreadyExists, not as a failure.
func (r *mongoActionLogRepository) Insert(ctx context.Context, entry *domain.ActionLogEntry) (primitive.ObjectID, error) {
	if entry.CommandID == "" {
		return primitive.NilObjectID, errors.New("action log entry requires a commandId")
	}

	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrAlreadyExists
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted action log ID")
	}
	return insertedID, nil
}

// GetByCommandID looks up the ledger entry for a command identifier.
func (r *mongoActionLogRepository) GetByCommandID(ctx context.Context, commandID string) (*domain.ActionLogEntry, error) {
	var entry domain.ActionLogEntry
	err := r.collection.FindOne(ctx, bson.M{"commandId": commandID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// EnsureActionLogIndexes creates necessary indexes for the action log.
func EnsureActionLogIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// The uniqueness guarantee the idempotency ledger stands on.
			Keys:    bson.D{{Key: "commandId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Audit queries per exercise in application order.
			Keys:    bson.D{{Key: "exerciseId", Value: 1}, {Key: "resultVersion", Value: 1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.WithError(err).Warnf("failed to create indexes for collection %s", collection.Name())
	}
}
