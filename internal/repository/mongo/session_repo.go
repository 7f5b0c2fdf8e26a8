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

const sessionCollectionName = "sessions"

// mongoSessionRepository implements repository.SessionRepository
type mongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new Session repository backed by MongoDB.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// Create inserts a new session row.
func (r *mongoSessionRepository) Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error) {
	if session.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("session requires a userId")
	}

	session.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.StartedAt.IsZero() {
		session.StartedAt = now
	}
	if session.Status == "" {
		session.Status = domain.SessionStatusInProgress
	}

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted session ID")
	}
	return insertedID, nil
}

// GetByID retrieves a session by its ID.
func (r *mongoSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error) {
	var session domain.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Finalize writes the terminal state in one update, conditioned on the
// session still being in progress so a second finalize cannot overwrite the
// first one's summary.
func (r *mongoSessionRepository) Finalize(ctx context.Context, id primitive.ObjectID, update domain.Session) error {
	filter := bson.M{
		"_id":    id,
		"status": domain.SessionStatusInProgress,
	}
	set := bson.M{
		"status":      update.Status,
		"completedAt": update.CompletedAt,
		"summary":     update.Summary,
		"updatedAt":   time.Now().UTC(),
	}
	if update.SessionRPE != nil {
		set["sessionRpe"] = update.SessionRPE
	}
	if update.Notes != "" {
		set["notes"] = update.Notes
	}
	if update.StopReason != "" {
		set["stopReason"] = update.StopReason
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Either the session does not exist or it is already terminal;
		// the service distinguishes the two with a read.
		return repository.ErrUpdateFailed
	}
	return nil
}

// Delete removes a session row (rollback path only).
func (r *mongoSessionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListFinished returns completed/stopped sessions for the user, newest first.
// Pagination is cursor-based on _id (ObjectIDs sort by creation time), so a
// page boundary stays stable while new sessions keep arriving.
func (r *mongoSessionRepository) ListFinished(ctx context.Context, userID primitive.ObjectID, cursor *primitive.ObjectID, limit int) ([]domain.Session, error) {
	filter := bson.M{
		"userId": userID,
		"status": bson.M{"$in": []domain.SessionStatus{
			domain.SessionStatusCompleted,
			domain.SessionStatusStopped,
		}},
	}
	if cursor != nil {
		filter["_id"] = bson.M{"$lt": *cursor}
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	var sessions []domain.Session
	cur, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	if err = cur.All(ctx, &sessions); err != nil {
		return nil, err
	}
	if err = cur.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// EnsureSessionIndexes creates necessary indexes for the sessions collection.
func EnsureSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// History listing: finished sessions per user, newest first.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}, {Key: "_id", Value: -1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.WithError(err).Warnf("failed to create indexes for collection %s", collection.Name())
	}
}
