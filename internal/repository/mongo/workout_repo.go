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

const workoutCollectionName = "workouts"

// mongoWorkoutRepository implements repository.WorkoutRepository
type mongoWorkoutRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutRepository creates a new Workout repository backed by MongoDB.
func NewMongoWorkoutRepository(db *mongo.Database) repository.WorkoutRepository {
	return &mongoWorkoutRepository{
		collection: db.Collection(workoutCollectionName),
	}
}

// Create inserts a new workout.
func (r *mongoWorkoutRepository) Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error) {
	if workout.SessionID == primitive.NilObjectID || workout.Title == "" {
		return primitive.NilObjectID, errors.New("workout requires sessionId and title")
	}
	workout.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	workout.CreatedAt = now
	workout.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, workout)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted workout ID")
	}
	return insertedID, nil
}

// GetBySessionID retrieves the workout belonging to one session (1:1).
func (r *mongoWorkoutRepository) GetBySessionID(ctx context.Context, sessionID primitive.ObjectID) (*domain.Workout, error) {
	var workout domain.Workout
	err := r.collection.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&workout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// SetActualDuration records the measured duration at finalization. The only
// mutation a workout row ever sees.
func (r *mongoWorkoutRepository) SetActualDuration(ctx context.Context, id primitive.ObjectID, minutes int) error {
	update := bson.M{
		"$set": bson.M{
			"actualDurationMin": minutes,
			"updatedAt":         time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteBySessionID removes the workout of one session (rollback path only).
func (r *mongoWorkoutRepository) DeleteBySessionID(ctx context.Context, sessionID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"sessionId": sessionID})
	return err
}

// EnsureWorkoutIndexes creates necessary indexes for the workouts collection.
func EnsureWorkoutIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One workout per session.
			Keys:    bson.D{{Key: "sessionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.WithError(err).Warnf("failed to create indexes for collection %s", collection.Name())
	}
}
