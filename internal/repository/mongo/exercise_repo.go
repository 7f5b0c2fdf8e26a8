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

const exerciseCollectionName = "exercises"

// mongoExerciseRepository implements repository.ExerciseRepository
type mongoExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoExerciseRepository creates a new Exercise repository backed by MongoDB.
func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	return &mongoExerciseRepository{
		collection: db.Collection(exerciseCollectionName),
	}
}

// InsertMany bulk-creates the exercise rows seeded at session creation.
func (r *mongoExerciseRepository) InsertMany(ctx context.Context, exercises []domain.Exercise) error {
	if len(exercises) == 0 {
		return errors.New("no exercises to insert")
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(exercises))
	for i := range exercises {
		if exercises[i].WorkoutID == primitive.NilObjectID || exercises[i].SessionID == primitive.NilObjectID {
			return errors.New("exercise requires sessionId and workoutId")
		}
		if exercises[i].ID == primitive.NilObjectID {
			exercises[i].ID = primitive.NewObjectID()
		}
		exercises[i].CreatedAt = now
		exercises[i].UpdatedAt = now
		docs[i] = exercises[i]
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// GetByID retrieves an exercise row by its ID.
func (r *mongoExerciseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	var exercise domain.Exercise
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&exercise)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &exercise, nil
}

// GetByWorkoutID retrieves all exercises of one workout in plan order.
func (r *mongoExerciseRepository) GetByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) ([]domain.Exercise, error) {
	return r.list(ctx, bson.M{"workoutId": workoutID})
}

// GetBySessionID retrieves all exercises of one session in plan order.
func (r *mongoExerciseRepository) GetBySessionID(ctx context.Context, sessionID primitive.ObjectID) ([]domain.Exercise, error) {
	return r.list(ctx, bson.M{"sessionId": sessionID})
}

func (r *mongoExerciseRepository) list(ctx context.Context, filter bson.M) ([]domain.Exercise, error) {
	var exercises []domain.Exercise
	findOptions := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return exercises, nil
}

// UpdateVersioned is the single-row compare-and-swap behind the optimistic
// concurrency controller. The filter matches on both _id and the expected
// payloadVersion, so the write succeeds only if nobody else applied a
// command since the caller read the row. The version bump happens in the
// same atomic update.
func (r *mongoExerciseRepository) UpdateVersioned(
	ctx context.Context,
	id primitive.ObjectID,
	expectedVersion int,
	payload domain.Payload,
	status domain.ExerciseStatus,
	derived domain.DerivedFields,
) (*domain.Exercise, error) {
	filter := bson.M{
		"_id":            id,
		"payloadVersion": expectedVersion,
	}
	update := bson.M{
		"$set": bson.M{
			"payload":     payload,
			"status":      status,
			"exerciseRpe": derived.ExerciseRPE,
			"totalReps":   derived.TotalReps,
			"volume":      derived.Volume,
			"durationSec": derived.DurationSec,
			"completedAt": derived.CompletedAt,
			"updatedAt":   time.Now().UTC(),
		},
		"$inc": bson.M{"payloadVersion": 1},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Exercise
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// No document matched: either the row is gone or the version moved on.
	_, getErr := r.GetByID(ctx, id)
	if errors.Is(getErr, repository.ErrNotFound) {
		return nil, repository.ErrNotFound
	}
	if getErr != nil {
		return nil, getErr
	}
	return nil, repository.ErrVersionConflict
}

// DeleteBySessionID removes all exercise rows of one session. Used only when
// rolling back a partially created session.
func (r *mongoExerciseRepository) DeleteBySessionID(ctx context.Context, sessionID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"sessionId": sessionID})
	return err
}

// EnsureExerciseIndexes creates necessary indexes for the exercises collection.
func EnsureExerciseIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Exercises are addressed by (workout id, order).
			Keys:    bson.D{{Key: "workoutId", Value: 1}, {Key: "order", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index(),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.WithError(err).Warnf("failed to create indexes for collection %s", collection.Name())
	}
}
