// internal/repository/mongo/plan_session_repo.go
package mongo

import (
	"context"
	"errors"
	"time"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const planSessionCollectionName = "plan_sessions"

// mongoPlanSessionRepository implements repository.PlanSessionRepository
type mongoPlanSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanSessionRepository creates a new PlanSession repository.
func NewMongoPlanSessionRepository(db *mongo.Database) repository.PlanSessionRepository {
	return &mongoPlanSessionRepository{
		collection: db.Collection(planSessionCollectionName),
	}
}

// Create inserts a new plan session.
func (r *mongoPlanSessionRepository) Create(ctx context.Context, session *domain.PlanSession) (primitive.ObjectID, error) {
	if session.PlanID == primitive.NilObjectID || session.CoachID == primitive.NilObjectID || session.AthleteID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("session requires planId, coachId, and athleteId")
	}
	session.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return primitive.NilObjectID, wrapStorageErr(err)
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted session ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single session by its ID.
func (r *mongoPlanSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanSession, error) {
	var session domain.PlanSession
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, wrapStorageErr(err)
	}
	return &session, nil
}

// GetByPlanID retrieves all sessions of a plan, ordered by week index, then
// ordinal, then day of week. This is the desired-state ordering the
// materializer relies on.
func (r *mongoPlanSessionRepository) GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanSession, error) {
	var sessions []domain.PlanSession
	filter := bson.M{"planId": planID}
	findOptions := options.Find().SetSort(bson.D{
		{Key: "weekIndex", Value: 1},
		{Key: "ordinal", Value: 1},
		{Key: "dayOfWeek", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, wrapStorageErr(err)
	}
	if err = cursor.Err(); err != nil {
		return nil, wrapStorageErr(err)
	}
	return sessions, nil
}

// Update rewrites the editable fields of a session.
func (r *mongoPlanSessionRepository) Update(ctx context.Context, session *domain.PlanSession) error {
	if session.ID == primitive.NilObjectID {
		return errors.New("session ID is required for update")
	}

	// PlanID, CoachID, AthleteID are not updatable; moving a session to a
	// different plan is not a supported operation.
	filter := bson.M{"_id": session.ID}
	updateDoc := bson.M{
		"$set": bson.M{
			"weekIndex":       session.WeekIndex,
			"dayOfWeek":       session.DayOfWeek,
			"ordinal":         session.Ordinal,
			"discipline":      session.Discipline,
			"type":            session.Type,
			"durationMinutes": session.DurationMinutes,
			"locked":          session.Locked,
			"detail":          session.Detail,
			"notes":           session.Notes,
			"attachmentId":    session.AttachmentID,
			"updatedAt":       time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return wrapStorageErr(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a session, scoped to the owning coach.
func (r *mongoPlanSessionRepository) Delete(ctx context.Context, id primitive.ObjectID, coachID primitive.ObjectID) error {
	if id == primitive.NilObjectID || coachID == primitive.NilObjectID {
		return errors.New("session ID and coach ID are required for deletion")
	}

	// Filter ensures the session exists AND belongs to the specified coach.
	filter := bson.M{
		"_id":     id,
		"coachId": coachID,
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return wrapStorageErr(err)
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateDurations writes normalized durations back in bulk.
func (r *mongoPlanSessionRepository) UpdateDurations(ctx context.Context, planID primitive.ObjectID, durations map[primitive.ObjectID]int) error {
	if len(durations) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(durations))
	now := time.Now().UTC()
	for id, minutes := range durations {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id, "planId": planID}).
			SetUpdate(bson.M{"$set": bson.M{"durationMinutes": minutes, "updatedAt": now}}))
	}

	_, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return wrapStorageErr(err)
}

// EnsurePlanSessionIndexes creates necessary indexes. Call during startup.
func EnsurePlanSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Main query pattern: all sessions of a plan in week order
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "weekIndex", Value: 1}, {Key: "ordinal", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
