// internal/repository/mongo/calendar_entry_repo.go
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

const calendarEntryCollectionName = "calendar_entries"

// mongoCalendarEntryRepository implements repository.CalendarEntryRepository
type mongoCalendarEntryRepository struct {
	collection *mongo.Collection
}

// NewMongoCalendarEntryRepository creates a new CalendarEntry repository.
func NewMongoCalendarEntryRepository(db *mongo.Database) repository.CalendarEntryRepository {
	return &mongoCalendarEntryRepository{
		collection: db.Collection(calendarEntryCollectionName),
	}
}

// GetByID retrieves a single entry by its ID, soft-deleted or not.
func (r *mongoCalendarEntryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CalendarEntry, error) {
	var entry domain.CalendarEntry
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, wrapStorageErr(err)
	}
	return &entry, nil
}

// UpsertByKey creates or updates the single entry identified by
// (athleteID, origin, sourceID). The unique index on that triple makes the
// write idempotent: re-running with the same key can only ever touch the
// same document. Any soft-delete marker is cleared.
func (r *mongoCalendarEntryRepository) UpsertByKey(ctx context.Context, athleteID primitive.ObjectID, origin, sourceID string, fields repository.CalendarEntryFields) (*domain.CalendarEntry, bool, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"athleteId": athleteID,
		"origin":    origin,
		"sourceId":  sourceID,
	}

	set := bson.M{
		"discipline":      fields.Discipline,
		"title":           fields.Title,
		"durationMinutes": fields.DurationMinutes,
		"detail":          fields.Detail,
		"description":     fields.Description,
		"notes":           fields.Notes,
		"updatedAt":       now,
	}
	if fields.Date != nil {
		set["date"] = *fields.Date
	}

	update := bson.M{
		"$set":   set,
		"$unset": bson.M{"deletedAt": "", "deletedBy": ""},
		"$setOnInsert": bson.M{
			"athleteId": athleteID,
			"origin":    origin,
			"sourceId":  sourceID,
			"editState": domain.EditStateGenerated,
			"schedule":  domain.SchedulePlanned,
			"createdAt": now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, false, wrapStorageErr(err)
	}
	created := result.UpsertedCount > 0

	var entry domain.CalendarEntry
	if err := r.collection.FindOne(ctx, filter).Decode(&entry); err != nil {
		return nil, created, wrapStorageErr(err)
	}
	return &entry, created, nil
}

// FindBySourceIDs returns entries for the given idempotency keys,
// soft-deleted entries included.
func (r *mongoCalendarEntryRepository) FindBySourceIDs(ctx context.Context, athleteID primitive.ObjectID, origin string, sourceIDs []string) ([]domain.CalendarEntry, error) {
	if len(sourceIDs) == 0 {
		return []domain.CalendarEntry{}, nil
	}
	filter := bson.M{
		"athleteId": athleteID,
		"origin":    origin,
		"sourceId":  bson.M{"$in": sourceIDs},
	}
	return r.find(ctx, filter, nil)
}

// FindActiveByOrigin returns all non-deleted entries the origin owns on the
// athlete's calendar.
func (r *mongoCalendarEntryRepository) FindActiveByOrigin(ctx context.Context, athleteID primitive.ObjectID, origin string) ([]domain.CalendarEntry, error) {
	filter := bson.M{
		"athleteId": athleteID,
		"origin":    origin,
		"deletedAt": bson.M{"$exists": false},
	}
	return r.find(ctx, filter, nil)
}

// FindByAthleteAndDateRange returns the athlete's active entries with
// from <= date < to, ordered by date.
func (r *mongoCalendarEntryRepository) FindByAthleteAndDateRange(ctx context.Context, athleteID primitive.ObjectID, from, to time.Time) ([]domain.CalendarEntry, error) {
	filter := bson.M{
		"athleteId": athleteID,
		"date":      bson.M{"$gte": from, "$lt": to},
		"deletedAt": bson.M{"$exists": false},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	return r.find(ctx, filter, findOptions)
}

// SoftDeleteByID marks an entry deleted, recording actor and timestamp.
// Entries are never hard-deleted; the marker preserves audit and undo.
func (r *mongoCalendarEntryRepository) SoftDeleteByID(ctx context.Context, id primitive.ObjectID, actor primitive.ObjectID, at time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"deletedAt": at,
			"deletedBy": actor,
			"updatedAt": at,
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return wrapStorageErr(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RestoreByID clears the soft-delete marker without touching content.
func (r *mongoCalendarEntryRepository) RestoreByID(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{
		"$unset": bson.M{"deletedAt": "", "deletedBy": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return wrapStorageErr(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Update rewrites an entry after a manual edit.
func (r *mongoCalendarEntryRepository) Update(ctx context.Context, entry *domain.CalendarEntry) error {
	if entry.ID == primitive.NilObjectID {
		return errors.New("entry ID is required for update")
	}

	// The identity triple (athleteId, origin, sourceId) is immutable.
	filter := bson.M{"_id": entry.ID}
	updateDoc := bson.M{
		"$set": bson.M{
			"date":            entry.Date,
			"discipline":      entry.Discipline,
			"title":           entry.Title,
			"durationMinutes": entry.DurationMinutes,
			"detail":          entry.Detail,
			"description":     entry.Description,
			"notes":           entry.Notes,
			"editState":       entry.EditState,
			"schedule":        entry.Schedule,
			"startAt":         entry.StartAt,
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

func (r *mongoCalendarEntryRepository) find(ctx context.Context, filter bson.M, findOptions *options.FindOptions) ([]domain.CalendarEntry, error) {
	var entries []domain.CalendarEntry

	var cursor *mongo.Cursor
	var err error
	if findOptions != nil {
		cursor, err = r.collection.Find(ctx, filter, findOptions)
	} else {
		cursor, err = r.collection.Find(ctx, filter)
	}
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, wrapStorageErr(err)
	}
	if err = cursor.Err(); err != nil {
		return nil, wrapStorageErr(err)
	}
	return entries, nil
}

// EnsureCalendarEntryIndexes creates necessary indexes. Call during startup.
func EnsureCalendarEntryIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// The idempotency key: exactly one entry per source session,
			// active or soft-deleted.
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "origin", Value: 1}, {Key: "sourceId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Calendar view query
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
