package repository

import (
	"context"
	"time"

	"peakform/coach-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
	// ErrTransient marks storage failures that are worth retrying (network
	// blips, timeouts). Implementations wrap the cause with this sentinel.
	ErrTransient = RepositoryError("transient storage failure")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AddAthleteIDToCoach(ctx context.Context, coachID, athleteID primitive.ObjectID) error
	GetAthletesByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error)
	SetCoachForAthlete(ctx context.Context, athleteID, coachID primitive.ObjectID) error
}

// TrainingPlanRepository defines the interface for interacting with plan data.
type TrainingPlanRepository interface {
	Create(ctx context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error)
	GetByAthleteAndCoachID(ctx context.Context, athleteID, coachID primitive.ObjectID) ([]domain.TrainingPlan, error)
	Update(ctx context.Context, plan *domain.TrainingPlan) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status domain.PlanStatus, publishedAt *time.Time) error
}

// PlanSessionRepository defines the interface for interacting with the
// sessions of a draft plan.
type PlanSessionRepository interface {
	Create(ctx context.Context, session *domain.PlanSession) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanSession, error)
	// GetByPlanID returns all sessions of a plan ordered by week index, then
	// ordinal within the week.
	GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanSession, error)
	Update(ctx context.Context, session *domain.PlanSession) error
	Delete(ctx context.Context, id primitive.ObjectID, coachID primitive.ObjectID) error
	// UpdateDurations writes normalized durations back in bulk, keyed by
	// session ID.
	UpdateDurations(ctx context.Context, planID primitive.ObjectID, durations map[primitive.ObjectID]int) error
}

// CalendarEntryFields is the writable content of a materialized entry.
// UpsertByKey only touches the fields present here; lifecycle markers
// (deletedAt, editState) are managed through the dedicated methods.
type CalendarEntryFields struct {
	Date            *time.Time // nil leaves an existing entry's date untouched
	Discipline      string
	Title           string
	DurationMinutes int
	Detail          domain.WorkoutDetail
	Description     string
	Notes           string
}

// CalendarEntryRepository defines the interface for interacting with
// athlete calendar entries.
type CalendarEntryRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CalendarEntry, error)
	// UpsertByKey creates or updates the single entry identified by
	// (athleteID, origin, sourceID), clearing any soft-delete marker.
	// Returns the stored entry and whether it was newly created.
	UpsertByKey(ctx context.Context, athleteID primitive.ObjectID, origin, sourceID string, fields CalendarEntryFields) (*domain.CalendarEntry, bool, error)
	// FindBySourceIDs returns entries (active and soft-deleted) for the
	// given idempotency keys.
	FindBySourceIDs(ctx context.Context, athleteID primitive.ObjectID, origin string, sourceIDs []string) ([]domain.CalendarEntry, error)
	// FindActiveByOrigin returns all non-deleted entries the given origin
	// owns on the athlete's calendar.
	FindActiveByOrigin(ctx context.Context, athleteID primitive.ObjectID, origin string) ([]domain.CalendarEntry, error)
	FindByAthleteAndDateRange(ctx context.Context, athleteID primitive.ObjectID, from, to time.Time) ([]domain.CalendarEntry, error)
	SoftDeleteByID(ctx context.Context, id primitive.ObjectID, actor primitive.ObjectID, at time.Time) error
	// RestoreByID clears the soft-delete marker without touching content.
	RestoreByID(ctx context.Context, id primitive.ObjectID) error
	// Update rewrites a manually edited entry; used by the calendar
	// service, never by the engine.
	Update(ctx context.Context, entry *domain.CalendarEntry) error
}

// UploadRepository defines the interface for interacting with upload metadata.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Upload, error)
	GetBySessionID(ctx context.Context, sessionID primitive.ObjectID) (*domain.Upload, error)
}
