// internal/domain/calendar_entry.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntryOrigin tags who created a calendar entry. The materialization engine
// only ever touches entries carrying its own origin tag.
const EntryOriginPlanEngine = "plan-engine"

// EntryEditState records whether the engine still owns an entry's content.
// A single typed state; there is deliberately no secondary flag or tag to
// cross-check against.
type EntryEditState string

const (
	EditStateGenerated      EntryEditState = "generated"
	EditStateManuallyEdited EntryEditState = "manually-edited"
)

// EntrySchedule distinguishes entries that only carry a calendar date from
// entries the athlete or coach has pinned to an explicit start time.
type EntrySchedule string

const (
	SchedulePlanned EntrySchedule = "planned"
	ScheduleTimed   EntrySchedule = "timed"
)

// CalendarEntry is a dated, persisted session on an athlete's calendar.
// Entries produced by the materialization engine carry
// Origin == EntryOriginPlanEngine and a SourceID pointing back to the plan
// session they were generated from; exactly one entry (active or
// soft-deleted) exists per (athleteId, origin, sourceId).
type CalendarEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AthleteID primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	Origin    string             `bson:"origin" json:"origin"`
	SourceID  string             `bson:"sourceId" json:"sourceId"`

	// Date is a calendar day key: midnight in the plan's time zone. The
	// engine never assigns a time of day.
	Date            time.Time     `bson:"date" json:"date"`
	Discipline      string        `bson:"discipline" json:"discipline"`
	Title           string        `bson:"title" json:"title"`
	DurationMinutes int           `bson:"durationMinutes" json:"durationMinutes"`
	Detail          WorkoutDetail `bson:"detail" json:"detail"`
	Description     string        `bson:"description,omitempty" json:"description,omitempty"` // rendered from Detail
	Notes           string        `bson:"notes,omitempty" json:"notes,omitempty"`

	EditState EntryEditState `bson:"editState" json:"editState"`
	Schedule  EntrySchedule  `bson:"schedule" json:"schedule"`
	// StartAt is set when Schedule == ScheduleTimed.
	StartAt *time.Time `bson:"startAt,omitempty" json:"startAt,omitempty"`

	DeletedAt *time.Time          `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	DeletedBy *primitive.ObjectID `bson:"deletedBy,omitempty" json:"deletedBy,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// EngineWritable is the single capability check the engine performs before
// rewriting an entry's content. Manually-edited entries may only have their
// soft-delete marker cleared.
func (e *CalendarEntry) EngineWritable() bool {
	return e.EditState == EditStateGenerated
}

// DateProtected reports whether re-materialization must keep the entry's
// current date. An entry pinned to an explicit start time stays where the
// athlete put it.
func (e *CalendarEntry) DateProtected() bool {
	return e.Schedule == ScheduleTimed
}

// IsDeleted reports whether the entry is currently soft-deleted.
func (e *CalendarEntry) IsDeleted() bool {
	return e.DeletedAt != nil
}
