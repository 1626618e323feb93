package domain

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanSession is a single session inside a draft plan, addressed by
// (weekIndex, dayOfWeek) rather than by a concrete date. Materialization
// turns it into a dated CalendarEntry.
type PlanSession struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID     primitive.ObjectID `bson:"planId" json:"planId"`
	CoachID    primitive.ObjectID `bson:"coachId" json:"coachId"`     // Denormalized for easier query/auth
	AthleteID  primitive.ObjectID `bson:"athleteId" json:"athleteId"` // Denormalized
	WeekIndex  int                `bson:"weekIndex" json:"weekIndex"` // 0-based
	DayOfWeek  int                `bson:"dayOfWeek" json:"dayOfWeek"` // raw 0-6, 0 = Sunday
	Ordinal    int                `bson:"ordinal" json:"ordinal"`     // order within the week
	Discipline string             `bson:"discipline" json:"discipline"` // e.g., "Run", "Bike"
	Type       string             `bson:"type" json:"type"`             // e.g., "Intervals", "Long Run"

	// DurationMinutes is the planned load. Kept as authored; publishing
	// normalizes it to human-friendly increments.
	DurationMinutes int                 `bson:"durationMinutes" json:"durationMinutes"`
	Locked          bool                `bson:"locked" json:"locked"` // locked sessions are never rebalanced or edited
	Detail          WorkoutDetail       `bson:"detail" json:"detail"`
	Notes           string              `bson:"notes,omitempty" json:"notes,omitempty"`
	AttachmentID    *primitive.ObjectID `bson:"attachmentId,omitempty" json:"attachmentId,omitempty"` // briefing media upload
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// sourceIDPrefix namespaces calendar-entry source IDs minted from plan
// sessions.
const sourceIDPrefix = "session:"

// SourceID derives the stable idempotency key linking a materialized
// calendar entry back to this session. It must never change for the
// lifetime of the session.
func (s *PlanSession) SourceID() string {
	return sourceIDPrefix + s.ID.Hex()
}

// SessionIDFromSourceID inverts SourceID.
func SessionIDFromSourceID(sourceID string) (primitive.ObjectID, error) {
	hex, ok := strings.CutPrefix(sourceID, sourceIDPrefix)
	if !ok {
		return primitive.NilObjectID, errors.New("source ID is not session-derived")
	}
	return primitive.ObjectIDFromHex(hex)
}

// Title computes the calendar entry title for this session.
func (s *PlanSession) Title() string {
	if s.Type == "" {
		return s.Discipline
	}
	return s.Discipline + ": " + s.Type
}
