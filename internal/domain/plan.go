// internal/domain/plan.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WeekStart is the day a plan week begins on.
type WeekStart string

const (
	WeekStartMonday WeekStart = "monday"
	WeekStartSunday WeekStart = "sunday"
)

// PlanStatus tracks the plan lifecycle. Only published plans can be
// materialized onto the athlete's calendar.
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusPublished PlanStatus = "published"
	PlanStatusArchived  PlanStatus = "archived"
)

// DefaultLongSessionThresholdMinutes applies when a plan does not set its own.
const DefaultLongSessionThresholdMinutes = 90

// PlanSetup holds the scheduling parameters of a plan. Sessions address
// days as (weekIndex, dayOfWeek); the setup is what pins those onto real
// calendar dates.
type PlanSetup struct {
	WeekStart WeekStart `bson:"weekStart" json:"weekStart"`
	// StartDate anchors week 0. When absent, CompletionDate is required and
	// weeks are counted backwards from the event week (legacy scheme).
	StartDate      *time.Time `bson:"startDate,omitempty" json:"startDate,omitempty"`
	CompletionDate *time.Time `bson:"completionDate,omitempty" json:"completionDate,omitempty"`
	WeeksToEvent   int        `bson:"weeksToEvent" json:"weeksToEvent"` // 1-52
	TimeZone       string     `bson:"timeZone" json:"timeZone"`         // IANA name

	// LongSessionDay marks one weekday (raw 0-6, 0 = Sunday) whose sessions
	// are rounded to 10-minute increments regardless of duration.
	LongSessionDay              *int `bson:"longSessionDay,omitempty" json:"longSessionDay,omitempty"`
	LongSessionThresholdMinutes int  `bson:"longSessionThresholdMinutes,omitempty" json:"longSessionThresholdMinutes,omitempty"`
}

// LongThreshold returns the configured threshold or the default.
func (s PlanSetup) LongThreshold() int {
	if s.LongSessionThresholdMinutes > 0 {
		return s.LongSessionThresholdMinutes
	}
	return DefaultLongSessionThresholdMinutes
}

// TrainingPlan represents a multi-week plan a coach authors for an athlete.
type TrainingPlan struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"`
	AthleteID   primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	Name        string             `bson:"name" json:"name"` // e.g., "Marathon Build: 12 Weeks"
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Status      PlanStatus         `bson:"status" json:"status"`
	Setup       PlanSetup          `bson:"setup" json:"setup"`

	// LockedWeeks lists week indexes the coach has frozen; sessions in a
	// locked week reject edits.
	LockedWeeks []int      `bson:"lockedWeeks,omitempty" json:"lockedWeeks,omitempty"`
	PublishedAt *time.Time `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// IsWeekLocked reports whether the given week index is frozen for edits.
func (p *TrainingPlan) IsWeekLocked(weekIndex int) bool {
	for _, w := range p.LockedWeeks {
		if w == weekIndex {
			return true
		}
	}
	return false
}
