// internal/engine/materializer.go
package engine

import (
	"context"
	"errors"
	"time"

	"peakform/coach-app/internal/detail"
	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Materializer reconciles a published plan (desired state) against the
// athlete's calendar (current state). Every upsert is keyed by the
// session's stable source ID and the soft-delete set is recomputed from
// scratch each run, so the whole operation is idempotent and safe to
// re-run or interleave.
type Materializer struct {
	plans    repository.TrainingPlanRepository
	sessions repository.PlanSessionRepository
	entries  repository.CalendarEntryRepository
	detail   detail.Validator
	retry    RetryPolicy
	now      func() time.Time
}

// NewMaterializer creates a new Materializer.
func NewMaterializer(
	plans repository.TrainingPlanRepository,
	sessions repository.PlanSessionRepository,
	entries repository.CalendarEntryRepository,
	validator detail.Validator,
	retry RetryPolicy,
) *Materializer {
	return &Materializer{
		plans:    plans,
		sessions: sessions,
		entries:  entries,
		detail:   validator,
		retry:    retry,
		now:      time.Now,
	}
}

// MaterializeResult reports what one materialization run wrote. Restored
// counts manually-edited entries whose soft-delete marker was cleared
// without touching their content; content writes count as Upserted.
type MaterializeResult struct {
	Upserted    int `json:"upserted"`
	Restored    int `json:"restored"`
	SoftDeleted int `json:"softDeleted"`
}

// Materialize converts the plan's sessions into dated calendar entries and
// soft-deletes entries whose sessions are gone. The operation is retried
// exactly once, as a whole, when it fails with a transient storage error;
// every other failure surfaces immediately.
func (m *Materializer) Materialize(ctx context.Context, planID, actor primitive.ObjectID) (MaterializeResult, error) {
	var res MaterializeResult
	err := m.retry.Do(ctx, func(ctx context.Context) error {
		r, err := m.run(ctx, planID, actor)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	return res, err
}

func (m *Materializer) run(ctx context.Context, planID, actor primitive.ObjectID) (MaterializeResult, error) {
	var res MaterializeResult

	// 1. Load the plan and gate on its lifecycle state.
	plan, err := m.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return res, NotFoundf("plan %s not found", planID.Hex())
		}
		return res, err
	}
	if plan.Status != domain.PlanStatusPublished {
		return res, Conflictf("plan %s is %s, only published plans can be materialized", planID.Hex(), plan.Status)
	}
	if err := ValidateSetup(plan.Setup); err != nil {
		return res, err
	}

	// 2. Load the desired state, ordered by week then ordinal.
	sessions, err := m.sessions.GetByPlanID(ctx, planID)
	if err != nil {
		return res, err
	}

	// 3. Validate every session before writing anything. The validation
	// pass is all-or-nothing; a single bad detail aborts the run with no
	// partial writes.
	dates := make([]time.Time, len(sessions))
	for i, s := range sessions {
		if err := m.detail.Validate(s.Detail); err != nil {
			return res, InvalidErr("session "+s.ID.Hex()+" has invalid detail", err)
		}
		date, err := ResolveSessionDate(plan.Setup, s.WeekIndex, s.DayOfWeek)
		if err != nil {
			return res, err
		}
		dates[i] = date
	}

	// 4. Load the current state for the desired keys, soft-deleted entries
	// included: a session reappearing after removal must restore its old
	// entry, not mint a duplicate.
	desired := make(map[string]struct{}, len(sessions))
	sourceIDs := make([]string, len(sessions))
	for i, s := range sessions {
		sourceIDs[i] = s.SourceID()
		desired[sourceIDs[i]] = struct{}{}
	}
	existing, err := m.entries.FindBySourceIDs(ctx, plan.AthleteID, domain.EntryOriginPlanEngine, sourceIDs)
	if err != nil {
		return res, err
	}
	current := make(map[string]*domain.CalendarEntry, len(existing))
	for i := range existing {
		current[existing[i].SourceID] = &existing[i]
	}

	// 5. Upsert per session.
	for i := range sessions {
		s := &sessions[i]
		entry := current[s.SourceID()]

		if entry != nil && !entry.EngineWritable() {
			// Manual edits are immutable to the engine; the only permitted
			// write is clearing the soft-delete marker.
			if entry.IsDeleted() {
				if err := m.entries.RestoreByID(ctx, entry.ID); err != nil {
					return res, err
				}
				res.Restored++
			}
			continue
		}

		fields := repository.CalendarEntryFields{
			Discipline:      s.Discipline,
			Title:           s.Title(),
			DurationMinutes: s.DurationMinutes,
			Detail:          s.Detail,
			Description:     m.detail.Render(s.Detail),
			Notes:           s.Notes,
		}
		// An entry the athlete has pinned to an explicit time keeps its
		// date; everything else follows the plan.
		if entry == nil || entry.IsDeleted() || !entry.DateProtected() {
			d := dates[i]
			fields.Date = &d
		}

		if _, _, err := m.entries.UpsertByKey(ctx, plan.AthleteID, domain.EntryOriginPlanEngine, s.SourceID(), fields); err != nil {
			return res, err
		}
		res.Upserted++
	}

	// 6. Soft-delete active entries whose session left the plan. Recomputed
	// from scratch every run; never a hard delete. The sweep spans every
	// engine-origin entry of the athlete, not just this plan's: a single
	// current plan drives an athlete's calendar at a time.
	active, err := m.entries.FindActiveByOrigin(ctx, plan.AthleteID, domain.EntryOriginPlanEngine)
	if err != nil {
		return res, err
	}
	deletedAt := m.now().UTC()
	for i := range active {
		if _, ok := desired[active[i].SourceID]; ok {
			continue
		}
		if err := m.entries.SoftDeleteByID(ctx, active[i].ID, actor, deletedAt); err != nil {
			return res, err
		}
		res.SoftDeleted++
	}

	return res, nil
}
