package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"peakform/coach-app/internal/detail"
	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- In-memory fakes ---

type fakePlanRepo struct {
	plans map[primitive.ObjectID]*domain.TrainingPlan
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[primitive.ObjectID]*domain.TrainingPlan)}
}

func (f *fakePlanRepo) Create(_ context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error) {
	plan.ID = primitive.NewObjectID()
	f.plans[plan.ID] = plan
	return plan.ID, nil
}

func (f *fakePlanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error) {
	plan, ok := f.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *plan
	return &cp, nil
}

func (f *fakePlanRepo) GetByAthleteAndCoachID(_ context.Context, _, _ primitive.ObjectID) ([]domain.TrainingPlan, error) {
	return nil, nil
}

func (f *fakePlanRepo) Update(_ context.Context, plan *domain.TrainingPlan) error {
	f.plans[plan.ID] = plan
	return nil
}

func (f *fakePlanRepo) SetStatus(_ context.Context, id primitive.ObjectID, status domain.PlanStatus, publishedAt *time.Time) error {
	plan, ok := f.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	plan.Status = status
	if publishedAt != nil {
		plan.PublishedAt = publishedAt
	}
	return nil
}

type fakeSessionRepo struct {
	sessions []domain.PlanSession
}

func (f *fakeSessionRepo) Create(_ context.Context, s *domain.PlanSession) (primitive.ObjectID, error) {
	s.ID = primitive.NewObjectID()
	f.sessions = append(f.sessions, *s)
	return s.ID, nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.PlanSession, error) {
	for i := range f.sessions {
		if f.sessions[i].ID == id {
			cp := f.sessions[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSessionRepo) GetByPlanID(_ context.Context, planID primitive.ObjectID) ([]domain.PlanSession, error) {
	var out []domain.PlanSession
	for _, s := range f.sessions {
		if s.PlanID == planID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) Update(_ context.Context, s *domain.PlanSession) error {
	for i := range f.sessions {
		if f.sessions[i].ID == s.ID {
			f.sessions[i] = *s
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeSessionRepo) Delete(_ context.Context, id, _ primitive.ObjectID) error {
	for i := range f.sessions {
		if f.sessions[i].ID == id {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeSessionRepo) UpdateDurations(_ context.Context, _ primitive.ObjectID, durations map[primitive.ObjectID]int) error {
	for i := range f.sessions {
		if d, ok := durations[f.sessions[i].ID]; ok {
			f.sessions[i].DurationMinutes = d
		}
	}
	return nil
}

// fakeEntryRepo mimics the upsert-by-key and soft-delete semantics of the
// Mongo repository. Setting failUpserts makes the next N UpsertByKey calls
// fail with a transient error.
type fakeEntryRepo struct {
	entries     map[primitive.ObjectID]*domain.CalendarEntry
	failUpserts int
	upsertCalls int
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{entries: make(map[primitive.ObjectID]*domain.CalendarEntry)}
}

func (f *fakeEntryRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.CalendarEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEntryRepo) bySourceID(athleteID primitive.ObjectID, origin, sourceID string) *domain.CalendarEntry {
	for _, e := range f.entries {
		if e.AthleteID == athleteID && e.Origin == origin && e.SourceID == sourceID {
			return e
		}
	}
	return nil
}

func (f *fakeEntryRepo) UpsertByKey(_ context.Context, athleteID primitive.ObjectID, origin, sourceID string, fields repository.CalendarEntryFields) (*domain.CalendarEntry, bool, error) {
	f.upsertCalls++
	if f.failUpserts > 0 {
		f.failUpserts--
		return nil, false, fmt.Errorf("%w: connection reset", repository.ErrTransient)
	}

	now := time.Now().UTC()
	e := f.bySourceID(athleteID, origin, sourceID)
	created := e == nil
	if created {
		e = &domain.CalendarEntry{
			ID:        primitive.NewObjectID(),
			AthleteID: athleteID,
			Origin:    origin,
			SourceID:  sourceID,
			EditState: domain.EditStateGenerated,
			Schedule:  domain.SchedulePlanned,
			CreatedAt: now,
		}
		f.entries[e.ID] = e
	}
	if fields.Date != nil {
		e.Date = *fields.Date
	}
	e.Discipline = fields.Discipline
	e.Title = fields.Title
	e.DurationMinutes = fields.DurationMinutes
	e.Detail = fields.Detail
	e.Description = fields.Description
	e.Notes = fields.Notes
	e.DeletedAt = nil
	e.DeletedBy = nil
	e.UpdatedAt = now

	cp := *e
	return &cp, created, nil
}

func (f *fakeEntryRepo) FindBySourceIDs(_ context.Context, athleteID primitive.ObjectID, origin string, sourceIDs []string) ([]domain.CalendarEntry, error) {
	keys := make(map[string]struct{}, len(sourceIDs))
	for _, id := range sourceIDs {
		keys[id] = struct{}{}
	}
	var out []domain.CalendarEntry
	for _, e := range f.entries {
		if e.AthleteID != athleteID || e.Origin != origin {
			continue
		}
		if _, ok := keys[e.SourceID]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEntryRepo) FindActiveByOrigin(_ context.Context, athleteID primitive.ObjectID, origin string) ([]domain.CalendarEntry, error) {
	var out []domain.CalendarEntry
	for _, e := range f.entries {
		if e.AthleteID == athleteID && e.Origin == origin && e.DeletedAt == nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEntryRepo) FindByAthleteAndDateRange(_ context.Context, athleteID primitive.ObjectID, from, to time.Time) ([]domain.CalendarEntry, error) {
	var out []domain.CalendarEntry
	for _, e := range f.entries {
		if e.AthleteID == athleteID && e.DeletedAt == nil && !e.Date.Before(from) && e.Date.Before(to) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEntryRepo) SoftDeleteByID(_ context.Context, id, actor primitive.ObjectID, at time.Time) error {
	e, ok := f.entries[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.DeletedAt = &at
	e.DeletedBy = &actor
	return nil
}

func (f *fakeEntryRepo) RestoreByID(_ context.Context, id primitive.ObjectID) error {
	e, ok := f.entries[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.DeletedAt = nil
	e.DeletedBy = nil
	return nil
}

func (f *fakeEntryRepo) Update(_ context.Context, entry *domain.CalendarEntry) error {
	if _, ok := f.entries[entry.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *entry
	f.entries[entry.ID] = &cp
	return nil
}

// --- Test fixture ---

type materializerFixture struct {
	plans    *fakePlanRepo
	sessions *fakeSessionRepo
	entries  *fakeEntryRepo
	eng      *Materializer
	plan     *domain.TrainingPlan
	actor    primitive.ObjectID
}

func validDetail() domain.WorkoutDetail {
	return domain.WorkoutDetail{
		Summary: "Steady aerobic work",
		Steps: []domain.DetailStep{
			{Phase: "warmup", Description: "easy spin", DurationMinutes: 10},
			{Phase: "main", Description: "steady Z2", DurationMinutes: 40},
		},
	}
}

func newFixture(t *testing.T) *materializerFixture {
	t.Helper()

	start := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC) // a Monday
	plan := &domain.TrainingPlan{
		CoachID:   primitive.NewObjectID(),
		AthleteID: primitive.NewObjectID(),
		Name:      "Spring Build",
		Status:    domain.PlanStatusPublished,
		Setup: domain.PlanSetup{
			WeekStart: domain.WeekStartMonday,
			StartDate: &start,
			TimeZone:  "UTC",
		},
	}

	f := &materializerFixture{
		plans:    newFakePlanRepo(),
		sessions: &fakeSessionRepo{},
		entries:  newFakeEntryRepo(),
		actor:    plan.CoachID,
	}
	_, err := f.plans.Create(context.Background(), plan)
	require.NoError(t, err)
	f.plan = plan

	retry := RetryPolicy{Attempts: 2, Backoff: time.Millisecond, Retryable: IsTransient}
	f.eng = NewMaterializer(f.plans, f.sessions, f.entries, detail.NewValidator(), retry)
	return f
}

func (f *materializerFixture) addSession(t *testing.T, weekIndex, dayOfWeek, minutes int) *domain.PlanSession {
	t.Helper()
	s := &domain.PlanSession{
		PlanID:          f.plan.ID,
		CoachID:         f.plan.CoachID,
		AthleteID:       f.plan.AthleteID,
		WeekIndex:       weekIndex,
		DayOfWeek:       dayOfWeek,
		Discipline:      "Run",
		Type:            "Endurance",
		DurationMinutes: minutes,
		Detail:          validDetail(),
	}
	_, err := f.sessions.Create(context.Background(), s)
	require.NoError(t, err)
	return s
}

func (f *materializerFixture) entryFor(s *domain.PlanSession) *domain.CalendarEntry {
	return f.entries.bySourceID(f.plan.AthleteID, domain.EntryOriginPlanEngine, s.SourceID())
}

// --- Tests ---

func TestMaterialize_CreatesDatedEntries(t *testing.T) {
	f := newFixture(t)
	s1 := f.addSession(t, 0, 2, 60) // Tuesday of week 0
	s2 := f.addSession(t, 1, 6, 90) // Saturday of week 1

	res, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Upserted)
	assert.Zero(t, res.SoftDeleted)

	e1 := f.entryFor(s1)
	require.NotNil(t, e1)
	assert.Equal(t, time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC), e1.Date)
	assert.Equal(t, "Run: Endurance", e1.Title)
	assert.Equal(t, 60, e1.DurationMinutes)
	assert.Equal(t, domain.EditStateGenerated, e1.EditState)
	assert.Equal(t, domain.SchedulePlanned, e1.Schedule)
	assert.Contains(t, e1.Description, "Steady aerobic work")

	e2 := f.entryFor(s2)
	require.NotNil(t, e2)
	assert.Equal(t, time.Date(2026, time.January, 17, 0, 0, 0, 0, time.UTC), e2.Date)
}

func TestMaterialize_RerunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(t, 0, 2, 60)

	_, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)
	firstID := f.entryFor(s).ID

	res, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)
	assert.Zero(t, res.SoftDeleted)

	// Same entry, not a duplicate.
	assert.Equal(t, firstID, f.entryFor(s).ID)
	assert.Len(t, f.entries.entries, 1)
}

func TestMaterialize_UnpublishedPlanConflicts(t *testing.T) {
	f := newFixture(t)
	f.plan.Status = domain.PlanStatusDraft
	require.NoError(t, f.plans.Update(context.Background(), f.plan))

	_, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	assert.Equal(t, FaultConflict, Classify(err))
}

func TestMaterialize_UnknownPlanNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Materialize(context.Background(), primitive.NewObjectID(), f.actor)
	assert.Equal(t, FaultNotFound, Classify(err))
}

func TestMaterialize_InvalidDetailAbortsWithoutWrites(t *testing.T) {
	f := newFixture(t)
	f.addSession(t, 0, 2, 60)
	bad := f.addSession(t, 0, 4, 45)
	bad.Detail = domain.WorkoutDetail{} // no summary, no steps
	require.NoError(t, f.sessions.Update(context.Background(), bad))

	_, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	assert.Equal(t, FaultValidation, Classify(err))

	// All-or-nothing: the valid session was not written either.
	assert.Empty(t, f.entries.entries)
	assert.Zero(t, f.entries.upsertCalls)
}

func TestMaterialize_ManualEditIsPreserved(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(t, 0, 2, 60)

	_, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)

	// The athlete renames the entry.
	e := f.entryFor(s)
	e.Title = "My own spin"
	e.EditState = domain.EditStateManuallyEdited

	res, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)
	assert.Zero(t, res.Upserted)
	assert.Zero(t, res.Restored, "an active manual edit needs no restore")

	assert.Equal(t, "My own spin", f.entryFor(s).Title)
}

func TestMaterialize_RemovedSessionSoftDeletes(t *testing.T) {
	f := newFixture(t)
	keep := f.addSession(t, 0, 2, 60)
	drop := f.addSession(t, 0, 4, 45)

	_, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)

	require.NoError(t, f.sessions.Delete(context.Background(), drop.ID, f.plan.CoachID))

	res, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)
	assert.Equal(t, 1, res.SoftDeleted)

	dropped := f.entryFor(drop)
	require.NotNil(t, dropped, "soft delete must not remove the record")
	assert.True(t, dropped.IsDeleted())
	require.NotNil(t, dropped.DeletedBy)
	assert.Equal(t, f.actor, *dropped.DeletedBy)

	assert.False(t, f.entryFor(keep).IsDeleted())

	// A third run sees nothing left to delete.
	res, err = f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)
	assert.Zero(t, res.SoftDeleted)
}

func TestMaterialize_ReappearingSessionRestoresEntry(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(t, 0, 2, 60)

	_, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)
	originalID := f.entryFor(s).ID

	// Session leaves the plan, entry gets soft-deleted.
	require.NoError(t, f.sessions.Delete(context.Background(), s.ID, f.plan.CoachID))
	_, err = f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)
	require.True(t, f.entryFor(s).IsDeleted())

	// Same session ID comes back.
	f.sessions.sessions = append(f.sessions.sessions, *s)
	res, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)

	restored := f.entryFor(s)
	assert.False(t, restored.IsDeleted())
	assert.Equal(t, originalID, restored.ID, "restore must reuse the old entry")
	assert.Len(t, f.entries.entries, 1)
}

func TestMaterialize_DeletedManualEditOnlyRestores(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(t, 0, 2, 60)

	_, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)

	e := f.entryFor(s)
	e.Title = "My own spin"
	e.EditState = domain.EditStateManuallyEdited
	now := time.Now().UTC()
	e.DeletedAt = &now
	e.DeletedBy = &f.actor

	res, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)
	assert.Zero(t, res.Upserted, "no content may be written")
	assert.Equal(t, 1, res.Restored)

	restored := f.entryFor(s)
	assert.False(t, restored.IsDeleted())
	assert.Equal(t, "My own spin", restored.Title, "restore must not rewrite content")
}

func TestMaterialize_TimedEntryKeepsItsDate(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(t, 0, 2, 60)

	_, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)

	// The athlete pins the entry to an explicit start time on another day,
	// without editing content. Content stays engine-owned.
	e := f.entryFor(s)
	pinned := time.Date(2026, time.January, 9, 7, 30, 0, 0, time.UTC)
	e.Date = time.Date(2026, time.January, 9, 0, 0, 0, 0, time.UTC)
	e.StartAt = &pinned
	e.Schedule = domain.ScheduleTimed

	// Coach bumps the duration and re-materializes.
	s.DurationMinutes = 75
	require.NoError(t, f.sessions.Update(context.Background(), s))

	_, err = f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)

	updated := f.entryFor(s)
	assert.Equal(t, 75, updated.DurationMinutes, "content still follows the plan")
	assert.Equal(t, time.Date(2026, time.January, 9, 0, 0, 0, 0, time.UTC), updated.Date, "pinned date must survive")
}

func TestMaterialize_TransientErrorRetriesOnce(t *testing.T) {
	f := newFixture(t)
	f.addSession(t, 0, 2, 60)
	f.entries.failUpserts = 1

	res, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)
	assert.Equal(t, 2, f.entries.upsertCalls)
}

func TestMaterialize_PersistentTransientErrorSurfaces(t *testing.T) {
	f := newFixture(t)
	f.addSession(t, 0, 2, 60)
	f.entries.failUpserts = 2

	_, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	assert.Equal(t, FaultTransientStorage, Classify(err))
	assert.Equal(t, 2, f.entries.upsertCalls, "whole operation retries exactly once")
}

func TestMaterialize_ValidationErrorIsNotRetried(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(t, 0, 2, 60)
	s.Detail = domain.WorkoutDetail{}
	require.NoError(t, f.sessions.Update(context.Background(), s))
	f.entries.failUpserts = 1 // would be consumed by a second attempt

	_, err := f.eng.Materialize(context.Background(), f.plan.ID, f.actor)
	assert.Equal(t, FaultValidation, Classify(err))
	assert.Equal(t, 1, f.entries.failUpserts, "no write, no retry")
}
