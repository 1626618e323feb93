package service

import (
	"context"
	"testing"
	"time"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/engine"
	"peakform/coach-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubEntryRepo struct {
	entries map[primitive.ObjectID]*domain.CalendarEntry
}

func newStubEntryRepo() *stubEntryRepo {
	return &stubEntryRepo{entries: make(map[primitive.ObjectID]*domain.CalendarEntry)}
}

func (s *stubEntryRepo) add(e *domain.CalendarEntry) *domain.CalendarEntry {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	s.entries[e.ID] = e
	return e
}

func (s *stubEntryRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.CalendarEntry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *stubEntryRepo) UpsertByKey(_ context.Context, _ primitive.ObjectID, _, _ string, _ repository.CalendarEntryFields) (*domain.CalendarEntry, bool, error) {
	return nil, false, repository.ErrUpdateFailed
}

func (s *stubEntryRepo) FindBySourceIDs(_ context.Context, _ primitive.ObjectID, _ string, _ []string) ([]domain.CalendarEntry, error) {
	return nil, nil
}

func (s *stubEntryRepo) FindActiveByOrigin(_ context.Context, _ primitive.ObjectID, _ string) ([]domain.CalendarEntry, error) {
	return nil, nil
}

func (s *stubEntryRepo) FindByAthleteAndDateRange(_ context.Context, athleteID primitive.ObjectID, from, to time.Time) ([]domain.CalendarEntry, error) {
	var out []domain.CalendarEntry
	for _, e := range s.entries {
		if e.AthleteID == athleteID && e.DeletedAt == nil && !e.Date.Before(from) && e.Date.Before(to) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *stubEntryRepo) SoftDeleteByID(_ context.Context, id, actor primitive.ObjectID, at time.Time) error {
	e, ok := s.entries[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.DeletedAt = &at
	e.DeletedBy = &actor
	return nil
}

func (s *stubEntryRepo) RestoreByID(_ context.Context, id primitive.ObjectID) error {
	e, ok := s.entries[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.DeletedAt = nil
	e.DeletedBy = nil
	return nil
}

func (s *stubEntryRepo) Update(_ context.Context, entry *domain.CalendarEntry) error {
	if _, ok := s.entries[entry.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func generatedEntry(athleteID primitive.ObjectID, day time.Time) *domain.CalendarEntry {
	return &domain.CalendarEntry{
		AthleteID:       athleteID,
		Origin:          domain.EntryOriginPlanEngine,
		SourceID:        "session:" + primitive.NewObjectID().Hex(),
		Date:            day,
		Discipline:      "Run",
		Title:           "Run: Endurance",
		DurationMinutes: 60,
		EditState:       domain.EditStateGenerated,
		Schedule:        domain.SchedulePlanned,
	}
}

func TestGetCalendar(t *testing.T) {
	repo := newStubEntryRepo()
	athleteID := primitive.NewObjectID()
	jan6 := time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC)
	jan20 := jan6.AddDate(0, 0, 14)
	repo.add(generatedEntry(athleteID, jan6))
	// Outside the range, someone else's, and soft-deleted: all filtered out.
	repo.add(generatedEntry(athleteID, jan20))
	repo.add(generatedEntry(primitive.NewObjectID(), jan6))
	deleted := repo.add(generatedEntry(athleteID, jan6))
	now := time.Now()
	deleted.DeletedAt = &now

	svc := NewAthleteService(repo, newStubUploadRepo(), stubStorage{})

	entries, err := svc.GetCalendar(context.Background(), athleteID, jan6, jan6.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = svc.GetCalendar(context.Background(), athleteID, jan6, jan6)
	assert.Equal(t, engine.FaultValidation, engine.Classify(err))
}

func TestEditEntry_MarksManuallyEdited(t *testing.T) {
	repo := newStubEntryRepo()
	athleteID := primitive.NewObjectID()
	entry := repo.add(generatedEntry(athleteID, time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC)))

	svc := NewAthleteService(repo, newStubUploadRepo(), stubStorage{})

	title := "Hill repeats instead"
	got, err := svc.EditEntry(context.Background(), athleteID, entry.ID, EntryEdit{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Hill repeats instead", got.Title)
	assert.Equal(t, domain.EditStateManuallyEdited, got.EditState)
	assert.Equal(t, domain.SchedulePlanned, got.Schedule, "no start time, no pinning")
}

func TestEditEntry_StartTimePinsSchedule(t *testing.T) {
	repo := newStubEntryRepo()
	athleteID := primitive.NewObjectID()
	entry := repo.add(generatedEntry(athleteID, time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC)))

	svc := NewAthleteService(repo, newStubUploadRepo(), stubStorage{})

	startAt := time.Date(2026, time.January, 6, 7, 30, 0, 0, time.UTC)
	got, err := svc.EditEntry(context.Background(), athleteID, entry.ID, EntryEdit{StartAt: &startAt})
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleTimed, got.Schedule)
	require.NotNil(t, got.StartAt)
	assert.True(t, got.StartAt.Equal(startAt))
}

func TestEditEntry_OwnershipAndLifecycle(t *testing.T) {
	repo := newStubEntryRepo()
	athleteID := primitive.NewObjectID()
	entry := repo.add(generatedEntry(athleteID, time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC)))

	svc := NewAthleteService(repo, newStubUploadRepo(), stubStorage{})
	title := "mine now"

	// Another athlete cannot touch it.
	_, err := svc.EditEntry(context.Background(), primitive.NewObjectID(), entry.ID, EntryEdit{Title: &title})
	assert.ErrorIs(t, err, ErrEntryNotOwned)

	// A deleted entry must be restored before editing.
	now := time.Now()
	repo.entries[entry.ID].DeletedAt = &now
	_, err = svc.EditEntry(context.Background(), athleteID, entry.ID, EntryEdit{Title: &title})
	assert.Equal(t, engine.FaultConflict, engine.Classify(err))
}

func TestRestoreEntry(t *testing.T) {
	repo := newStubEntryRepo()
	athleteID := primitive.NewObjectID()
	entry := repo.add(generatedEntry(athleteID, time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC)))
	now := time.Now()
	actor := primitive.NewObjectID()
	entry.DeletedAt = &now
	entry.DeletedBy = &actor

	svc := NewAthleteService(repo, newStubUploadRepo(), stubStorage{})

	got, err := svc.RestoreEntry(context.Background(), athleteID, entry.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted())

	// Restoring an active entry is a no-op.
	got, err = svc.RestoreEntry(context.Background(), athleteID, entry.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted())
}

func TestGetEntryAttachmentURL(t *testing.T) {
	entryRepo := newStubEntryRepo()
	uploadRepo := newStubUploadRepo()
	athleteID := primitive.NewObjectID()
	sessionID := primitive.NewObjectID()

	entry := generatedEntry(athleteID, time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC))
	entry.SourceID = "session:" + sessionID.Hex()
	entryRepo.add(entry)

	svc := NewAthleteService(entryRepo, uploadRepo, stubStorage{})

	// No upload recorded yet.
	_, err := svc.GetEntryAttachmentURL(context.Background(), athleteID, entry.ID)
	assert.ErrorIs(t, err, ErrAttachmentMissing)

	_, err = uploadRepo.Create(context.Background(), &domain.Upload{
		SessionID:   sessionID,
		AthleteID:   athleteID,
		S3ObjectKey: "attachments/a/b/c.mp4",
	})
	require.NoError(t, err)

	url, err := svc.GetEntryAttachmentURL(context.Background(), athleteID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://storage.test/download/attachments/a/b/c.mp4", url)
}
