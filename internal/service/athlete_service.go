package service

import (
	"context"
	"errors"
	"time"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/engine"
	"peakform/coach-app/internal/repository"
	"peakform/coach-app/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrEntryNotOwned     = errors.New("calendar entry does not belong to this athlete")
	ErrAttachmentMissing = errors.New("session has no attachment")
	ErrDownloadURLError  = errors.New("failed to generate download URL")
)

// EntryEdit is a manual edit to a materialized calendar entry. Nil fields
// are left unchanged. Applying any edit hands content ownership to the
// athlete: the engine will no longer rewrite the entry.
type EntryEdit struct {
	Date            *time.Time
	StartAt         *time.Time
	Title           *string
	DurationMinutes *int
	Notes           *string
}

// AthleteService covers the athlete-facing calendar operations.
type AthleteService interface {
	GetCalendar(ctx context.Context, athleteID primitive.ObjectID, from, to time.Time) ([]domain.CalendarEntry, error)
	EditEntry(ctx context.Context, athleteID, entryID primitive.ObjectID, edit EntryEdit) (*domain.CalendarEntry, error)
	RestoreEntry(ctx context.Context, athleteID, entryID primitive.ObjectID) (*domain.CalendarEntry, error)
	GetEntryAttachmentURL(ctx context.Context, athleteID, entryID primitive.ObjectID) (string, error)
}

// athleteService implements the AthleteService interface.
type athleteService struct {
	entryRepo   repository.CalendarEntryRepository
	uploadRepo  repository.UploadRepository
	fileStorage storage.FileStorage
}

// NewAthleteService creates a new instance of athleteService.
func NewAthleteService(
	entryRepo repository.CalendarEntryRepository,
	uploadRepo repository.UploadRepository,
	fileStorage storage.FileStorage,
) AthleteService {
	return &athleteService{
		entryRepo:   entryRepo,
		uploadRepo:  uploadRepo,
		fileStorage: fileStorage,
	}
}

// GetCalendar returns the athlete's active entries in [from, to).
func (s *athleteService) GetCalendar(ctx context.Context, athleteID primitive.ObjectID, from, to time.Time) ([]domain.CalendarEntry, error) {
	if !to.After(from) {
		return nil, engine.Invalidf("calendar range end must be after start")
	}
	return s.entryRepo.FindByAthleteAndDateRange(ctx, athleteID, from, to)
}

// EditEntry applies a manual edit and marks the entry manually edited.
// Setting a start time pins the entry to its date: re-materialization will
// not move a timed entry.
func (s *athleteService) EditEntry(ctx context.Context, athleteID, entryID primitive.ObjectID, edit EntryEdit) (*domain.CalendarEntry, error) {
	entry, err := s.ownedEntry(ctx, athleteID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.IsDeleted() {
		return nil, engine.Conflictf("entry %s is deleted; restore it before editing", entryID.Hex())
	}

	if edit.Date != nil {
		entry.Date = *edit.Date
	}
	if edit.StartAt != nil {
		entry.StartAt = edit.StartAt
		entry.Schedule = domain.ScheduleTimed
	}
	if edit.Title != nil {
		entry.Title = *edit.Title
	}
	if edit.DurationMinutes != nil {
		if *edit.DurationMinutes < 0 {
			return nil, engine.Invalidf("duration minutes must be >= 0")
		}
		entry.DurationMinutes = *edit.DurationMinutes
	}
	if edit.Notes != nil {
		entry.Notes = *edit.Notes
	}
	entry.EditState = domain.EditStateManuallyEdited

	if err := s.entryRepo.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RestoreEntry clears the soft-delete marker on one of the athlete's
// entries, undoing a plan-side removal.
func (s *athleteService) RestoreEntry(ctx context.Context, athleteID, entryID primitive.ObjectID) (*domain.CalendarEntry, error) {
	entry, err := s.ownedEntry(ctx, athleteID, entryID)
	if err != nil {
		return nil, err
	}
	if !entry.IsDeleted() {
		return entry, nil
	}
	if err := s.entryRepo.RestoreByID(ctx, entryID); err != nil {
		return nil, err
	}
	return s.entryRepo.GetByID(ctx, entryID)
}

// GetEntryAttachmentURL resolves the briefing media attached to the entry's
// source session and returns a presigned download URL.
func (s *athleteService) GetEntryAttachmentURL(ctx context.Context, athleteID, entryID primitive.ObjectID) (string, error) {
	entry, err := s.ownedEntry(ctx, athleteID, entryID)
	if err != nil {
		return "", err
	}

	sessionID, err := domain.SessionIDFromSourceID(entry.SourceID)
	if err != nil {
		return "", ErrAttachmentMissing
	}
	upload, err := s.uploadRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrAttachmentMissing
		}
		return "", err
	}

	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, upload.S3ObjectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return "", ErrDownloadURLError
	}
	return url, nil
}

// ownedEntry fetches an entry and verifies athlete ownership.
func (s *athleteService) ownedEntry(ctx context.Context, athleteID, entryID primitive.ObjectID) (*domain.CalendarEntry, error) {
	entry, err := s.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, engine.NotFoundf("entry %s not found", entryID.Hex())
		}
		return nil, err
	}
	if entry.AthleteID != athleteID {
		return nil, ErrEntryNotOwned
	}
	return entry, nil
}
