package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"peakform/coach-app/internal/detail"
	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/engine"
	"peakform/coach-app/internal/repository"
	"peakform/coach-app/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrAthleteNotFound        = errors.New("athlete user not found")
	ErrAthleteNotRole         = errors.New("user found but is not an athlete")
	ErrAthleteAlreadyAssigned = errors.New("athlete is already assigned to a coach")
	ErrAthleteNotManaged      = errors.New("athlete is not managed by this coach")
	ErrUploadURLError         = errors.New("failed to generate upload URL")
	ErrUploadConfirmFailed    = errors.New("failed to confirm upload")
)

// PlanInput is the payload for creating or updating a plan.
type PlanInput struct {
	Name        string
	Description string
	Setup       domain.PlanSetup
}

// SessionInput is the payload for creating or updating a plan session.
type SessionInput struct {
	WeekIndex       int
	DayOfWeek       int
	Ordinal         int
	Discipline      string
	Type            string
	DurationMinutes int
	Locked          bool
	Detail          domain.WorkoutDetail
	Notes           string
}

// UploadURLResponse structure for returning URL and object key
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"` // The key the coach reports back on confirm
}

// CoachService covers everything a coach does: roster management, plan
// authoring, publishing, and materialization onto the athlete's calendar.
type CoachService interface {
	// Roster Management
	AddAthleteByEmail(ctx context.Context, coachID primitive.ObjectID, athleteEmail string) (*domain.User, error)
	GetManagedAthletes(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error)

	// Plan Authoring
	CreatePlan(ctx context.Context, coachID, athleteID primitive.ObjectID, input PlanInput) (*domain.TrainingPlan, error)
	GetPlansForAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID) ([]domain.TrainingPlan, error)
	AddSession(ctx context.Context, coachID, planID primitive.ObjectID, input SessionInput) (*domain.PlanSession, error)
	UpdateSession(ctx context.Context, coachID, sessionID primitive.ObjectID, input SessionInput) (*domain.PlanSession, error)
	DeleteSession(ctx context.Context, coachID, sessionID primitive.ObjectID) error
	GetSessionsForPlan(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.PlanSession, error)

	// Publishing & Materialization
	PublishPlan(ctx context.Context, coachID, planID primitive.ObjectID) (*domain.TrainingPlan, error)
	MaterializePlan(ctx context.Context, coachID, planID primitive.ObjectID) (engine.MaterializeResult, error)

	// Session Attachments (briefing media)
	RequestAttachmentUploadURL(ctx context.Context, coachID, sessionID primitive.ObjectID, contentType string) (*UploadURLResponse, error)
	ConfirmAttachmentUpload(ctx context.Context, coachID, sessionID primitive.ObjectID, objectKey, fileName string, fileSize int64, contentType string) (*domain.Upload, error)
}

// coachService implements the CoachService interface.
type coachService struct {
	userRepo     repository.UserRepository
	planRepo     repository.TrainingPlanRepository
	sessionRepo  repository.PlanSessionRepository
	uploadRepo   repository.UploadRepository
	fileStorage  storage.FileStorage
	detail       detail.Validator
	materializer *engine.Materializer
}

// NewCoachService creates a new instance of coachService.
func NewCoachService(
	userRepo repository.UserRepository,
	planRepo repository.TrainingPlanRepository,
	sessionRepo repository.PlanSessionRepository,
	uploadRepo repository.UploadRepository,
	fileStorage storage.FileStorage,
	validator detail.Validator,
	materializer *engine.Materializer,
) CoachService {
	return &coachService{
		userRepo:     userRepo,
		planRepo:     planRepo,
		sessionRepo:  sessionRepo,
		uploadRepo:   uploadRepo,
		fileStorage:  fileStorage,
		detail:       validator,
		materializer: materializer,
	}
}

// === Roster Management ===

// AddAthleteByEmail finds an athlete by email and assigns them to the coach.
func (s *coachService) AddAthleteByEmail(ctx context.Context, coachID primitive.ObjectID, athleteEmail string) (*domain.User, error) {
	if coachID == primitive.NilObjectID || athleteEmail == "" {
		return nil, errors.New("coach ID and athlete email are required")
	}

	athlete, err := s.userRepo.GetByEmail(ctx, athleteEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAthleteNotFound
		}
		return nil, err
	}

	if athlete.Role != domain.RoleAthlete {
		return nil, ErrAthleteNotRole
	}

	if athlete.CoachID != nil && *athlete.CoachID != primitive.NilObjectID {
		if *athlete.CoachID == coachID {
			// Already managed by this coach.
			return athlete, nil
		}
		return nil, ErrAthleteAlreadyAssigned
	}

	if err := s.userRepo.AddAthleteIDToCoach(ctx, coachID, athlete.ID); err != nil {
		return nil, err
	}
	if err := s.userRepo.SetCoachForAthlete(ctx, athlete.ID, coachID); err != nil {
		return nil, err
	}

	athlete.CoachID = &coachID
	return athlete, nil
}

// GetManagedAthletes retrieves the list of athletes managed by the coach.
func (s *coachService) GetManagedAthletes(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error) {
	if coachID == primitive.NilObjectID {
		return nil, errors.New("coach ID is required")
	}
	athletes, err := s.userRepo.GetAthletesByCoachID(ctx, coachID)
	if err != nil {
		return nil, err
	}
	// Clear password hashes before returning
	for i := range athletes {
		athletes[i].PasswordHash = ""
	}
	return athletes, nil
}

// === Plan Authoring ===

// CreatePlan creates a draft plan for a managed athlete. The setup is
// validated up front so malformed date anchoring never reaches
// materialization.
func (s *coachService) CreatePlan(ctx context.Context, coachID, athleteID primitive.ObjectID, input PlanInput) (*domain.TrainingPlan, error) {
	if input.Name == "" {
		return nil, engine.Invalidf("plan name is required")
	}
	if err := engine.ValidateSetup(input.Setup); err != nil {
		return nil, err
	}
	if err := s.requireManagedAthlete(ctx, coachID, athleteID); err != nil {
		return nil, err
	}

	plan := &domain.TrainingPlan{
		CoachID:     coachID,
		AthleteID:   athleteID,
		Name:        input.Name,
		Description: input.Description,
		Status:      domain.PlanStatusDraft,
		Setup:       input.Setup,
	}

	planID, err := s.planRepo.Create(ctx, plan)
	if err != nil {
		return nil, err
	}
	plan.ID = planID
	return plan, nil
}

// GetPlansForAthlete retrieves the plans this coach authored for an athlete.
func (s *coachService) GetPlansForAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID) ([]domain.TrainingPlan, error) {
	return s.planRepo.GetByAthleteAndCoachID(ctx, athleteID, coachID)
}

// AddSession appends a session to a draft plan week.
func (s *coachService) AddSession(ctx context.Context, coachID, planID primitive.ObjectID, input SessionInput) (*domain.PlanSession, error) {
	plan, err := s.ownedPlan(ctx, coachID, planID)
	if err != nil {
		return nil, err
	}
	if err := validateSessionInput(input); err != nil {
		return nil, err
	}
	if err := s.detail.Validate(input.Detail); err != nil {
		return nil, engine.InvalidErr("invalid session detail", err)
	}
	if plan.IsWeekLocked(input.WeekIndex) {
		return nil, engine.Conflictf("week %d of plan %s is locked", input.WeekIndex, planID.Hex())
	}

	session := &domain.PlanSession{
		PlanID:          planID,
		CoachID:         coachID,
		AthleteID:       plan.AthleteID,
		WeekIndex:       input.WeekIndex,
		DayOfWeek:       input.DayOfWeek,
		Ordinal:         input.Ordinal,
		Discipline:      input.Discipline,
		Type:            input.Type,
		DurationMinutes: input.DurationMinutes,
		Locked:          input.Locked,
		Detail:          input.Detail,
		Notes:           input.Notes,
	}
	sessionID, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		return nil, err
	}
	session.ID = sessionID
	return session, nil
}

// UpdateSession rewrites a session. Locked sessions and sessions in locked
// weeks reject edits with a conflict.
func (s *coachService) UpdateSession(ctx context.Context, coachID, sessionID primitive.ObjectID, input SessionInput) (*domain.PlanSession, error) {
	session, plan, err := s.ownedSession(ctx, coachID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := validateSessionInput(input); err != nil {
		return nil, err
	}
	if err := s.detail.Validate(input.Detail); err != nil {
		return nil, engine.InvalidErr("invalid session detail", err)
	}
	if session.Locked {
		return nil, engine.Conflictf("session %s is locked", sessionID.Hex())
	}
	if plan.IsWeekLocked(session.WeekIndex) || plan.IsWeekLocked(input.WeekIndex) {
		return nil, engine.Conflictf("session %s sits in a locked week", sessionID.Hex())
	}

	session.WeekIndex = input.WeekIndex
	session.DayOfWeek = input.DayOfWeek
	session.Ordinal = input.Ordinal
	session.Discipline = input.Discipline
	session.Type = input.Type
	session.DurationMinutes = input.DurationMinutes
	session.Locked = input.Locked
	session.Detail = input.Detail
	session.Notes = input.Notes

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession removes a session from the plan. The calendar entry it
// produced (if any) is soft-deleted on the next materialization, not here.
func (s *coachService) DeleteSession(ctx context.Context, coachID, sessionID primitive.ObjectID) error {
	session, plan, err := s.ownedSession(ctx, coachID, sessionID)
	if err != nil {
		return err
	}
	if session.Locked || plan.IsWeekLocked(session.WeekIndex) {
		return engine.Conflictf("session %s is locked", sessionID.Hex())
	}
	return s.sessionRepo.Delete(ctx, sessionID, coachID)
}

// GetSessionsForPlan lists a plan's sessions in week/ordinal order.
func (s *coachService) GetSessionsForPlan(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.PlanSession, error) {
	if _, err := s.ownedPlan(ctx, coachID, planID); err != nil {
		return nil, err
	}
	return s.sessionRepo.GetByPlanID(ctx, planID)
}

// === Publishing & Materialization ===

// PublishPlan normalizes every week's durations and flips the plan to
// published. Republishing an already-published plan is allowed; that is how
// edits reach the calendar.
func (s *coachService) PublishPlan(ctx context.Context, coachID, planID primitive.ObjectID) (*domain.TrainingPlan, error) {
	plan, err := s.ownedPlan(ctx, coachID, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status == domain.PlanStatusArchived {
		return nil, engine.Conflictf("plan %s is archived", planID.Hex())
	}

	sessions, err := s.sessionRepo.GetByPlanID(ctx, planID)
	if err != nil {
		return nil, err
	}

	if changed := normalizePlanWeeks(plan.Setup, sessions); len(changed) > 0 {
		if err := s.sessionRepo.UpdateDurations(ctx, planID, changed); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	if err := s.planRepo.SetStatus(ctx, planID, domain.PlanStatusPublished, &now); err != nil {
		return nil, err
	}
	plan.Status = domain.PlanStatusPublished
	plan.PublishedAt = &now
	return plan, nil
}

// normalizePlanWeeks runs the duration normalizer per week and returns the
// sessions whose stored duration changed.
func normalizePlanWeeks(setup domain.PlanSetup, sessions []domain.PlanSession) map[primitive.ObjectID]int {
	weeks := make(map[int][]int) // weekIndex -> indexes into sessions
	for i, sess := range sessions {
		weeks[sess.WeekIndex] = append(weeks[sess.WeekIndex], i)
	}

	rules := engine.RulesFromSetup(setup)
	changed := make(map[primitive.ObjectID]int)
	for _, idxs := range weeks {
		week := make([]engine.SessionDuration, len(idxs))
		for j, i := range idxs {
			week[j] = engine.SessionDuration{
				DurationMinutes: sessions[i].DurationMinutes,
				Locked:          sessions[i].Locked,
				DayOfWeek:       sessions[i].DayOfWeek,
			}
		}
		result := engine.NormalizeDurations(week, rules)
		for j, i := range idxs {
			if result.Durations[j] != sessions[i].DurationMinutes {
				changed[sessions[i].ID] = result.Durations[j]
			}
		}
	}
	return changed
}

// MaterializePlan runs the reconciliation engine for a published plan.
func (s *coachService) MaterializePlan(ctx context.Context, coachID, planID primitive.ObjectID) (engine.MaterializeResult, error) {
	if _, err := s.ownedPlan(ctx, coachID, planID); err != nil {
		return engine.MaterializeResult{}, err
	}
	return s.materializer.Materialize(ctx, planID, coachID)
}

// === Session Attachments ===

// RequestAttachmentUploadURL generates a pre-signed URL for a coach to
// upload briefing media for a session.
func (s *coachService) RequestAttachmentUploadURL(ctx context.Context, coachID, sessionID primitive.ObjectID, contentType string) (*UploadURLResponse, error) {
	if contentType == "" || !(strings.HasPrefix(strings.ToLower(contentType), "video/") || strings.HasPrefix(strings.ToLower(contentType), "image/")) {
		return nil, engine.Invalidf("invalid or missing attachment content type")
	}

	session, _, err := s.ownedSession(ctx, coachID, sessionID)
	if err != nil {
		return nil, err
	}

	uniqueID := uuid.NewString()
	fileExtension := ""
	parts := strings.Split(contentType, "/")
	if len(parts) == 2 {
		fileExtension = parts[1]
	}
	objectKey := path.Join("attachments", session.AthleteID.Hex(), sessionID.Hex(), fmt.Sprintf("%s.%s", uniqueID, fileExtension))

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}

	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmAttachmentUpload records upload metadata after the coach has PUT
// the object to S3 and links it to the session.
func (s *coachService) ConfirmAttachmentUpload(ctx context.Context, coachID, sessionID primitive.ObjectID, objectKey, fileName string, fileSize int64, contentType string) (*domain.Upload, error) {
	if objectKey == "" {
		return nil, engine.Invalidf("object key is required")
	}

	session, _, err := s.ownedSession(ctx, coachID, sessionID)
	if err != nil {
		return nil, err
	}

	upload := &domain.Upload{
		SessionID:   sessionID,
		CoachID:     coachID,
		AthleteID:   session.AthleteID,
		S3ObjectKey: objectKey,
		FileName:    fileName,
		ContentType: contentType,
		Size:        fileSize,
	}
	uploadID, err := s.uploadRepo.Create(ctx, upload)
	if err != nil {
		return nil, ErrUploadConfirmFailed
	}
	upload.ID = uploadID

	session.AttachmentID = &uploadID
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, ErrUploadConfirmFailed
	}

	return upload, nil
}

// === Helpers ===

// requireManagedAthlete verifies the athlete exists and is on this coach's
// roster.
func (s *coachService) requireManagedAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID) error {
	athlete, err := s.userRepo.GetByID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAthleteNotFound
		}
		return err
	}
	if athlete.CoachID == nil || *athlete.CoachID != coachID {
		return ErrAthleteNotManaged
	}
	return nil
}

// ownedPlan fetches a plan and verifies coach ownership.
func (s *coachService) ownedPlan(ctx context.Context, coachID, planID primitive.ObjectID) (*domain.TrainingPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, engine.NotFoundf("plan %s not found", planID.Hex())
		}
		return nil, err
	}
	if plan.CoachID != coachID {
		return nil, engine.NotFoundf("plan %s not found", planID.Hex()) // do not leak other coaches' plans
	}
	return plan, nil
}

// ownedSession fetches a session plus its plan and verifies coach ownership.
func (s *coachService) ownedSession(ctx context.Context, coachID, sessionID primitive.ObjectID) (*domain.PlanSession, *domain.TrainingPlan, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, engine.NotFoundf("session %s not found", sessionID.Hex())
		}
		return nil, nil, err
	}
	if session.CoachID != coachID {
		return nil, nil, engine.NotFoundf("session %s not found", sessionID.Hex())
	}
	plan, err := s.planRepo.GetByID(ctx, session.PlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, engine.NotFoundf("plan %s not found", session.PlanID.Hex())
		}
		return nil, nil, err
	}
	return session, plan, nil
}

func validateSessionInput(input SessionInput) error {
	if input.WeekIndex < 0 {
		return engine.Invalidf("week index must be >= 0")
	}
	if input.DayOfWeek < 0 || input.DayOfWeek > 6 {
		return engine.Invalidf("day of week must be 0-6")
	}
	if input.DurationMinutes < 0 {
		return engine.Invalidf("duration minutes must be >= 0")
	}
	if input.Discipline == "" {
		return engine.Invalidf("discipline is required")
	}
	return nil
}
