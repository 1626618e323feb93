// internal/api/coach_handler.go
package api

import (
	"errors"
	"net/http"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CoachHandler struct {
	coachService service.CoachService
}

func NewCoachHandler(coachService service.CoachService) *CoachHandler {
	return &CoachHandler{coachService: coachService}
}

// --- DTOs ---

type AddAthleteRequest struct {
	AthleteEmail string `json:"athleteEmail" binding:"required,email"`
}

type CreatePlanRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Setup       domain.PlanSetup `json:"setup" binding:"required"`
}

type SessionRequest struct {
	WeekIndex       int                  `json:"weekIndex" binding:"min=0"`
	DayOfWeek       int                  `json:"dayOfWeek" binding:"min=0,max=6"`
	Ordinal         int                  `json:"ordinal"`
	Discipline      string               `json:"discipline" binding:"required"`
	Type            string               `json:"type"`
	DurationMinutes int                  `json:"durationMinutes" binding:"min=0"`
	Locked          bool                 `json:"locked"`
	Detail          domain.WorkoutDetail `json:"detail" binding:"required"`
	Notes           string               `json:"notes"`
}

type RequestAttachmentUploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type ConfirmAttachmentUploadRequest struct {
	ObjectKey   string `json:"objectKey" binding:"required"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	ContentType string `json:"contentType"`
}

func (r SessionRequest) toInput() service.SessionInput {
	return service.SessionInput{
		WeekIndex:       r.WeekIndex,
		DayOfWeek:       r.DayOfWeek,
		Ordinal:         r.Ordinal,
		Discipline:      r.Discipline,
		Type:            r.Type,
		DurationMinutes: r.DurationMinutes,
		Locked:          r.Locked,
		Detail:          r.Detail,
		Notes:           r.Notes,
	}
}

// --- Roster ---

// AddAthleteByEmail associates an existing athlete user with the coach.
func (h *CoachHandler) AddAthleteByEmail(c *gin.Context) {
	var req AddAthleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	coachID, ok := coachIDFromContext(c)
	if !ok {
		return
	}

	athlete, err := h.coachService.AddAthleteByEmail(c.Request.Context(), coachID, req.AthleteEmail)
	if err != nil {
		if errors.Is(err, service.ErrAthleteNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrAthleteNotRole) || errors.Is(err, service.ErrAthleteAlreadyAssigned) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to add athlete.")
		}
		return
	}

	c.JSON(http.StatusOK, MapUserToResponse(athlete))
}

// GetManagedAthletes lists the coach's roster.
func (h *CoachHandler) GetManagedAthletes(c *gin.Context) {
	coachID, ok := coachIDFromContext(c)
	if !ok {
		return
	}

	athletes, err := h.coachService.GetManagedAthletes(c.Request.Context(), coachID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve managed athletes.")
		return
	}

	if athletes == nil {
		c.JSON(http.StatusOK, []UserResponse{})
		return
	}
	c.JSON(http.StatusOK, MapUsersToResponse(athletes))
}

// --- Plans ---

// CreatePlan creates a draft training plan for a managed athlete.
func (h *CoachHandler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	coachID, ok := coachIDFromContext(c)
	if !ok {
		return
	}
	athleteID, err := primitive.ObjectIDFromHex(c.Param("athleteId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid athlete ID format.")
		return
	}

	plan, err := h.coachService.CreatePlan(c.Request.Context(), coachID, athleteID, service.PlanInput{
		Name:        req.Name,
		Description: req.Description,
		Setup:       req.Setup,
	})
	if err != nil {
		if errors.Is(err, service.ErrAthleteNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrAthleteNotManaged) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else {
			respondEngineError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// GetPlansForAthlete lists the plans this coach authored for an athlete.
func (h *CoachHandler) GetPlansForAthlete(c *gin.Context) {
	coachID, ok := coachIDFromContext(c)
	if !ok {
		return
	}
	athleteID, err := primitive.ObjectIDFromHex(c.Param("athleteId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid athlete ID format.")
		return
	}

	plans, err := h.coachService.GetPlansForAthlete(c.Request.Context(), coachID, athleteID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	if plans == nil {
		plans = []domain.TrainingPlan{}
	}
	c.JSON(http.StatusOK, plans)
}

// --- Sessions ---

// AddSession appends a session to a plan.
func (h *CoachHandler) AddSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	coachID, ok := coachIDFromContext(c)
	if !ok {
		return
	}
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return
	}

	session, err := h.coachService.AddSession(c.Request.Context(), coachID, planID, req.toInput())
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetSessionsForPlan lists a plan's sessions in week/ordinal order.
func (h *CoachHandler) GetSessionsForPlan(c *gin.Context) {
	coachID, ok := coachIDFromContext(c)
	if !ok {
		return
	}
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return
	}

	sessions, err := h.coachService.GetSessionsForPlan(c.Request.Context(), coachID, planID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	if sessions == nil {
		sessions = []domain.PlanSession{}
	}
	c.JSON(http.StatusOK, sessions)
}

// UpdateSession rewrites a session; locked sessions/weeks return 409.
func (h *CoachHandler) UpdateSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	coachID, ok := coachIDFromContext(c)
	if !ok {
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(c.Param("sessionId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid session ID format.")
		return
	}

	session, err := h.coachService.UpdateSession(c.Request.Context(), coachID, sessionID, req.toInput())
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// DeleteSession removes a session from its plan.
func (h *CoachHandler) DeleteSession(c *gin.Context) {
	coachID, ok := coachIDFromContext(c)
	if !ok {
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(c.Param("sessionId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid session ID format.")
		return
	}

	if err := h.coachService.DeleteSession(c.Request.Context(), coachID, sessionID); err != nil {
		respondEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Publishing & Materialization ---

// PublishPlan normalizes durations and marks the plan published.
func (h *CoachHandler) PublishPlan(c *gin.Context) {
	coachID, ok := coachIDFromContext(c)
	if !ok {
		return
	}
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return
	}

	plan, err := h.coachService.PublishPlan(c.Request.Context(), coachID, planID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// MaterializePlan converts the published plan into calendar entries.
func (h *CoachHandler) MaterializePlan(c *gin.Context) {
	coachID, ok := coachIDFromContext(c)
	if !ok {
		return
	}
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return
	}

	result, err := h.coachService.MaterializePlan(c.Request.Context(), coachID, planID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- Attachments ---

// RequestAttachmentUpload returns a presigned PUT URL for briefing media.
func (h *CoachHandler) RequestAttachmentUpload(c *gin.Context) {
	var req RequestAttachmentUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	coachID, ok := coachIDFromContext(c)
	if !ok {
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(c.Param("sessionId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid session ID format.")
		return
	}

	resp, err := h.coachService.RequestAttachmentUploadURL(c.Request.Context(), coachID, sessionID, req.ContentType)
	if err != nil {
		if errors.Is(err, service.ErrUploadURLError) {
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmAttachmentUpload records the uploaded object and links it to the session.
func (h *CoachHandler) ConfirmAttachmentUpload(c *gin.Context) {
	var req ConfirmAttachmentUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	coachID, ok := coachIDFromContext(c)
	if !ok {
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(c.Param("sessionId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid session ID format.")
		return
	}

	upload, err := h.coachService.ConfirmAttachmentUpload(c.Request.Context(), coachID, sessionID, req.ObjectKey, req.FileName, req.FileSize, req.ContentType)
	if err != nil {
		if errors.Is(err, service.ErrUploadConfirmFailed) {
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, upload)
}

// coachIDFromContext extracts the authenticated coach's ID, aborting the
// request itself on failure.
func coachIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid coach ID format in token.")
		return primitive.NilObjectID, false
	}
	return id, true
}
