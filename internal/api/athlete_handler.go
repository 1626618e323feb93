// internal/api/athlete_handler.go
package api

import (
	"errors"
	"net/http"
	"time"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AthleteHandler struct {
	athleteService service.AthleteService
}

func NewAthleteHandler(athleteService service.AthleteService) *AthleteHandler {
	return &AthleteHandler{athleteService: athleteService}
}

// EditEntryRequest carries a partial update; absent fields stay unchanged.
type EditEntryRequest struct {
	Date            *time.Time `json:"date"`
	StartAt         *time.Time `json:"startAt"`
	Title           *string    `json:"title"`
	DurationMinutes *int       `json:"durationMinutes"`
	Notes           *string    `json:"notes"`
}

type AttachmentURLResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// GetCalendar returns the athlete's active entries in [from, to).
// Both bounds are RFC 3339 timestamps.
func (h *AthleteHandler) GetCalendar(c *gin.Context) {
	athleteID, ok := athleteIDFromContext(c)
	if !ok {
		return
	}

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid 'from' timestamp, expected RFC 3339.")
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid 'to' timestamp, expected RFC 3339.")
		return
	}

	entries, err := h.athleteService.GetCalendar(c.Request.Context(), athleteID, from, to)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	if entries == nil {
		entries = []domain.CalendarEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// EditEntry applies a manual edit to one of the athlete's calendar entries.
func (h *AthleteHandler) EditEntry(c *gin.Context) {
	var req EditEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	athleteID, ok := athleteIDFromContext(c)
	if !ok {
		return
	}
	entryID, err := primitive.ObjectIDFromHex(c.Param("entryId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid entry ID format.")
		return
	}

	entry, err := h.athleteService.EditEntry(c.Request.Context(), athleteID, entryID, service.EntryEdit{
		Date:            req.Date,
		StartAt:         req.StartAt,
		Title:           req.Title,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	if err != nil {
		if errors.Is(err, service.ErrEntryNotOwned) {
			abortWithError(c, http.StatusForbidden, err.Error())
			return
		}
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// RestoreEntry undoes a plan-side soft delete.
func (h *AthleteHandler) RestoreEntry(c *gin.Context) {
	athleteID, ok := athleteIDFromContext(c)
	if !ok {
		return
	}
	entryID, err := primitive.ObjectIDFromHex(c.Param("entryId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid entry ID format.")
		return
	}

	entry, err := h.athleteService.RestoreEntry(c.Request.Context(), athleteID, entryID)
	if err != nil {
		if errors.Is(err, service.ErrEntryNotOwned) {
			abortWithError(c, http.StatusForbidden, err.Error())
			return
		}
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// GetEntryAttachment returns a presigned download URL for the briefing
// media attached to the entry's source session.
func (h *AthleteHandler) GetEntryAttachment(c *gin.Context) {
	athleteID, ok := athleteIDFromContext(c)
	if !ok {
		return
	}
	entryID, err := primitive.ObjectIDFromHex(c.Param("entryId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid entry ID format.")
		return
	}

	url, err := h.athleteService.GetEntryAttachmentURL(c.Request.Context(), athleteID, entryID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEntryNotOwned):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrAttachmentMissing):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrDownloadURLError):
			abortWithError(c, http.StatusInternalServerError, err.Error())
		default:
			respondEngineError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, AttachmentURLResponse{DownloadURL: url})
}

func athleteIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid athlete ID format in token.")
		return primitive.NilObjectID, false
	}
	return id, true
}
