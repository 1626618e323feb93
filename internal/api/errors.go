package api

import (
	"net/http"

	"peakform/coach-app/internal/engine"

	"github.com/gin-gonic/gin"
)

// respondEngineError maps the engine's fault classes onto HTTP statuses.
// Unknown errors never leak their message to the client.
func respondEngineError(c *gin.Context, err error) {
	switch engine.Classify(err) {
	case engine.FaultNotFound:
		abortWithError(c, http.StatusNotFound, err.Error())
	case engine.FaultConflict:
		abortWithError(c, http.StatusConflict, err.Error())
	case engine.FaultValidation:
		abortWithError(c, http.StatusUnprocessableEntity, err.Error())
	case engine.FaultTransientStorage:
		abortWithError(c, http.StatusServiceUnavailable, "Storage temporarily unavailable, please retry.")
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}
