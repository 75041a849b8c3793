package handler

import (
	"net/http"
	"strconv"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/gin-gonic/gin"
)

// StatusFor maps an error kind to the HTTP status reported to clients.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConfig:
		return http.StatusServiceUnavailable
	case domain.KindHardStep, domain.KindTransient, domain.KindMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the standard error body and logs server-side failures.
func respondError(c *gin.Context, err error, message string) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.With(logger.Fields{logger.FieldFailureKind: domain.KindOf(err)}).
			WithError(err).
			Error(c.Request.Context(), "%s", message)
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   message + ": " + err.Error(),
		"kind":    domain.KindOf(err),
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   message,
		"kind":    domain.KindValidation,
	})
}

// parseID reads the :id path parameter. It writes a 400 and returns false on failure.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid joke id: "+c.Param("id"))
		return 0, false
	}
	return id, true
}

// queryInt reads an integer query parameter, returning def when absent or invalid.
func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
