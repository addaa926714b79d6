package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tarsy-labs/agentruntime/internal/apperrors"
)

// writeError maps the sentinel taxonomy in internal/apperrors to an HTTP
// status, generalizing pkg/api/errors.go's mapServiceError from the
// teacher's services.ValidationError/ErrNotFound set to this runtime's own.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrAgentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrPolicyBlocked), errors.Is(err, apperrors.ErrBudgetExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrCircuitBreakerTripped):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrTaskInterrupted):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrCredentialMissing), errors.Is(err, apperrors.ErrCredentialLeak):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
