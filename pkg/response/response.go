package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/ascendhq/ascend/pkg/errors"
)

// ErrorBody is the standard error payload: {"error": "...", "details": [...]}.
// Rate-limited responses additionally carry resetTime.
type ErrorBody struct {
	Error     string   `json:"error"`
	Details   []string `json:"details,omitempty"`
	ResetTime string   `json:"resetTime,omitempty"`
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorBody{
		Error:   appErr.Message,
		Details: appErr.Details,
	})
}

// RateLimited writes a 429 response carrying the moment the current window resets.
func RateLimited(c *gin.Context, resetTime time.Time) {
	c.JSON(http.StatusTooManyRequests, ErrorBody{
		Error:     appErrors.ErrRateLimited.Message,
		ResetTime: resetTime.UTC().Format(time.RFC3339),
	})
}
