package apiresponses

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIError is the wire shape of every terminal pipeline failure. Only the
// "error" field is guaranteed; "retryAfter" appears on rate-limit responses.
type APIError struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// RespondUnauthenticated aborts with 401. Use when no credential was
// presented or the identity claim is missing required fields.
func RespondUnauthenticated(c *gin.Context, message string) {
	if message == "" {
		message = "authentication required"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
		Error: message,
		Code:  "UNAUTHENTICATED",
	})
}

// RespondInvalidCredential aborts with 403. Use when a credential was
// presented but failed signature or expiry verification.
func RespondInvalidCredential(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, APIError{
		Error: "invalid or expired token",
		Code:  "INVALID_TOKEN",
	})
}

// RespondForbidden aborts with 403. Use when the user is authenticated but
// not privileged for the action, including fail-closed lookup errors.
func RespondForbidden(c *gin.Context, reason string) {
	if reason == "" {
		reason = "access denied"
	}
	c.AbortWithStatusJSON(http.StatusForbidden, APIError{
		Error: reason,
		Code:  "FORBIDDEN",
	})
}

// RespondRateLimited aborts with 429 and the seconds until the window ends.
func RespondRateLimited(c *gin.Context, message string, retryAfter int) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, APIError{
		Error:      message,
		Code:       "RATE_LIMITED",
		RetryAfter: retryAfter,
	})
}

// RespondBadRequest aborts with 400 for malformed or disallowed input.
func RespondBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, APIError{
		Error: message,
		Code:  "BAD_REQUEST",
	})
}

// RespondMisconfigured aborts with 500. It logs the underlying error with
// full details but returns a sanitized message to the client.
func RespondMisconfigured(c *gin.Context, operation string, err error, log *zap.SugaredLogger) {
	if log != nil {
		log.Errorw("server misconfiguration", "operation", operation, "error", err)
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, APIError{
		Error: "server configuration error",
		Code:  "INTERNAL_ERROR",
	})
}

// RespondOK sends a 200 OK response with the given data.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}
