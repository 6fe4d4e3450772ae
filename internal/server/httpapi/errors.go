package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// Client-facing messages. They never carry internal detail.
const (
	msgDuplicateUser       = "Registration failed, please contact support"
	msgInvalidCredentials  = "Invalid credentials"
	msgUnauthenticated     = "Invalid or expired token"
	msgInvalidRefreshToken = "Invalid or expired refresh token"
	msgInternal            = "Internal server error"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Method     string `json:"method"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// classify maps an error to its status code and public message.
func classify(err error) (int, string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, "Validation failed"
	case errors.Is(err, common.ErrDuplicateUser):
		return http.StatusConflict, msgDuplicateUser
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, msgUnauthenticated
	case errors.Is(err, common.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, msgInvalidRefreshToken
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// abortWithError logs err with its full chain and writes the envelope.
func (s *Server) abortWithError(c *gin.Context, err error) {
	status, message := classify(err)

	ctx := c.Request.Context()
	args := []any{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", status,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		s.log.Error(ctx, "request failed", args...)
	} else {
		s.log.Warn(ctx, "request rejected", args...)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		StatusCode: status,
		Timestamp:  s.now().UTC().Format(timestampLayout),
		Path:       c.Request.URL.RequestURI(),
		Method:     c.Request.Method,
		Error:      http.StatusText(status),
		Message:    message,
	})
}
