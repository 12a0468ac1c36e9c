package middleware

import (
	"errors"
	"net/http"

	"livepoll/internal/transport/httpdto"
	poll_errors "livepoll/pkg/errors"
	"livepoll/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler turns errors attached to the gin context into the standard
// envelope, classifying the poll error taxonomy the same way the handlers do
// so deferred errors keep their codes.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Errorf("request error: %s", err.Error())
		}

		status, code := classifyError(err)
		if c.Writer.Written() {
			return
		}
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
	}
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, poll_errors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, poll_errors.ErrInvalidInput), errors.Is(err, poll_errors.ErrInvalidOption), errors.Is(err, poll_errors.ErrMalformedMessage):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, poll_errors.ErrPollClosed):
		return http.StatusBadRequest, "POLL_CLOSED"
	case errors.Is(err, poll_errors.ErrPollRemoved):
		return http.StatusGone, "POLL_REMOVED"
	case errors.Is(err, poll_errors.ErrAlreadyExists):
		return http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, poll_errors.ErrStorageUnavailable), errors.Is(err, poll_errors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
