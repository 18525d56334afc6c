package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"saasbackend/internal/service"
	"saasbackend/pkg/response"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrScopeViolation):
		return http.StatusForbidden
	case errors.Is(err, service.ErrMatrixNotFound), errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err in the error envelope. Unexpected failures are logged
// and replaced by fallback so internals do not leak.
func writeError(c *gin.Context, log logrus.FieldLogger, err error, fallback string) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		msg = "Invalid credentials"
	case status == http.StatusInternalServerError:
		log.WithError(err).WithField("path", c.FullPath()).Error(fallback)
		msg = fallback
	}
	c.JSON(status, response.Error(status, msg))
}

func bindError(c *gin.Context, err error) {
	response.Abort(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
}
