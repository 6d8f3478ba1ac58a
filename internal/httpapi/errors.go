package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/directory"
)

// kindStatus is the single error-kind to HTTP-status table. Adapter failures
// (storage, matcher, persist) are all 500 at the boundary; only the caller's
// own mistakes map below it.
var kindStatus = map[attendance.Kind]int{
	attendance.KindInvalidRequest:   http.StatusBadRequest,
	attendance.KindReferenceMissing: http.StatusNotFound,
	attendance.KindStorage:          http.StatusInternalServerError,
	attendance.KindMatchService:     http.StatusInternalServerError,
	attendance.KindPersist:          http.StatusInternalServerError,
}

// kindLabel names the failing stage in responses.
var kindLabel = map[attendance.Kind]string{
	attendance.KindInvalidRequest:   "invalid request",
	attendance.KindReferenceMissing: "reference image missing",
	attendance.KindStorage:          "image storage error",
	attendance.KindMatchService:     "face match error",
	attendance.KindPersist:          "record store error",
}

// statusOf maps any error from the services to an HTTP status.
func statusOf(err error) int {
	if kind := attendance.KindOf(err); kind != "" {
		if status, ok := kindStatus[kind]; ok {
			return status
		}
	}
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, directory.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, directory.ErrInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes the uniform error envelope.
func fail(c *gin.Context, err error) {
	label := "internal error"
	if kind := attendance.KindOf(err); kind != "" {
		if l, ok := kindLabel[kind]; ok {
			label = l
		}
	} else {
		label = err.Error()
	}
	c.JSON(statusOf(err), gin.H{"error": label, "details": err.Error()})
}
