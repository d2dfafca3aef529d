package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/backup"
	"dormitory-backend/internal/billing"
	"dormitory-backend/internal/mw"
	"dormitory-backend/internal/store"
)

var errInvalidID = errors.New("invalid id")

// statusFor maps domain errors onto HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, backup.ErrNotFound),
		errors.Is(err, store.ErrUnknownKind):
		return http.StatusNotFound

	case errors.Is(err, store.ErrOutOfScope):
		return http.StatusForbidden

	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrDuplicateApplication),
		errors.Is(err, store.ErrStudentHasActiveBooking),
		errors.Is(err, store.ErrRoomMaintenance),
		errors.Is(err, store.ErrHasActiveBookings),
		errors.Is(err, store.ErrBookingNotActive),
		errors.Is(err, store.ErrApplicationReviewed),
		errors.Is(err, store.ErrParentArchived),
		errors.Is(err, store.ErrNotArchived),
		errors.Is(err, store.ErrHasDependents),
		errors.Is(err, backup.ErrDriverMismatch):
		return http.StatusConflict

	case errors.Is(err, store.ErrRoomFull),
		errors.Is(err, store.ErrCapacityBelowOccupancy),
		errors.Is(err, store.ErrDormitoryMismatch),
		errors.Is(err, store.ErrGenderPolicy),
		errors.Is(err, store.ErrNoAmountDue),
		errors.Is(err, billing.ErrInvalidSemesters),
		errors.Is(err, billing.ErrInvalidStatus),
		errors.Is(err, billing.ErrAmountRequired),
		errors.Is(err, billing.ErrAmountOutOfRange),
		errors.Is(err, billing.ErrNegativeAmount),
		errors.Is(err, auth.ErrWeakPassword):
		return http.StatusUnprocessableEntity

	case errors.Is(err, errInvalidID):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes the JSON error body for err. Server errors are logged
// and their details hidden from the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", mw.GetRequestID(c)),
			zap.Error(err))
		c.AbortWithStatusJSON(code, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

// bind decodes the JSON body into req and answers 400/413/422 on failure.
func (h *Handler) bind(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"fields": fieldErrors(verrs),
		})
	case mw.TooLarge(err):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
	case errors.Is(err, io.EOF):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "request body is required"})
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
	}
	return false
}

// bindQuery decodes query parameters into req.
func (h *Handler) bindQuery(c *gin.Context, req any) bool {
	err := c.ShouldBindQuery(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"fields": fieldErrors(verrs),
		})
		return false
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
	return false
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// scopeFor resolves the tenant scope of a request. Admins may narrow it with
// ?dormitory_id=; staff bound to a dormitory may only name their own.
func scopeFor(c *gin.Context) (store.Scope, error) {
	scope := auth.Scope(c)
	raw := c.Query("dormitory_id")
	if raw == "" {
		return scope, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return scope, errInvalidID
	}
	if !scope.Allows(id) {
		return scope, store.ErrOutOfScope
	}
	return store.ForDormitory(id), nil
}
