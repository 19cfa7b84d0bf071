package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/service"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/storage"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/logger"
)

type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Message: message})
}

// respondServiceError maps service and domain errors to a status and body.
// Internal error text is only exposed outside production; not-found bodies
// never include it.
func (h *Handler) respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Message: "validation failed",
			Fields:  validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, consultation.ErrNotFound):
		respondError(c, http.StatusNotFound, "consultation not found")

	case errors.Is(err, storage.ErrVideoNotFound):
		respondError(c, http.StatusNotFound, "video not found")

	case errors.Is(err, domain.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "user not found")

	case errors.Is(err, consultation.ErrAlreadyExists),
		errors.Is(err, domain.ErrUserExists):
		respondError(c, http.StatusConflict, err.Error())

	case errors.Is(err, consultation.ErrInvalidID),
		errors.Is(err, consultation.ErrInvalidConditionType),
		errors.Is(err, consultation.ErrInvalidStatus),
		errors.Is(err, consultation.ErrInvalidDateFilter),
		errors.Is(err, consultation.ErrInvalidDateRange),
		errors.Is(err, storage.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidIdentifier),
		errors.Is(err, service.ErrMissingFile),
		errors.Is(err, service.ErrUnsupportedMediaType):
		respondError(c, http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrFileTooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, err.Error())

	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, "access denied")

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountInactive):
		respondError(c, http.StatusUnauthorized, "invalid credentials")

	case errors.Is(err, service.ErrAccountLocked):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
			Message: "account temporarily locked",
			Code:    "ACCOUNT_LOCKED",
		})

	case errors.Is(err, storage.ErrStorageUnavailable):
		respondError(c, http.StatusInternalServerError, h.internalMessage("video storage is unavailable", err))

	default:
		h.log.Error("unhandled error",
			zap.String("path", c.FullPath()),
			logger.RequestID(requestID(c)),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, h.internalMessage("internal server error", err))
	}
}

func (h *Handler) internalMessage(public string, err error) string {
	if h.exposeErrors {
		return public + ": " + err.Error()
	}
	return public
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}

	return true
}

// parseQueryInt returns defaultVal when key is absent and false when it is
// present but not a non-negative integer.
func parseQueryInt(c *gin.Context, key string, defaultVal int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return defaultVal, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		respondError(c, http.StatusBadRequest, key+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}
