package leave

import (
	"net/http"
	"strings"

	"leave-expiry/internal/middleware"
	"leave-expiry/internal/shared/apperror"
	"leave-expiry/internal/shared/contextutil"
	"leave-expiry/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("leave.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.handler")
	}
	return &Handler{service: service, logger: l}
}

// getActorID prefers the id resolved by middleware and falls back to the raw
// header for routes mounted without it.
func getActorID(c *gin.Context) string {
	if actorID := contextutil.ActorID(c.Request.Context()); actorID != "" {
		return actorID
	}
	if actorID := c.GetString(middleware.ActorIDKey); actorID != "" {
		return actorID
	}
	return strings.TrimSpace(c.GetHeader(middleware.ActorIDHeader))
}

func (h *Handler) log(c *gin.Context) *zap.Logger {
	return contextutil.Logger(c.Request.Context(), h.logger)
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.log(c).Warn("leave request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log(c).Warn("http create leave validation failed", zap.Error(err))
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

// ListByOwner serves GET /leave?userId=...
func (h *Handler) ListByOwner(c *gin.Context) {
	resp, err := h.service.ListByOwner(c.Request.Context(), c.Query("userId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.List(c, http.StatusOK, resp)
}

func (h *Handler) ListPending(c *gin.Context) {
	resp, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.List(c, http.StatusOK, resp)
}

func (h *Handler) GetByID(c *gin.Context) {
	resp, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id := c.Param("id")
	actorID := getActorID(c)
	h.log(c).Debug("http update leave status", zap.String("leave_id", id), zap.String("actor_id", actorID))

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log(c).Warn("http update leave status validation failed", zap.Error(err))
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.UpdateStatus(c.Request.Context(), actorID, id, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}
