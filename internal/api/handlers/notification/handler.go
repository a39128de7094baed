package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/pkazakov/reminderd/internal/api/dto"
	"github.com/pkazakov/reminderd/internal/api/respond"
	"github.com/pkazakov/reminderd/internal/model"
	notifsvc "github.com/pkazakov/reminderd/internal/service/notification"
)

// notificationService defines the interface that the Handler depends on.
type notificationService interface {
	CreateNotification(ctx context.Context, subject, dateText, text string) (model.Notification, error)
	ListUpcoming(ctx context.Context, subject string) ([]model.Notification, error)
}

// Handler handles HTTP requests related to reminders. It is the surface the
// conversational frontend talks to.
type Handler struct {
	service   notificationService
	validator *validator.Validate
}

// NewHandler creates a new Handler instance.
func NewHandler(s notificationService, v *validator.Validate) *Handler {
	return &Handler{service: s, validator: v}
}

// Create handles POST requests to schedule a new reminder.
//
// Validation failures (bad date format, date not in the future) come back as
// 400 with a distinct message; anything else is a 500.
func (h *Handler) Create(c *ginext.Context) {
	var req dto.CreateRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	n, err := h.service.CreateNotification(c.Request.Context(), req.Subject, req.Date, req.Text)
	if err != nil {
		if errors.Is(err, notifsvc.ErrInvalidDateFormat) || errors.Is(err, notifsvc.ErrDateNotInFuture) {
			zlog.Logger.Warn().Err(err).Str("date", req.Date).Msg("rejected reminder creation")
			respond.Fail(c.Writer, http.StatusBadRequest, err)
			return
		}

		zlog.Logger.Error().Err(err).Str("subject", req.Subject).Msg("failed to create reminder")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, n)
}

// ListUpcoming handles GET requests for a subject's pending reminders.
func (h *Handler) ListUpcoming(c *ginext.Context) {
	subject := c.Param("subject")
	if subject == "" {
		zlog.Logger.Warn().Msg("missing subject")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("missing subject"))
		return
	}

	notifications, err := h.service.ListUpcoming(c.Request.Context(), subject)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("subject", subject).Msg("failed to list reminders")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	if notifications == nil {
		notifications = []model.Notification{}
	}

	respond.OK(c.Writer, notifications)
}
