package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/reminders/api/transport"
	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/pkg/httpcontext"
	notificationUC "github.com/fastygo/reminders/usecase/notification"
)

// NotificationService is implemented by usecase/notification.Projector.
type NotificationService interface {
	ListNotifications(ctx context.Context, userID string, now time.Time) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, userID string, notificationIDs []string) (notificationUC.MarkResult, error)
}

type NotificationHandler struct {
	baseHandler
	projector NotificationService
}

func NewNotificationHandler(projector NotificationService, adapter *httpcontext.Adapter, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		baseHandler: newBaseHandler(adapter, logger),
		projector:   projector,
	}
}

// @Summary List notifications, oldest first
// @Tags notifications
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	items, err := h.projector.ListNotifications(stdCtx, userID, h.now())
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	meta := map[string]int{
		"total":       len(items),
		"unreadCount": notificationUC.UnreadCount(items),
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(items, meta))
}

// @Summary Mark notifications as read
// @Tags notifications
// @Router /api/v1/notifications/mark-read [post]
func (h *NotificationHandler) MarkRead(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.MarkReadRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.projector.MarkAsRead(stdCtx, userID, req.NotificationIDs)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if result.Skipped > 0 {
		h.log(stdCtx).Info("mark-read skipped ids", zap.Int("skipped", result.Skipped))
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}
