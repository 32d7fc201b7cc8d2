package handlers

import (
	"fmt"
	"net/http"

	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/pkg/logger"
	"github.com/campusnet/backend/pkg/realtime"
	"github.com/labstack/echo/v4"
)

// NotificationHandler serves the notification inbox and the live stream
type NotificationHandler struct {
	notifications repositories.NotificationRepository
	hub           *realtime.Hub
	log           *logger.Logger
}

func NewNotificationHandler(notifications repositories.NotificationRepository, hub *realtime.Hub, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, hub: hub, log: log}
}

// GetNotifications returns the caller's notifications grouped by recency
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	today, yesterday, thisWeek, older, err := h.notifications.GetGrouped(userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"today":     today,
		"yesterday": yesterday,
		"this_week": thisWeek,
		"older":     older,
	})
}

// GetUnreadCount returns the number of unread notifications
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	count, err := h.notifications.GetUnreadCount(userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"unread_count": count})
}

// MarkAsRead marks one notification read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	notificationID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	if err := h.notifications.MarkAsRead(notificationID, userID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllAsRead marks every unread notification read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	if err := h.notifications.MarkAllAsRead(userID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Stream pushes the caller's live events over SSE until the client hangs up
func (h *NotificationHandler) Stream(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	if h.hub == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Realtime stream is not configured")
	}

	ctx := c.Request().Context()
	sub, err := h.hub.Subscribe(ctx, userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("Failed to open realtime subscription")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to open stream")
	}
	defer sub.Close()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(resp, "data: %s\n\n", payload); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}
