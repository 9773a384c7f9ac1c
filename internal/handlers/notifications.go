package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/notifications"
)

const keepAliveInterval = 25 * time.Second

type NotificationHandler struct {
	Hub *notifications.Hub
}

// NewNotificationHandler создает SSE-обработчик уведомлений.
func NewNotificationHandler(hub *notifications.Hub) *NotificationHandler {
	return &NotificationHandler{Hub: hub}
}

// Stream открывает SSE-поток событий о планах пользователя.
func (h *NotificationHandler) Stream(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return serverError(c)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	ch, unsubscribe := h.Hub.Subscribe(userID)
	defer unsubscribe()

	_ = writeSSE(c, notifications.Event{Type: notifications.EventConnected, Timestamp: time.Now().UTC(), Data: map[string]string{"user_id": userID.String()}})
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.Response().Write([]byte(": keep-alive\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeSSE(c, event); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func writeSSE(c echo.Context, event notifications.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := c.Response().Write([]byte("event: " + event.Type + "\n")); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return err
	}

	return nil
}
