package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode,omitempty"`
}

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	DB   Pinger
	Mode string
}

// NewHealthHandler создает обработчик проверки состояния.
func NewHealthHandler(db Pinger, mode string) *HealthHandler {
	return &HealthHandler{DB: db, Mode: mode}
}

// Health возвращает статус сервиса и режим генерации планов.
func (h *HealthHandler) Health(c echo.Context) error {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := h.DB.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Mode: h.Mode})
		}
	}

	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Mode: h.Mode})
}
