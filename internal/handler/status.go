package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/filmreview/film-manager/internal/presence"
	"github.com/filmreview/film-manager/internal/queue"
)

// StatusHandler answers point queries against the live status view, with
// the retained store as fallback for films the bridge has not relayed yet.
type StatusHandler struct {
	View *queue.StatusView
	RDB  *redis.Client
	Hub  *presence.Hub
}

func NewStatusHandler(view *queue.StatusView, rdb *redis.Client, hub *presence.Hub) *StatusHandler {
	return &StatusHandler{View: view, RDB: rdb, Hub: hub}
}

// FilmStatus reports the last retained status of a film's topic.
func (h *StatusHandler) FilmStatus(c echo.Context) error {
	filmID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	if msg, ok := h.View.Get(filmID); ok {
		return c.JSON(http.StatusOK, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	msg, err := queue.Retained(ctx, h.RDB, filmID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "status lookup failed"})
	}
	if msg == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no status for film"})
	}
	return c.JSON(http.StatusOK, msg)
}

// Online mirrors the presence feed for clients that cannot hold a socket.
func (h *StatusHandler) Online(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Hub.Online())
}
