package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/filmreview/film-manager/internal/repository"
)

// FilmSelector is what the selection endpoint needs from the coordinator.
type FilmSelector interface {
	SelectFilm(ctx context.Context, userID, filmID uint64) error
}

// SelectionHandler exposes the exclusive film claim.
type SelectionHandler struct {
	Selector FilmSelector
}

func NewSelectionHandler(sel FilmSelector) *SelectionHandler {
	return &SelectionHandler{Selector: sel}
}

// Select claims the film for the caller. Exactly one reviewer can hold a
// film at a time; a losing racer gets 409 and the winner's claim stands.
func (h *SelectionHandler) Select(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	filmID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Selector.SelectFilm(ctx, uid, filmID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not invited"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "film already selected"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "selection failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "selected", "filmId": filmID})
}
