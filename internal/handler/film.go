package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/filmreview/film-manager/internal/coordinator"
	"github.com/filmreview/film-manager/internal/queue"
	"github.com/filmreview/film-manager/internal/repository"
)

// FilmHandler covers film CRUD. Deleting a public film retires its status
// topic via the status sink.
type FilmHandler struct {
	Films  *repository.FilmRepo
	Status coordinator.StatusSink
}

func NewFilmHandler(f *repository.FilmRepo, status coordinator.StatusSink) *FilmHandler {
	return &FilmHandler{Films: f, Status: status}
}

type filmReq struct {
	Title   string `json:"title"`
	Private bool   `json:"private"`
}

// Create adds a film owned by the caller.
func (h *FilmHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req filmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Films.Create(ctx, req.Title, uid, req.Private)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create film failed"})
	}

	f, err := h.Films.GetByID(ctx, id, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load film failed"})
	}
	return c.JSON(http.StatusCreated, f)
}

// List returns public films plus the caller's own private ones.
func (h *FilmHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	films, err := h.Films.ListPublic(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	own, err := h.Films.ListByOwner(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	for _, f := range own {
		if f.Private {
			films = append(films, f)
		}
	}
	return c.JSON(http.StatusOK, films)
}

// Get returns one film; private films are visible to their owner only.
func (h *FilmHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	f, err := h.Films.GetByID(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, f)
}

// Update edits title/visibility; only the owner may do so, and a public
// film with issued reviews cannot go back to private.
func (h *FilmHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req filmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Films.Update(ctx, id, uid, req.Title, req.Private); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not the owner"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "film has issued reviews"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	f, err := h.Films.GetByID(ctx, id, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load film failed"})
	}
	return c.JSON(http.StatusOK, f)
}

// Delete removes a film and its reviews. Watchers of a public film get a
// terminal "deleted" status so they drop the topic.
func (h *FilmHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	wasPublic, err := h.Films.Delete(ctx, id, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not the owner"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	if wasPublic && h.Status != nil {
		// Announcing after the commit keeps the channel consistent with
		// storage; a publish failure is logged inside the sink.
		_ = h.Status.PublishFilmStatus(ctx, id, queue.DeletedMessage())
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "deleted"})
}
