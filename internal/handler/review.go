package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/filmreview/film-manager/internal/repository"
)

// ReviewHandler covers the review invitation lifecycle.
type ReviewHandler struct {
	Reviews *repository.ReviewRepo
}

func NewReviewHandler(r *repository.ReviewRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: r}
}

type issueReq struct {
	ReviewerIDs []uint64 `json:"reviewerIds"`
}

type completeReq struct {
	ReviewDate *string `json:"reviewDate"`
	Rating     *int    `json:"rating"`
	Review     *string `json:"review"`
}

type reviewPage struct {
	Items    interface{} `json:"items"`
	Total    int         `json:"total"`
	PageNo   int         `json:"pageNo"`
	PageSize int         `json:"pageSize"`
}

// Issue invites a batch of reviewers to a public film the caller owns.
// The batch is all-or-nothing: one ineligible invitee rejects the lot.
func (h *ReviewHandler) Issue(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	filmID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req issueReq
	if err := c.Bind(&req); err != nil || len(req.ReviewerIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reviewerIds required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reviews, err := h.Reviews.Issue(ctx, filmID, req.ReviewerIDs, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not the owner"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "ineligible reviewer in batch"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue failed"})
	}
	return c.JSON(http.StatusCreated, reviews)
}

// List returns a page of a film's reviews.
func (h *ReviewHandler) List(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	filmID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	pageNo, _ := strconv.Atoi(c.QueryParam("pageNo"))
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageNo < 1 {
		pageNo = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reviews, total, err := h.Reviews.ListByFilm(ctx, filmID, pageNo, pageSize)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, reviewPage{Items: reviews, Total: total, PageNo: pageNo, PageSize: pageSize})
}

// Get returns one reviewer's review of a film.
func (h *ReviewHandler) Get(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	filmID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	reviewerID, err := pathID(c, "reviewerId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reviewer id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rv, err := h.Reviews.GetSingle(ctx, filmID, reviewerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, rv)
}

// Complete records the reviewer's verdict and releases their hold on the film.
func (h *ReviewHandler) Complete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	filmID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	reviewerID, err := pathID(c, "reviewerId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reviewer id"})
	}
	var req completeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 10) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating out of range"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Reviews.Complete(ctx, filmID, reviewerID, uid, req.ReviewDate, req.Rating, req.Review); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your review"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "review already completed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "complete failed"})
	}

	rv, err := h.Reviews.GetSingle(ctx, filmID, reviewerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load review failed"})
	}
	return c.JSON(http.StatusOK, rv)
}

// Delete withdraws an uncompleted invitation; owner only.
func (h *ReviewHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	filmID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	reviewerID, err := pathID(c, "reviewerId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reviewer id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Reviews.Delete(ctx, filmID, reviewerID, uid); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not the owner"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "completed review cannot be deleted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "deleted"})
}
