package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/filmreview/film-manager/internal/repository"
)

type fakeSelector struct {
	err      error
	gotUser  uint64
	gotFilm  uint64
	numCalls int
}

func (f *fakeSelector) SelectFilm(_ context.Context, userID, filmID uint64) error {
	f.numCalls++
	f.gotUser = userID
	f.gotFilm = filmID
	return f.err
}

func doSelect(t *testing.T, sel FilmSelector, filmID string, userID interface{}) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/films/:id/selection")
	c.SetParamNames("id")
	c.SetParamValues(filmID)
	if userID != nil {
		c.Set("user_id", userID)
	}
	if err := NewSelectionHandler(sel).Select(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestSelectSuccess(t *testing.T) {
	sel := &fakeSelector{}
	rec := doSelect(t, sel, "42", uint64(7))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sel.gotUser != 7 || sel.gotFilm != 42 {
		t.Fatalf("selector called with user=%d film=%d", sel.gotUser, sel.gotFilm)
	}
}

func TestSelectErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"forbidden", repository.ErrForbidden, http.StatusForbidden},
		{"conflict", repository.ErrConflict, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doSelect(t, &fakeSelector{err: tc.err}, "5", uint64(1))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestSelectBadFilmID(t *testing.T) {
	sel := &fakeSelector{}
	rec := doSelect(t, sel, "abc", uint64(1))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if sel.numCalls != 0 {
		t.Fatalf("selector called %d times for bad id", sel.numCalls)
	}
}

func TestSelectUnauthenticated(t *testing.T) {
	rec := doSelect(t, &fakeSelector{}, "5", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestUserIDFromContextTypes(t *testing.T) {
	e := echo.New()
	for _, v := range []interface{}{uint64(9), int(9), int64(9), float64(9), "9"} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set("user_id", v)
		id, err := getUserID(c)
		if err != nil || id != 9 {
			t.Fatalf("getUserID(%T) = %d, %v", v, id, err)
		}
	}
}
