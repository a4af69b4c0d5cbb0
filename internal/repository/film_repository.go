package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/filmreview/film-manager/internal/model"
)

// FilmRepo provides CRUD operations over the films table.  Films are
// immutable from the coordination engine's point of view; the repository
// enforces the ownership and privacy rules that gate review issuing and
// selection.
type FilmRepo struct {
	db *sql.DB
}

// NewFilmRepo returns a new FilmRepo bound to the given database.
func NewFilmRepo(db *sql.DB) *FilmRepo { return &FilmRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span several repositories.
func (r *FilmRepo) DB() *sql.DB { return r.db }

// Create inserts a new film owned by the given user and returns its ID.
func (r *FilmRepo) Create(ctx context.Context, title string, owner uint64, private bool) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO films (title, owner, private) VALUES (?,?,?)",
		strings.TrimSpace(title), owner, private)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID returns a single film.  Private films are only returned to
// their owner; to everyone else they do not exist.
func (r *FilmRepo) GetByID(ctx context.Context, filmID, caller uint64) (model.Film, error) {
	var f model.Film
	err := r.db.QueryRowContext(ctx,
		"SELECT id,title,owner,private,created_at,updated_at FROM films WHERE id=? LIMIT 1",
		filmID).Scan(&f.ID, &f.Title, &f.Owner, &f.Private, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	if err != nil {
		return f, err
	}
	if f.Private && f.Owner != caller {
		return model.Film{}, ErrNotFound
	}
	return f, nil
}

// ListPublic returns every public film ordered by id.
func (r *FilmRepo) ListPublic(ctx context.Context) ([]model.Film, error) {
	return r.list(ctx, "SELECT id,title,owner,private,created_at,updated_at FROM films WHERE private=0 ORDER BY id")
}

// ListByOwner returns every film (public and private) created by the user.
func (r *FilmRepo) ListByOwner(ctx context.Context, owner uint64) ([]model.Film, error) {
	return r.list(ctx, "SELECT id,title,owner,private,created_at,updated_at FROM films WHERE owner=? ORDER BY id", owner)
}

func (r *FilmRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Film, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	films := make([]model.Film, 0)
	for rows.Next() {
		var f model.Film
		if err := rows.Scan(&f.ID, &f.Title, &f.Owner, &f.Private, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		films = append(films, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return films, nil
}

// Update changes a film's title and privacy.  Only the owner may update,
// and a public film that already has reviews cannot be made private since
// its issued reviews must keep pointing at a selectable film.
func (r *FilmRepo) Update(ctx context.Context, filmID, owner uint64, title string, private bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var actualOwner uint64
	var wasPrivate bool
	err = tx.QueryRowContext(ctx, "SELECT owner, private FROM films WHERE id=?", filmID).
		Scan(&actualOwner, &wasPrivate)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if actualOwner != owner {
		return ErrForbidden
	}
	if !wasPrivate && private {
		var reviews int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews WHERE film_id=?", filmID).Scan(&reviews); err != nil {
			return err
		}
		if reviews > 0 {
			return ErrConflict
		}
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE films SET title=?, private=? WHERE id=?",
		strings.TrimSpace(title), private, filmID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes a film and its review rows.  Only the owner may delete.
// It reports whether the film was public so the caller can publish the
// sentinel "deleted" status message on the film's topic.
func (r *FilmRepo) Delete(ctx context.Context, filmID, owner uint64) (wasPublic bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var actualOwner uint64
	var private bool
	err = tx.QueryRowContext(ctx, "SELECT owner, private FROM films WHERE id=?", filmID).
		Scan(&actualOwner, &private)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	if actualOwner != owner {
		return false, ErrForbidden
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM reviews WHERE film_id=?", filmID); err != nil {
		return false, err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM films WHERE id=?", filmID); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return !private, nil
}
