package repository

import (
	"context"
	"database/sql"

	"github.com/filmreview/film-manager/internal/model"
)

// ReviewRepo provides data access to the reviews table: issuing review
// invitations, listing and completing reviews and deleting uncompleted
// ones.  The `active` column is deliberately out of scope here — it is
// mutated only through the SelectionRepo transaction.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo returns a new ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Issue invites one or more users to review a film.  The whole batch is
// inserted atomically: the film must exist, be public and be owned by the
// caller, every invitee must exist and none of them may already hold an
// invitation for the film, otherwise nothing is inserted.  A private film
// is reported as ErrNotFound rather than ErrForbidden so its existence is
// not leaked.
func (r *ReviewRepo) Issue(ctx context.Context, filmID uint64, reviewerIDs []uint64, owner uint64) ([]model.Review, error) {
	if len(reviewerIDs) == 0 {
		return nil, ErrConflict
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
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
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if private {
		return nil, ErrNotFound
	}
	if actualOwner != owner {
		return nil, ErrForbidden
	}

	// Count invitees that exist and are not already invited to this film.
	// A mismatch with the batch size means a duplicate or unknown user.
	query := "SELECT COUNT(*) FROM users WHERE id IN ("
	args := make([]interface{}, 0, len(reviewerIDs)+1)
	for i, id := range reviewerIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ") AND id NOT IN (SELECT reviewer_id FROM reviews WHERE film_id = ?)"
	args = append(args, filmID)
	var eligible int
	if err = tx.QueryRowContext(ctx, query, args...).Scan(&eligible); err != nil {
		return nil, err
	}
	if eligible != len(reviewerIDs) {
		return nil, ErrConflict
	}

	insert := "INSERT INTO reviews (film_id, reviewer_id, completed, active) VALUES "
	insArgs := make([]interface{}, 0, len(reviewerIDs)*2)
	for i, id := range reviewerIDs {
		if i > 0 {
			insert += ","
		}
		insert += "(?, ?, 0, 0)"
		insArgs = append(insArgs, filmID, id)
	}
	if _, err = tx.ExecContext(ctx, insert, insArgs...); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	created := make([]model.Review, 0, len(reviewerIDs))
	for _, id := range reviewerIDs {
		created = append(created, model.Review{FilmID: filmID, ReviewerID: id})
	}
	return created, nil
}

// ListByFilm returns one page of a film's reviews together with the total
// number of reviews.  Page numbers start at 1.
func (r *ReviewRepo) ListByFilm(ctx context.Context, filmID uint64, pageNo, pageSize int) ([]model.Review, int, error) {
	if pageNo < 1 {
		pageNo = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reviews WHERE film_id=?", filmID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT film_id, reviewer_id, completed, active, review_date, rating, review
		 FROM reviews WHERE film_id = ?
		 ORDER BY reviewer_id
		 LIMIT ?, ?`,
		filmID, (pageNo-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	reviews := make([]model.Review, 0)
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// GetSingle returns the review issued to one reviewer for one film.
func (r *ReviewRepo) GetSingle(ctx context.Context, filmID, reviewerID uint64) (model.Review, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT film_id, reviewer_id, completed, active, review_date, rating, review
		 FROM reviews WHERE film_id = ? AND reviewer_id = ?`,
		filmID, reviewerID)
	rev, err := scanReview(row)
	if err == sql.ErrNoRows {
		return model.Review{}, ErrNotFound
	}
	if err != nil {
		return model.Review{}, err
	}
	return rev, nil
}

// Complete flips a review to completed and records date, rating and text.
// Only the invited reviewer may complete their own review, and a review
// that is already completed is immutable.
func (r *ReviewRepo) Complete(ctx context.Context, filmID, reviewerID, caller uint64, date *string, rating *int, text *string) error {
	if caller != reviewerID {
		return ErrForbidden
	}
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

	var completed bool
	err = tx.QueryRowContext(ctx,
		"SELECT completed FROM reviews WHERE film_id=? AND reviewer_id=?",
		filmID, reviewerID).Scan(&completed)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if completed {
		return ErrConflict
	}

	// Build the SET clause from whichever fields the caller supplied.
	query := "UPDATE reviews SET completed = 1, active = 0"
	args := make([]interface{}, 0, 5)
	if date != nil {
		query += ", review_date = ?"
		args = append(args, *date)
	}
	if rating != nil {
		query += ", rating = ?"
		args = append(args, *rating)
	}
	if text != nil {
		query += ", review = ?"
		args = append(args, *text)
	}
	query += " WHERE film_id = ? AND reviewer_id = ?"
	args = append(args, filmID, reviewerID)
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes a review invitation.  Only the film's owner may delete,
// and a completed review may not be deleted.
func (r *ReviewRepo) Delete(ctx context.Context, filmID, reviewerID, owner uint64) error {
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
	var completed bool
	err = tx.QueryRowContext(ctx,
		`SELECT f.owner, r.completed FROM films f
		 JOIN reviews r ON f.id = r.film_id
		 WHERE f.id = ? AND r.reviewer_id = ?`,
		filmID, reviewerID).Scan(&actualOwner, &completed)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if actualOwner != owner {
		return ErrForbidden
	}
	if completed {
		return ErrConflict
	}
	if _, err = tx.ExecContext(ctx,
		"DELETE FROM reviews WHERE film_id=? AND reviewer_id=?", filmID, reviewerID); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReview(s scanner) (model.Review, error) {
	var rev model.Review
	var date sql.NullString
	var rating sql.NullInt64
	var text sql.NullString
	if err := s.Scan(&rev.FilmID, &rev.ReviewerID, &rev.Completed, &rev.Active, &date, &rating, &text); err != nil {
		return model.Review{}, err
	}
	if date.Valid {
		d := date.String
		rev.ReviewDate = &d
	}
	if rating.Valid {
		n := int(rating.Int64)
		rev.Rating = &n
	}
	if text.Valid {
		t := text.String
		rev.Text = &t
	}
	return rev, nil
}
