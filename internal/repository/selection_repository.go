package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// SelectionRepo owns consistency of the `active` column on reviews.  It is
// the single point of mutual exclusion for the selection protocol: the
// read-modify-write sequence below runs inside one transaction and relies
// on a conditional update (zero affected rows means another reviewer holds
// the film) instead of explicit locks, so two concurrent TrySelect calls
// for the same film commit exactly one winner.
type SelectionRepo struct {
	db *sql.DB
}

// NewSelectionRepo returns a new SelectionRepo bound to the given database.
func NewSelectionRepo(db *sql.DB) *SelectionRepo { return &SelectionRepo{db: db} }

// SelectionResult reports a committed selection.  UserName and FilmTitle
// feed the presence event; DeselectedFilmID is set when the transaction
// cleared the user's previous active film and that film differs from the
// newly selected one.
type SelectionResult struct {
	UserName         string
	FilmTitle        string
	DeselectedFilmID *uint64
}

// FilmSelection pairs a public film with its active reviewer, if any.
// It drives the startup republish of retained film-status messages.
type FilmSelection struct {
	FilmID   uint64
	UserID   *uint64
	UserName *string
}

// TrySelect marks filmID as the user's one active film.  The whole
// sequence is a single transaction:
//
//  1. the film must exist and be public, otherwise ErrNotFound;
//  2. the user's currently active film, if any, is read so the caller can
//     notify its topic of the deselection;
//  3. the user's active flag is cleared on all their rows;
//  4. the (user, film) row is flipped to active only while no other
//     reviewer holds the film and the review is not completed — when that
//     conditional update touches zero rows the transaction aborts with
//     ErrConflict.
//
// Success and ErrConflict are mutually exclusive terminal outcomes; any
// failure rolls the transaction back so partial states are never visible.
// InnoDB may resolve two racing claims of one film by killing a deadlock
// victim instead of blocking it; that victim lost the race all the same,
// so lock errors surface as ErrConflict rather than as storage failures.
func (r *SelectionRepo) TrySelect(ctx context.Context, userID, filmID uint64) (*SelectionResult, error) {
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

	// 1. Film must be selectable (exists, public).
	var id uint64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM films WHERE id = ? AND private = 0", filmID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// 2. Read the user's currently active film before clearing it.
	var deselected *uint64
	var prev uint64
	err = tx.QueryRowContext(ctx,
		`SELECT f.id FROM reviews r
		 JOIN films f ON r.film_id = f.id
		 WHERE r.reviewer_id = ? AND r.active = 1`, userID).Scan(&prev)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil && prev != filmID {
		deselected = &prev
	}

	// Resolve the names carried by the outbound notifications while still
	// inside the transaction, so the broadcast matches the committed state.
	res := &SelectionResult{DeselectedFilmID: deselected}
	err = tx.QueryRowContext(ctx,
		`SELECT u.name, f.title FROM reviews r
		 JOIN users u ON r.reviewer_id = u.id
		 JOIN films f ON r.film_id = f.id
		 WHERE r.reviewer_id = ? AND r.film_id = ?`,
		userID, filmID).Scan(&res.UserName, &res.FilmTitle)
	if err == sql.ErrNoRows {
		// No invitation for this film; the conditional update below could
		// never match, so fail the same way it would.
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}

	// 3. One active film per user: clear every row first.
	if _, err = tx.ExecContext(ctx,
		"UPDATE reviews SET active = 0 WHERE reviewer_id = ?", userID); err != nil {
		if lockConflict(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	// 4. One active reviewer per film: flip the row only while nobody else
	// holds it.  The derived table keeps MySQL from rejecting the self
	// reference in the NOT EXISTS subquery.
	result, err := tx.ExecContext(ctx,
		`UPDATE reviews SET active = 1
		 WHERE reviewer_id = ? AND film_id = ? AND completed = 0
		   AND NOT EXISTS (
		     SELECT 1 FROM (
		       SELECT 1 FROM reviews WHERE film_id = ? AND reviewer_id <> ? AND active = 1
		     ) AS holder
		   )`,
		userID, filmID, filmID, userID)
	if err != nil {
		if lockConflict(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConflict
	}

	if err = tx.Commit(); err != nil {
		if lockConflict(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	committed = true
	return res, nil
}

// lockConflict reports whether the error is an InnoDB deadlock (1213) or
// lock wait timeout (1205).  Either means a concurrent claimant held the
// contended rows first.
func lockConflict(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}

// ActiveFilm returns the film the user is currently active on, or nil when
// they have no selection.  Login events use it to carry the active film.
func (r *SelectionRepo) ActiveFilm(ctx context.Context, userID uint64) (*uint64, *string, error) {
	var id uint64
	var title string
	err := r.db.QueryRowContext(ctx,
		`SELECT f.id, f.title FROM reviews r
		 JOIN films f ON r.film_id = f.id
		 WHERE r.reviewer_id = ? AND r.active = 1`, userID).Scan(&id, &title)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return &id, &title, nil
}

// FilmSelections returns the selection state of every public film,
// including films nobody is active on.  The status publisher replays these
// as retained messages at startup.
func (r *SelectionRepo) FilmSelections(ctx context.Context) ([]FilmSelection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT f.id, u.id, u.name
		 FROM films f
		 LEFT JOIN reviews r ON f.id = r.film_id AND r.active = 1
		 LEFT JOIN users u ON u.id = r.reviewer_id
		 WHERE f.private = 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	selections := make([]FilmSelection, 0)
	for rows.Next() {
		var s FilmSelection
		var uid sql.NullInt64
		var name sql.NullString
		if err := rows.Scan(&s.FilmID, &uid, &name); err != nil {
			return nil, err
		}
		if uid.Valid {
			u := uint64(uid.Int64)
			s.UserID = &u
		}
		if name.Valid {
			n := name.String
			s.UserName = &n
		}
		selections = append(selections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return selections, nil
}
