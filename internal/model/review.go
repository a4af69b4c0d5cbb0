package model

// Review links a reviewer to a film they were invited to review.  It is
// the one mutable relationship in the system: `active` flips under the
// selection protocol and `completed` flips one way when the review is
// submitted.  A completed review is immutable and can be neither deleted
// nor reselected.
//
// Invariants enforced by the selection transaction:
//  - at most one row per reviewer has active = true
//  - at most one row per film has active = true
//
// Fields:
//  FilmID     – film under review.
//  ReviewerID – invited reviewer.
//  Completed  – whether the review has been submitted.
//  Active     – whether this film is the reviewer's current selection.
//  ReviewDate – submission date (nullable until completed).
//  Rating     – 1..10 rating (nullable until completed).
//  Text       – review body (nullable until completed).
type Review struct {
    FilmID     uint64  `json:"filmId"`     // reviews.film_id
    ReviewerID uint64  `json:"reviewerId"` // reviews.reviewer_id
    Completed  bool    `json:"completed"`  // reviews.completed
    Active     bool    `json:"active"`     // reviews.active
    ReviewDate *string `json:"reviewDate,omitempty"` // reviews.review_date
    Rating     *int    `json:"rating,omitempty"`     // reviews.rating
    Text       *string `json:"review,omitempty"`     // reviews.review
}
