package model

import "time"

// Film represents a row in the `films` table.  A private film is visible
// only to its owner and can never be issued for review or selected; a
// public film may be reviewed by any invited user.
//
// Fields:
//  ID        – primary key identifier.
//  Title     – film title.
//  Owner     – user who created the film.
//  Private   – whether the film is restricted to its owner.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Film struct {
    ID        uint64    `json:"id"`        // films.id
    Title     string    `json:"title"`     // films.title
    Owner     uint64    `json:"owner"`     // films.owner
    Private   bool      `json:"private"`   // films.private
    CreatedAt time.Time `json:"createdAt"` // films.created_at
    UpdatedAt time.Time `json:"updatedAt"` // films.updated_at
}
