// Package coordinator owns the select-film protocol: the storage
// transaction decides the outcome, and only after it commits are the
// presence and film-status notifications fanned out.  The transactional
// core stays free of transport concerns; both sinks are interfaces so the
// protocol is testable in isolation.
package coordinator

import (
	"context"
	"log"

	"github.com/filmreview/film-manager/internal/presence"
	"github.com/filmreview/film-manager/internal/queue"
	"github.com/filmreview/film-manager/internal/repository"
)

// SelectionStore performs the exclusivity-preserving state change.
// *repository.SelectionRepo is the production implementation.
type SelectionStore interface {
	TrySelect(ctx context.Context, userID, filmID uint64) (*repository.SelectionResult, error)
}

// PresenceSink receives the presence side of a committed selection.
// *presence.Hub is the production implementation.
type PresenceSink interface {
	Broadcast(ev presence.Event)
	RecordLastEvent(userID uint64, ev presence.Event)
}

// StatusSink receives per-film status messages.  The status publisher is
// the production implementation.
type StatusSink interface {
	PublishFilmStatus(ctx context.Context, filmID uint64, msg queue.FilmStatusMessage) error
}

// Coordinator wires the store to the two notification sinks.
type Coordinator struct {
	store    SelectionStore
	presence PresenceSink
	status   StatusSink
}

// New returns a Coordinator over the given store and sinks.
func New(store SelectionStore, presenceSink PresenceSink, statusSink StatusSink) *Coordinator {
	return &Coordinator{store: store, presence: presenceSink, status: statusSink}
}

// SelectFilm makes filmID the user's one active film.
//
// The storage transaction runs first and commits before any broadcast, so
// observers never see a notification for a state a concurrent reader of
// storage would not also observe.  On failure the sentinel error
// propagates to the caller and nothing is emitted.  On success exactly one
// update presence event goes out, plus an active status message for the
// selected film and, when a different film was deselected, an inactive
// message for that film's topic.  Sink failures are logged and swallowed:
// a dropped notification is a liveness defect that self-heals on the next
// state change, not a correctness defect.
func (c *Coordinator) SelectFilm(ctx context.Context, userID, filmID uint64) error {
	res, err := c.store.TrySelect(ctx, userID, filmID)
	if err != nil {
		return err
	}

	ev := presence.UpdateEvent(userID, res.UserName, filmID, res.FilmTitle)
	c.presence.Broadcast(ev)
	// The cache keeps a login-shaped event so replay rebuilds the online
	// list entry with the film the user is now active on.
	c.presence.RecordLastEvent(userID, presence.LoginEvent(userID, res.UserName, &filmID, &res.FilmTitle))

	if err := c.status.PublishFilmStatus(ctx, filmID, queue.ActiveMessage(userID, res.UserName)); err != nil {
		log.Printf("coordinator: status publish for film %d failed: %v", filmID, err)
	}
	if res.DeselectedFilmID != nil {
		if err := c.status.PublishFilmStatus(ctx, *res.DeselectedFilmID, queue.InactiveMessage()); err != nil {
			log.Printf("coordinator: status publish for film %d failed: %v", *res.DeselectedFilmID, err)
		}
	}
	return nil
}
