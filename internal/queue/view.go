package queue

import "sync"

// StatusView is the in-process mirror of per-film status, fed by the
// bridge consumer.  One entry per film; a deleted sentinel forgets the
// film entirely.
type StatusView struct {
	mu    sync.RWMutex
	films map[uint64]FilmStatusMessage
}

// NewStatusView returns an empty view.
func NewStatusView() *StatusView {
	return &StatusView{films: make(map[uint64]FilmStatusMessage)}
}

// Apply folds one broker message into the view.
func (v *StatusView) Apply(filmID uint64, msg FilmStatusMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if msg.TypeMessage == StatusDeleted {
		delete(v.films, filmID)
		return
	}
	v.films[filmID] = msg
}

// Get returns the last seen status for a film.
func (v *StatusView) Get(filmID uint64) (FilmStatusMessage, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	msg, ok := v.films[filmID]
	return msg, ok
}

// Len reports how many films the view currently tracks.
func (v *StatusView) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.films)
}
