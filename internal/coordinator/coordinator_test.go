package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filmreview/film-manager/internal/presence"
	"github.com/filmreview/film-manager/internal/queue"
	"github.com/filmreview/film-manager/internal/repository"
)

// fakeStore mimics the storage adapter's exclusivity rules in memory: one
// active film per user, one active reviewer per film, conditional claim
// under a single mutex so concurrent calls settle exactly one winner.
type fakeStore struct {
	mu           sync.Mutex
	users        map[uint64]string
	films        map[uint64]string
	private      map[uint64]bool
	activeByUser map[uint64]uint64 // userID -> filmID
	activeByFilm map[uint64]uint64 // filmID -> userID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        map[uint64]string{},
		films:        map[uint64]string{},
		private:      map[uint64]bool{},
		activeByUser: map[uint64]uint64{},
		activeByFilm: map[uint64]uint64{},
	}
}

func (s *fakeStore) TrySelect(_ context.Context, userID, filmID uint64) (*repository.SelectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	title, ok := s.films[filmID]
	if !ok || s.private[filmID] {
		return nil, repository.ErrNotFound
	}
	if holder, held := s.activeByFilm[filmID]; held && holder != userID {
		return nil, repository.ErrConflict
	}
	res := &repository.SelectionResult{UserName: s.users[userID], FilmTitle: title}
	if prev, had := s.activeByUser[userID]; had && prev != filmID {
		p := prev
		res.DeselectedFilmID = &p
		delete(s.activeByFilm, prev)
	}
	s.activeByUser[userID] = filmID
	s.activeByFilm[filmID] = userID
	return res, nil
}

type fakePresence struct {
	mu        sync.Mutex
	broadcast []presence.Event
	recorded  map[uint64]presence.Event
}

func newFakePresence() *fakePresence {
	return &fakePresence{recorded: map[uint64]presence.Event{}}
}

func (f *fakePresence) Broadcast(ev presence.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcast = append(f.broadcast, ev)
}

func (f *fakePresence) RecordLastEvent(userID uint64, ev presence.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded[userID] = ev
}

type published struct {
	filmID uint64
	msg    queue.FilmStatusMessage
}

type fakeStatus struct {
	mu   sync.Mutex
	sent []published
	fail bool
}

func (f *fakeStatus) PublishFilmStatus(_ context.Context, filmID uint64, msg queue.FilmStatusMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker down")
	}
	f.sent = append(f.sent, published{filmID: filmID, msg: msg})
	return nil
}

func newCoordinator() (*Coordinator, *fakeStore, *fakePresence, *fakeStatus) {
	store := newFakeStore()
	pres := newFakePresence()
	status := &fakeStatus{}
	return New(store, pres, status), store, pres, status
}

func TestSelectUnclaimedFilm(t *testing.T) {
	c, store, pres, status := newCoordinator()
	store.users[1] = "alice"
	store.films[7] = "Heat"

	require.NoError(t, c.SelectFilm(context.Background(), 1, 7))

	require.Len(t, pres.broadcast, 1)
	ev := pres.broadcast[0]
	assert.Equal(t, presence.KindUpdate, ev.TypeMessage)
	assert.Equal(t, uint64(1), ev.UserID)
	assert.Equal(t, "alice", ev.UserName)
	require.NotNil(t, ev.FilmID)
	assert.Equal(t, uint64(7), *ev.FilmID)

	cached, ok := pres.recorded[1]
	require.True(t, ok)
	assert.Equal(t, presence.KindLogin, cached.TypeMessage)

	require.Len(t, status.sent, 1)
	assert.Equal(t, uint64(7), status.sent[0].filmID)
	assert.Equal(t, queue.StatusActive, status.sent[0].msg.TypeMessage)
	require.NotNil(t, status.sent[0].msg.UserID)
	assert.Equal(t, uint64(1), *status.sent[0].msg.UserID)
}

func TestSwitchingFilmsEmitsInactiveForOldTopic(t *testing.T) {
	c, store, _, status := newCoordinator()
	store.users[1] = "alice"
	store.films[7] = "Heat"
	store.films[9] = "Alien"

	require.NoError(t, c.SelectFilm(context.Background(), 1, 7))
	require.NoError(t, c.SelectFilm(context.Background(), 1, 9))

	// active(7), then active(9) + inactive(7)
	require.Len(t, status.sent, 3)
	assert.Equal(t, uint64(9), status.sent[1].filmID)
	assert.Equal(t, queue.StatusActive, status.sent[1].msg.TypeMessage)
	assert.Equal(t, uint64(7), status.sent[2].filmID)
	assert.Equal(t, queue.StatusInactive, status.sent[2].msg.TypeMessage)
	assert.Nil(t, status.sent[2].msg.UserID)

	assert.Equal(t, uint64(9), store.activeByUser[1])
	_, stillHeld := store.activeByFilm[7]
	assert.False(t, stillHeld)
}

func TestReselectingSameFilmEmitsNoInactive(t *testing.T) {
	c, store, _, status := newCoordinator()
	store.users[1] = "alice"
	store.films[7] = "Heat"

	require.NoError(t, c.SelectFilm(context.Background(), 1, 7))
	require.NoError(t, c.SelectFilm(context.Background(), 1, 7))

	for _, p := range status.sent {
		assert.Equal(t, queue.StatusActive, p.msg.TypeMessage)
	}
}

func TestConcurrentSelectionsSettleOneWinner(t *testing.T) {
	c, store, pres, status := newCoordinator()
	store.users[1] = "alice"
	store.users[2] = "bob"
	store.films[3] = "Ran"

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, uid := range []uint64{1, 2} {
		wg.Add(1)
		go func(i int, uid uint64) {
			defer wg.Done()
			errs[i] = c.SelectFilm(context.Background(), uid, 3)
		}(i, uid)
	}
	wg.Wait()

	var winners, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, repository.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, conflicts)

	// Exactly one broadcast and one status publish, on the winner's behalf.
	assert.Len(t, pres.broadcast, 1)
	require.Len(t, status.sent, 1)
	winner := store.activeByFilm[3]
	require.NotNil(t, status.sent[0].msg.UserID)
	assert.Equal(t, winner, *status.sent[0].msg.UserID)
}

func TestPrivateOrMissingFilmEmitsNothing(t *testing.T) {
	c, store, pres, status := newCoordinator()
	store.users[1] = "alice"
	store.films[4] = "Secret"
	store.private[4] = true

	err := c.SelectFilm(context.Background(), 1, 4)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = c.SelectFilm(context.Background(), 1, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.Empty(t, pres.broadcast)
	assert.Empty(t, status.sent)
	assert.Empty(t, store.activeByUser)
}

func TestStatusSinkFailureDoesNotFailSelection(t *testing.T) {
	c, store, pres, status := newCoordinator()
	status.fail = true
	store.users[1] = "alice"
	store.films[7] = "Heat"

	require.NoError(t, c.SelectFilm(context.Background(), 1, 7))
	assert.Len(t, pres.broadcast, 1)
	assert.Equal(t, uint64(7), store.activeByUser[1])
}
