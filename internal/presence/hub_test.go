package presence

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeConn records writes and can be told to fail.
type fakeConn struct {
	mu     sync.Mutex
	wrote  []Event
	fail   bool
	closed bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.wrote = append(f.wrote, v.(Event))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.wrote))
	copy(out, f.wrote)
	return out
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// stalledConn blocks in WriteJSON until the connection is closed, the way
// a peer with a full TCP window behaves.
type stalledConn struct {
	once    sync.Once
	unblock chan struct{}
	mu      sync.Mutex
	closed  bool
}

func newStalledConn() *stalledConn {
	return &stalledConn{unblock: make(chan struct{})}
}

func (s *stalledConn) WriteJSON(interface{}) error {
	<-s.unblock
	return errors.New("use of closed connection")
}

func (s *stalledConn) Close() error {
	s.once.Do(func() { close(s.unblock) })
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *stalledConn) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Delivery is asynchronous, so assertions poll until the writers catch up.
func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestBroadcastReachesAllConnections(t *testing.T) {
	h := NewHub(false)
	a, b := &fakeConn{}, &fakeConn{}
	h.Register(a)
	h.Register(b)

	h.Broadcast(LoginEvent(1, "alice", nil, nil))

	for _, c := range []*fakeConn{a, b} {
		c := c
		waitUntil(t, func() bool { return len(c.events()) == 1 }, "event not delivered")
		got := c.events()
		if got[0].TypeMessage != KindLogin || got[0].UserID != 1 {
			t.Fatalf("expected a login event for user 1, got %v", got)
		}
	}
}

func TestStalledConnectionDoesNotBlockOthers(t *testing.T) {
	h := NewHub(false)
	stalled := newStalledConn()
	healthy := &fakeConn{}
	h.Register(stalled)
	h.Register(healthy)

	done := make(chan struct{})
	go func() {
		h.Broadcast(LoginEvent(1, "alice", nil, nil))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("broadcast blocked by a stalled connection")
	}

	waitUntil(t, func() bool { return len(healthy.events()) == 1 },
		"healthy connection did not receive the event")
}

func TestSlowConnectionIsDroppedWhenBufferFills(t *testing.T) {
	h := NewHub(false)
	stalled := newStalledConn()
	healthy := &fakeConn{}
	h.Register(stalled)
	h.Register(healthy)

	// One event sits in the stalled writer, the rest fill its buffer; the
	// overflowing send must drop the connection instead of waiting.
	for i := 0; i < sendBufSize+2; i++ {
		h.Broadcast(UpdateEvent(1, "alice", 9, "Heat"))
		time.Sleep(time.Millisecond) // let the healthy writer drain
	}

	waitUntil(t, func() bool { return h.ConnCount() == 1 }, "stalled connection not dropped")
	if !stalled.isClosed() {
		t.Fatal("dropped connection should have been closed")
	}
	waitUntil(t, func() bool { return len(healthy.events()) == sendBufSize+2 },
		"healthy connection missed events while the slow one was dropped")
}

func TestFailedSendUnregistersOnlyThatConnection(t *testing.T) {
	h := NewHub(false)
	good, bad := &fakeConn{}, &fakeConn{fail: true}
	h.Register(good)
	h.Register(bad)

	h.Broadcast(LoginEvent(1, "alice", nil, nil))

	waitUntil(t, func() bool { return len(good.events()) == 1 },
		"healthy connection should still receive events")
	waitUntil(t, func() bool { return bad.isClosed() }, "failed connection should have been closed")
	waitUntil(t, func() bool { return h.ConnCount() == 1 }, "expected 1 live connection")
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := NewHub(false)
	c := &fakeConn{}
	h.Register(c)
	h.Unregister(c)
	h.Unregister(c)
	if h.ConnCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", h.ConnCount())
	}
}

func TestLastEventCache(t *testing.T) {
	h := NewHub(false)
	ev := LoginEvent(7, "carol", nil, nil)
	h.RecordLastEvent(7, ev)

	got, ok := h.LastEvent(7)
	if !ok || got.UserName != "carol" {
		t.Fatalf("expected cached event for user 7, got %v ok=%v", got, ok)
	}

	h.ClearLastEvent(7)
	if _, ok := h.LastEvent(7); ok {
		t.Fatal("cache entry should be gone after clear")
	}
}

func TestReplayOnConnect(t *testing.T) {
	h := NewHub(true)
	h.RecordLastEvent(1, LoginEvent(1, "alice", nil, nil))
	h.RecordLastEvent(2, LoginEvent(2, "bob", nil, nil))

	c := &fakeConn{}
	h.Register(c)

	waitUntil(t, func() bool { return len(c.events()) == 2 }, "expected 2 replayed events")
}

func TestReplayDisabled(t *testing.T) {
	h := NewHub(false)
	h.RecordLastEvent(1, LoginEvent(1, "alice", nil, nil))

	c := &fakeConn{}
	h.Register(c)

	time.Sleep(50 * time.Millisecond)
	if got := len(c.events()); got != 0 {
		t.Fatalf("expected no replayed events, got %d", got)
	}
}

func TestOnlineListLoginIsIdempotent(t *testing.T) {
	l := NewOnlineList()
	l.Apply(LoginEvent(1, "alice", nil, nil))
	l.Apply(LoginEvent(1, "alice", nil, nil))
	if got := len(l.Events()); got != 1 {
		t.Fatalf("two logins for the same user must keep one entry, got %d", got)
	}
}

func TestOnlineListUpdateReplacesInPlace(t *testing.T) {
	l := NewOnlineList()
	l.Apply(LoginEvent(1, "alice", nil, nil))
	l.Apply(LoginEvent(2, "bob", nil, nil))
	l.Apply(UpdateEvent(1, "alice", 9, "Heat"))

	got := l.Events()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].UserID != 1 || got[0].FilmID == nil || *got[0].FilmID != 9 {
		t.Fatalf("update must replace alice's entry in place, got %v", got[0])
	}
	if got[1].UserID != 2 {
		t.Fatalf("bob's position must be preserved, got %v", got[1])
	}
}

func TestOnlineListUpdateForUnknownUserAppends(t *testing.T) {
	l := NewOnlineList()
	l.Apply(UpdateEvent(3, "carol", 5, "Alien"))
	got := l.Events()
	if len(got) != 1 || got[0].UserID != 3 {
		t.Fatalf("update for absent user must append, got %v", got)
	}
}

func TestOnlineListLogoutRemovesRegardlessOfUpdates(t *testing.T) {
	l := NewOnlineList()
	l.Apply(LoginEvent(1, "alice", nil, nil))
	l.Apply(UpdateEvent(1, "alice", 9, "Heat"))
	l.Apply(LogoutEvent(1, "alice"))
	if got := len(l.Events()); got != 0 {
		t.Fatalf("logout must remove the user, got %d entries", got)
	}
}
