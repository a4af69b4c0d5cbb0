package queue

import "testing"

func TestViewTracksLatestStatus(t *testing.T) {
	v := NewStatusView()
	v.Apply(7, ActiveMessage(1, "alice"))
	v.Apply(7, InactiveMessage())

	msg, ok := v.Get(7)
	if !ok {
		t.Fatal("expected an entry for film 7")
	}
	if msg.TypeMessage != StatusInactive || msg.UserID != nil {
		t.Fatalf("expected inactive with no user, got %+v", msg)
	}
}

func TestViewForgetsDeletedFilms(t *testing.T) {
	v := NewStatusView()
	v.Apply(5, ActiveMessage(2, "bob"))
	v.Apply(5, DeletedMessage())

	if _, ok := v.Get(5); ok {
		t.Fatal("deleted film must be dropped from the view")
	}
	if v.Len() != 0 {
		t.Fatalf("expected empty view, got %d entries", v.Len())
	}
}

func TestTopicRoundTrip(t *testing.T) {
	topic := TopicFor(42)
	if topic != "film.42" {
		t.Fatalf("unexpected topic %q", topic)
	}
	id, ok := FilmIDFromTopic(topic)
	if !ok || id != 42 {
		t.Fatalf("expected 42 back, got %d ok=%v", id, ok)
	}
	if _, ok := FilmIDFromTopic("user.created"); ok {
		t.Fatal("foreign topics must not parse")
	}
}
