package presence

// OnlineList is the ordered who-is-online view derived from presence
// events.  Application rules match what every consuming client does:
//
//	login  – append the user if absent, otherwise no-op
//	logout – remove every entry for the user
//	update – replace the user's entry in place, or append if absent
//
// The list is not safe for concurrent use on its own; the Hub guards it.
type OnlineList struct {
	entries []Event
}

// NewOnlineList returns an empty list.
func NewOnlineList() *OnlineList { return &OnlineList{entries: []Event{}} }

// Apply folds one event into the list.
func (l *OnlineList) Apply(ev Event) {
	switch ev.TypeMessage {
	case KindLogin:
		for _, e := range l.entries {
			if e.UserID == ev.UserID {
				return
			}
		}
		l.entries = append(l.entries, ev)
	case KindLogout:
		kept := l.entries[:0]
		for _, e := range l.entries {
			if e.UserID != ev.UserID {
				kept = append(kept, e)
			}
		}
		l.entries = kept
	case KindUpdate:
		for i, e := range l.entries {
			if e.UserID == ev.UserID {
				l.entries[i] = ev
				return
			}
		}
		l.entries = append(l.entries, ev)
	}
}

// Events returns a copy of the list in arrival order.
func (l *OnlineList) Events() []Event {
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}
