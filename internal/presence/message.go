// Package presence maintains the set of live push connections and the
// per-user last-event cache, and fans presence events out to every
// connected interactive client.
package presence

// Event kinds carried by the push channel.
const (
	KindLogin  = "login"
	KindLogout = "logout"
	KindUpdate = "update"
)

// Event is the push-channel wire message.  FilmID and FilmTitle are only
// present on login and update events for a user with an active selection.
type Event struct {
	TypeMessage string  `json:"typeMessage"`
	UserID      uint64  `json:"userId"`
	UserName    string  `json:"userName"`
	FilmID      *uint64 `json:"filmId,omitempty"`
	FilmTitle   *string `json:"filmTitle,omitempty"`
}

// LoginEvent builds a login event, optionally carrying the user's active film.
func LoginEvent(userID uint64, userName string, filmID *uint64, filmTitle *string) Event {
	return Event{TypeMessage: KindLogin, UserID: userID, UserName: userName, FilmID: filmID, FilmTitle: filmTitle}
}

// LogoutEvent builds a logout event.
func LogoutEvent(userID uint64, userName string) Event {
	return Event{TypeMessage: KindLogout, UserID: userID, UserName: userName}
}

// UpdateEvent builds an update event for a newly selected film.
func UpdateEvent(userID uint64, userName string, filmID uint64, filmTitle string) Event {
	return Event{TypeMessage: KindUpdate, UserID: userID, UserName: userName, FilmID: &filmID, FilmTitle: &filmTitle}
}
