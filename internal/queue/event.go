// Package queue defines the film-status messages exchanged over the
// message broker and the bridge that relays inbound broker traffic back
// into the process.
package queue

import "fmt"

// Statuses carried on a film's topic.  "deleted" is a sentinel: receivers
// unsubscribe from the topic when they see it.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDeleted  = "deleted"
)

// Exchange is the topic exchange all film-status messages flow through.
const Exchange = "film.status"

// FilmStatusMessage is the per-film wire message.  The film itself is the
// topic, so it does not appear in the payload; userId and userName are
// null for inactive and deleted messages.
type FilmStatusMessage struct {
	TypeMessage string  `json:"typeMessage"`
	UserID      *uint64 `json:"userId"`
	UserName    *string `json:"userName"`
}

// ActiveMessage reports that a reviewer is now active on the film.
func ActiveMessage(userID uint64, userName string) FilmStatusMessage {
	return FilmStatusMessage{TypeMessage: StatusActive, UserID: &userID, UserName: &userName}
}

// InactiveMessage reports that the film has no active reviewer.
func InactiveMessage() FilmStatusMessage {
	return FilmStatusMessage{TypeMessage: StatusInactive}
}

// DeletedMessage is published when the film is removed entirely.
func DeletedMessage() FilmStatusMessage {
	return FilmStatusMessage{TypeMessage: StatusDeleted}
}

// TopicFor returns the routing key of a film's status topic.
func TopicFor(filmID uint64) string { return fmt.Sprintf("film.%d", filmID) }

// TopicPattern matches every film topic; the bridge binds with it.
const TopicPattern = "film.*"

// FilmIDFromTopic parses the film ID back out of a routing key.
func FilmIDFromTopic(topic string) (uint64, bool) {
	var id uint64
	if _, err := fmt.Sscanf(topic, "film.%d", &id); err != nil {
		return 0, false
	}
	return id, true
}
