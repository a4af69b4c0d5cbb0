// Package status_publisher publishes per-film status messages to the
// message broker with retained semantics.  Errors are logged and returned
// so callers can ignore failures without interrupting the request flow:
// film-status propagation is a best-effort side channel, never part of
// the selection invariant.
package status_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	q "github.com/filmreview/film-manager/internal/queue"
	"github.com/filmreview/film-manager/internal/repository"
)

// Publisher writes the retained value to Redis and fans the message out
// through the film.status topic exchange.  It satisfies the coordinator's
// StatusSink interface.
type Publisher struct {
	RDB *redis.Client
}

// New returns a Publisher.  The Redis client may be nil, in which case
// only the live broker fan-out happens and late subscribers see no
// retained value until the next state change.
func New(rdb *redis.Client) *Publisher { return &Publisher{RDB: rdb} }

// PublishFilmStatus publishes the message to the film's topic.  The
// retained value is stored first so a subscriber that reads it while the
// broker publish is in flight never observes older state than the stream
// delivers.  Delivery is at-most-once: the publishing is transient, with
// no acknowledgment and no redelivery.
func (p *Publisher) PublishFilmStatus(ctx context.Context, filmID uint64, msg q.FilmStatusMessage) error {
	if err := q.SetRetained(ctx, p.RDB, filmID, msg); err != nil {
		log.Printf("status: retained set failed for film %d: %v", filmID, err)
	}

	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("status: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("status: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(q.Exchange, "topic", true, false, false, false, nil); err != nil {
		log.Printf("status: exchange declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		log.Printf("status: marshal failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient, // at-most-once, no broker persistence
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		q.Exchange,
		q.TopicFor(filmID),
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		log.Printf("status: publish failed: %v", err)
		return err
	}

	return nil
}

// PublishInitialSelections re-emits a retained status message for every
// public film from current storage state.  It runs once at startup so the
// retained values heal even if they were lost while the process was down.
func (p *Publisher) PublishInitialSelections(ctx context.Context, selections []repository.FilmSelection) {
	for _, s := range selections {
		msg := q.InactiveMessage()
		if s.UserID != nil {
			msg = q.ActiveMessage(*s.UserID, deref(s.UserName))
		}
		if err := p.PublishFilmStatus(ctx, s.FilmID, msg); err != nil {
			log.Printf("status: initial publish for film %d failed: %v", s.FilmID, err)
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
