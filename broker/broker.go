package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/roneel47/4Sure-sub000/game"
	"github.com/rs/zerolog/log"
)

// SubjectPrefix is followed by the room id on every room subject.
const SubjectPrefix = "codebreaker.rooms"

func Subject(roomID string) string {
	return SubjectPrefix + "." + roomID
}

// Broker carries room notifications between server instances so that connections
// attached to any instance see every change to their room.
type Broker struct {
	conn *nats.Conn
}

func Connect(url, name string) (*Broker, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	return &Broker{conn: conn}, nil
}

func (b *Broker) Publish(ctx context.Context, n game.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification for room %s: %w", n.RoomID, err)
	}
	return b.conn.Publish(Subject(n.RoomID), data)
}

// Subscribe hands every room notification to deliver. Messages from one publisher arrive
// in the order they were published.
func (b *Broker) Subscribe(deliver func(game.Notification)) (func(), error) {
	sub, err := b.conn.Subscribe(SubjectPrefix+".*", func(msg *nats.Msg) {
		var n game.Notification
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("dropping undecodable room notification")
			return
		}
		if n.Room == nil {
			log.Error().Str("subject", msg.Subject).Msg("dropping room notification without a room")
			return
		}
		deliver(n)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to room notifications: %w", err)
	}
	// the subscription must be known to the server before we report ready
	if err := b.conn.Flush(); err != nil {
		sub.Unsubscribe()
		return nil, fmt.Errorf("flushing subscription: %w", err)
	}
	return func() { sub.Unsubscribe() }, nil
}

func (b *Broker) Close() error {
	return b.conn.Drain()
}
