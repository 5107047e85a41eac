package game

import (
	"context"
	"time"

	"github.com/roneel47/4Sure-sub000/domain"
)

type RoomStore interface {
	Get(ctx context.Context, roomID string) (*domain.Room, error)
	// Upsert runs mutate against the stored room as one atomic read-modify-write and
	// returns the room as stored afterwards.
	Upsert(ctx context.Context, roomID string, mutate domain.Mutation) (*domain.Room, error)
}

type RoomRetirer interface {
	Retire(ctx context.Context, idleBefore time.Time) (int, error)
}

// Publisher fans a notification out to every connection mapped to its room.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

type PeriodicTickerChannelCreator interface {
	Create(duration time.Duration) <-chan time.Time
}
