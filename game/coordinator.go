package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/roneel47/4Sure-sub000/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type JoinRequest struct {
	RoomID          string
	CapacityHint    int
	RejoiningHandle string
	ConnectionID    string
}

type JoinResult struct {
	Handle   string
	Rejoined bool
	Room     *domain.Room
}

type GuessRequest struct {
	RoomID string
	Handle string
	Guess  string
	// Seq optionally names the turn the guess is meant for. A redelivered guess for a
	// turn already played by the same player with the same value is a no-op.
	Seq int
}

// Coordinator applies the room rules on top of a RoomStore. It holds no room state of
// its own: every operation is one atomic read-modify-write against the store, retried
// when the store reports a concurrent write or a transient failure, followed by one
// broadcast of the stored result.
type Coordinator struct {
	store          RoomStore
	publisher      Publisher
	maxRetries     uint64
	initialBackoff time.Duration
	now            func() time.Time
}

type Option func(*Coordinator)

func WithMaxRetries(n uint64) Option {
	return func(c *Coordinator) {
		c.maxRetries = n
	}
}

func WithInitialBackoff(d time.Duration) Option {
	return func(c *Coordinator) {
		c.initialBackoff = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func NewCoordinator(store RoomStore, publisher Publisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:          store,
		publisher:      publisher,
		maxRetries:     5,
		initialBackoff: 10 * time.Millisecond,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Join(ctx context.Context, req JoinRequest) (JoinResult, error) {
	if err := validateRoomID(req.RoomID); err != nil {
		return JoinResult{}, err
	}
	if req.ConnectionID == "" {
		return JoinResult{}, fmt.Errorf("%w: join without a connection", ErrInvalidState)
	}

	var out joinOutcome
	room, changed, err := c.apply(ctx, "join", req.RoomID, func(current *domain.Room) (*domain.Room, error) {
		var (
			next *domain.Room
			err  error
		)
		next, out, err = applyJoin(current, req, c.now())
		return next, err
	})
	if err != nil {
		return JoinResult{}, err
	}

	n := Notification{
		RoomID:   req.RoomID,
		Assigned: &Assignment{ConnectionID: req.ConnectionID, Handle: out.handle},
		Room:     room,
	}
	switch {
	case !changed:
	case out.rejoined:
		n.Assigned.Replaced = out.replaced
		n.Event = &Event{Type: EventPlayerReconnected, RoomID: req.RoomID, PlayerHandle: out.handle}
	case out.allJoined:
		n.Event = &Event{Type: EventAllPlayersJoined, RoomID: req.RoomID}
	}
	c.publish(ctx, n)

	log.Info().
		Str("room", req.RoomID).
		Str("handle", out.handle).
		Bool("rejoined", out.rejoined).
		Bool("changed", changed).
		Msg("player joined")
	return JoinResult{Handle: out.handle, Rejoined: out.rejoined, Room: room}, nil
}

func (c *Coordinator) SubmitSecret(ctx context.Context, roomID, handle, secret string) (*domain.Room, error) {
	if err := validateRoomID(roomID); err != nil {
		return nil, err
	}

	var out secretOutcome
	room, changed, err := c.apply(ctx, "submitSecret", roomID, existing(func(current *domain.Room) (*domain.Room, error) {
		var (
			next *domain.Room
			err  error
		)
		next, out, err = applySecret(current, handle, secret)
		return next, err
	}))
	if err != nil {
		return nil, err
	}

	n := Notification{RoomID: roomID, Room: room}
	if changed && out.started {
		n.Event = &Event{
			Type:           EventGameStarted,
			RoomID:         roomID,
			StartingPlayer: room.Turn,
			TargetMap:      room.TargetMap,
		}
		log.Info().Str("room", roomID).Str("startingPlayer", room.Turn).Msg("game started")
	}
	c.publish(ctx, n)
	return room, nil
}

func (c *Coordinator) MakeGuess(ctx context.Context, req GuessRequest) (*domain.Room, error) {
	if err := validateRoomID(req.RoomID); err != nil {
		return nil, err
	}

	var out guessOutcome
	room, changed, err := c.apply(ctx, "makeGuess", req.RoomID, existing(func(current *domain.Room) (*domain.Room, error) {
		var (
			next *domain.Room
			err  error
		)
		next, out, err = applyGuess(current, req)
		return next, err
	}))
	if err != nil {
		return nil, err
	}

	n := Notification{RoomID: req.RoomID, Room: room}
	switch {
	case !changed:
	case out.won:
		n.Event = &Event{Type: EventGameOver, RoomID: req.RoomID, Winner: req.Handle, Reason: ReasonCodeCracked}
		log.Info().Str("room", req.RoomID).Str("winner", req.Handle).Int("turn", out.guess.Seq).Msg("code cracked")
	default:
		n.Event = &Event{Type: EventTurnAdvanced, RoomID: req.RoomID, NextPlayer: out.next, Reason: ReasonGuessMissed}
		log.Debug().
			Str("room", req.RoomID).
			Str("handle", req.Handle).
			Int("turn", out.guess.Seq).
			Int("hits", out.guess.Feedback.Hits()).
			Str("next", out.next).
			Msg("guess missed")
	}
	c.publish(ctx, n)
	return room, nil
}

// ForfeitTurn passes the turn of handle to the next player without guessing.
func (c *Coordinator) ForfeitTurn(ctx context.Context, roomID, handle string) (*domain.Room, error) {
	if err := validateRoomID(roomID); err != nil {
		return nil, err
	}

	var next string
	room, _, err := c.apply(ctx, "forfeitTurn", roomID, existing(func(current *domain.Room) (*domain.Room, error) {
		var (
			r   *domain.Room
			err error
		)
		r, next, err = applyForfeitTurn(current, handle)
		return r, err
	}))
	if err != nil {
		return nil, err
	}

	c.publish(ctx, Notification{
		RoomID: roomID,
		Event:  &Event{Type: EventTurnAdvanced, RoomID: roomID, NextPlayer: next, Reason: ReasonForfeitTurn},
		Room:   room,
	})
	return room, nil
}

// Disconnect unbinds connID from handle after its transport went away. An empty connID
// unbinds whatever connection holds the handle.
func (c *Coordinator) Disconnect(ctx context.Context, roomID, handle, connID string) (*domain.Room, error) {
	return c.release(ctx, "disconnect", ReasonDisconnected, roomID, handle, connID)
}

// Leave is a disconnect the player asked for.
func (c *Coordinator) Leave(ctx context.Context, roomID, handle, connID string) (*domain.Room, error) {
	return c.release(ctx, "leave", ReasonLeft, roomID, handle, connID)
}

func (c *Coordinator) release(ctx context.Context, op, reason, roomID, handle, connID string) (*domain.Room, error) {
	if err := validateRoomID(roomID); err != nil {
		return nil, err
	}

	var out disconnectOutcome
	room, changed, err := c.apply(ctx, op, roomID, existing(func(current *domain.Room) (*domain.Room, error) {
		var (
			next *domain.Room
			err  error
		)
		next, out, err = applyDisconnect(current, handle, connID)
		return next, err
	}))
	if err != nil {
		return nil, err
	}

	n := Notification{RoomID: roomID, Room: room}
	switch {
	case !changed:
	case out.forfeitWinner != "":
		n.Event = &Event{Type: EventGameOver, RoomID: roomID, Winner: out.forfeitWinner, Reason: ReasonOpponentGone}
		log.Info().Str("room", roomID).Str("winner", out.forfeitWinner).Str("left", handle).Msg("game forfeited")
	default:
		n.Event = &Event{Type: EventPlayerLeft, RoomID: roomID, PlayerHandle: handle, Reason: reason}
	}
	c.publish(ctx, n)
	return room, nil
}

// Room returns the stored room without changing it.
func (c *Coordinator) Room(ctx context.Context, roomID string) (*domain.Room, error) {
	if err := validateRoomID(roomID); err != nil {
		return nil, err
	}
	return c.store.Get(ctx, roomID)
}

func existing(rule domain.Mutation) domain.Mutation {
	return func(current *domain.Room) (*domain.Room, error) {
		if current == nil {
			return nil, domain.ErrRoomNotFound
		}
		return rule(current)
	}
}

// apply runs rule inside one store read-modify-write, checks the result against the
// room invariants and retries on stale or unavailable stores. changed is false when the
// rule left the stored room as it was.
func (c *Coordinator) apply(ctx context.Context, op, roomID string, rule domain.Mutation) (*domain.Room, bool, error) {
	var (
		changed  bool
		snapshot *domain.Room
	)
	mutate := func(current *domain.Room) (*domain.Room, error) {
		changed = false
		snapshot = current.Clone()
		next, err := rule(current)
		if err != nil {
			return nil, err
		}
		if err := next.Validate(); err != nil {
			return nil, err
		}
		if err := domain.ValidateTransition(snapshot, next); err != nil {
			return nil, err
		}
		changed = true
		return next, nil
	}

	var room *domain.Room
	operation := func() error {
		r, err := c.store.Upsert(ctx, roomID, mutate)
		if err == nil {
			room = r
			return nil
		}
		if errors.Is(err, domain.ErrStaleRoom) || errors.Is(err, domain.ErrStoreUnavailable) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx),
		func(err error, wait time.Duration) {
			log.Warn().Err(err).Str("op", op).Str("room", roomID).Dur("wait", wait).Msg("retrying room write")
		})

	switch {
	case err == nil:
		return room, changed, nil
	case errors.Is(err, domain.ErrStaleRoom):
		log.Error().Err(err).Str("op", op).Str("room", roomID).Uint64("retries", c.maxRetries).Msg("room write kept losing to concurrent writers")
		return nil, false, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	case errors.Is(err, domain.ErrIntegrityFault):
		log.Error().Err(err).Str("op", op).Str("room", roomID).Dict("stored", roomSummary(snapshot)).Msg("room integrity fault")
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Error().Err(err).Str("op", op).Str("room", roomID).Msg("room store unavailable")
	}
	return nil, false, err
}

// roomSummary describes a room for logs. Secrets are left out.
func roomSummary(r *domain.Room) *zerolog.Event {
	d := zerolog.Dict()
	if r == nil {
		return d.Bool("exists", false)
	}
	return d.
		Str("status", string(r.Status)).
		Int("capacity", r.Capacity).
		Strs("players", r.Handles()).
		Strs("connected", r.ConnectedHandles()).
		Str("turn", r.Turn).
		Int("turnSeq", r.TurnSeq).
		Int("secretsSet", r.SecretsSetCount).
		Str("winner", r.Winner).
		Int64("version", r.Version)
}

func (c *Coordinator) publish(ctx context.Context, n Notification) {
	// the write already happened; a cancelled request must not swallow its broadcast
	if err := c.publisher.Publish(context.WithoutCancel(ctx), n); err != nil {
		log.Error().Err(err).Str("room", n.RoomID).Msg("broadcast failed")
	}
}
