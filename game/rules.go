package game

import (
	"fmt"
	"regexp"
	"time"

	"github.com/roneel47/4Sure-sub000/domain"
	"github.com/roneel47/4Sure-sub000/feedback"
)

// DefaultCapacity is used when a join that creates a room carries no capacity hint.
const DefaultCapacity = 2

var roomIDFormat = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validateRoomID(roomID string) error {
	if !roomIDFormat.MatchString(roomID) {
		return fmt.Errorf("%w: %q", ErrInvalidRoomID, roomID)
	}
	return nil
}

func resolveCapacity(hint int) (int, error) {
	if hint == 0 {
		return DefaultCapacity, nil
	}
	if hint < domain.MinCapacity || hint > domain.MaxCapacity {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCapacity, hint)
	}
	return hint, nil
}

func handleForSlot(slot int) string {
	return fmt.Sprintf("player%d", slot)
}

type joinOutcome struct {
	handle    string
	rejoined  bool
	replaced  string
	allJoined bool
}

// applyJoin seats or re-binds a connection. A rejoining handle the room does not know
// is treated as a fresh join.
func applyJoin(room *domain.Room, req JoinRequest, now time.Time) (*domain.Room, joinOutcome, error) {
	if room == nil {
		capacity, err := resolveCapacity(req.CapacityHint)
		if err != nil {
			return nil, joinOutcome{}, err
		}
		room = domain.NewRoom(req.RoomID, capacity, now)
	}

	// a redelivered join from a connection that already holds a seat
	if h, ok := room.HandleForConnection(req.ConnectionID); ok {
		return room, joinOutcome{handle: h, rejoined: h == req.RejoiningHandle}, domain.ErrUnchanged
	}

	if p, ok := room.Players[req.RejoiningHandle]; ok && req.RejoiningHandle != "" {
		out := joinOutcome{handle: p.Handle, rejoined: true, replaced: p.ConnectionID}
		p.ConnectionID = req.ConnectionID
		return room, out, nil
	}

	if room.Full() {
		return nil, joinOutcome{}, ErrRoomFull
	}
	if room.Status != domain.StatusWaitingForPlayers {
		return nil, joinOutcome{}, fmt.Errorf("%w: room is %s", ErrInvalidState, room.Status)
	}

	slot := len(room.Players) + 1
	handle := handleForSlot(slot)
	if _, taken := room.Players[handle]; taken {
		return nil, joinOutcome{}, fmt.Errorf("%w: slot %d already seated", domain.ErrIntegrityFault, slot)
	}
	room.Players[handle] = &domain.PlayerState{
		Handle:       handle,
		Slot:         slot,
		ConnectionID: req.ConnectionID,
	}

	out := joinOutcome{handle: handle}
	if room.Full() {
		room.Status = domain.StatusAllPlayersJoined
		out.allJoined = true
	}
	return room, out, nil
}

type secretOutcome struct {
	started bool
}

func applySecret(room *domain.Room, handle, secret string) (*domain.Room, secretOutcome, error) {
	p, ok := room.Players[handle]
	if !ok {
		return nil, secretOutcome{}, fmt.Errorf("%w: %q", ErrPlayerNotFound, handle)
	}
	if p.HasSetSecret {
		return room, secretOutcome{}, domain.ErrUnchanged
	}
	if room.Status != domain.StatusAllPlayersJoined && room.Status != domain.StatusSettingSecrets {
		return nil, secretOutcome{}, fmt.Errorf("%w: cannot set a secret while %s", ErrInvalidState, room.Status)
	}
	if !feedback.Valid(secret) {
		return nil, secretOutcome{}, ErrInvalidSecret
	}

	p.Secret = secret
	p.HasSetSecret = true
	p.IsReady = true
	room.SecretsSetCount++
	room.Status = domain.StatusSettingSecrets

	if room.SecretsSetCount < room.Capacity {
		return room, secretOutcome{}, nil
	}
	startGame(room)
	return room, secretOutcome{started: true}, nil
}

// startGame fixes the target map and hands the first turn to the lowest slot. Every
// player targets the next player in slot order, the last one wrapping to the first.
func startGame(room *domain.Room) {
	handles := room.Handles()
	room.TargetMap = make(map[string]string, len(handles))
	for i, h := range handles {
		room.TargetMap[h] = handles[(i+1)%len(handles)]
	}
	room.Turn = handles[0]
	room.TurnSeq = 1
	room.Status = domain.StatusInProgress
}

func nextInRotation(room *domain.Room, handle string) string {
	handles := room.Handles()
	for i, h := range handles {
		if h == handle {
			return handles[(i+1)%len(handles)]
		}
	}
	return handles[0]
}

type guessOutcome struct {
	guess     domain.Guess
	won       bool
	next      string
	duplicate bool
}

func applyGuess(room *domain.Room, req GuessRequest) (*domain.Room, guessOutcome, error) {
	p, ok := room.Players[req.Handle]
	if !ok {
		return nil, guessOutcome{}, fmt.Errorf("%w: %q", ErrPlayerNotFound, req.Handle)
	}

	if req.Seq > 0 {
		for _, g := range p.GuessesMade {
			if g.Seq != req.Seq {
				continue
			}
			if g.Value == req.Guess {
				return room, guessOutcome{guess: g, duplicate: true}, domain.ErrUnchanged
			}
			return nil, guessOutcome{}, fmt.Errorf("%w: turn %d already played", ErrInvalidState, req.Seq)
		}
	}

	if room.Status != domain.StatusInProgress || room.Turn != req.Handle {
		if g, ok := redelivered(room, req); ok {
			return room, guessOutcome{guess: g, duplicate: true}, domain.ErrUnchanged
		}
	}
	if room.Status != domain.StatusInProgress {
		return nil, guessOutcome{}, fmt.Errorf("%w: cannot guess while %s", ErrInvalidState, room.Status)
	}
	if room.Turn != req.Handle {
		return nil, guessOutcome{}, ErrNotYourTurn
	}
	if req.Seq > 0 && req.Seq != room.TurnSeq {
		return nil, guessOutcome{}, fmt.Errorf("%w: turn %d is not the current turn %d", ErrInvalidState, req.Seq, room.TurnSeq)
	}
	if !feedback.Valid(req.Guess) {
		return nil, guessOutcome{}, ErrInvalidGuess
	}

	target, ok := room.TargetMap[req.Handle]
	if !ok {
		return nil, guessOutcome{}, fmt.Errorf("%w: no target for %q", domain.ErrIntegrityFault, req.Handle)
	}
	tp, ok := room.Players[target]
	if !ok {
		return nil, guessOutcome{}, fmt.Errorf("%w: target %q missing", domain.ErrIntegrityFault, target)
	}
	fb, err := feedback.Compute(req.Guess, tp.Secret)
	if err != nil {
		return nil, guessOutcome{}, fmt.Errorf("%w: secret of %q: %w", domain.ErrIntegrityFault, target, err)
	}

	g := domain.Guess{Value: req.Guess, Feedback: fb, Seq: room.TurnSeq}
	p.GuessesMade = append(p.GuessesMade, g)
	room.TurnSeq++

	if feedback.IsWin(fb) {
		room.Status = domain.StatusGameOver
		room.Winner = req.Handle
		room.Turn = ""
		return room, guessOutcome{guess: g, won: true}, nil
	}
	room.Turn = nextInRotation(room, req.Handle)
	return room, guessOutcome{guess: g, next: room.Turn}, nil
}

// redelivered reports whether a guess without seq repeats the most recent guess of the
// room, made by the same player with the same value.
func redelivered(room *domain.Room, req GuessRequest) (domain.Guess, bool) {
	if req.Seq != 0 {
		return domain.Guess{}, false
	}
	by, last, ok := room.LastGuess()
	if !ok || by != req.Handle || last.Value != req.Guess {
		return domain.Guess{}, false
	}
	return last, true
}

func applyForfeitTurn(room *domain.Room, handle string) (*domain.Room, string, error) {
	if _, ok := room.Players[handle]; !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrPlayerNotFound, handle)
	}
	if room.Status != domain.StatusInProgress {
		return nil, "", fmt.Errorf("%w: cannot forfeit a turn while %s", ErrInvalidState, room.Status)
	}
	if room.Turn != handle {
		return nil, "", ErrNotYourTurn
	}
	room.TurnSeq++
	room.Turn = nextInRotation(room, handle)
	return room, room.Turn, nil
}

type disconnectOutcome struct {
	forfeitWinner string
}

// applyDisconnect unbinds connID from handle. A disconnect for a connection the handle
// no longer holds changes nothing. In a two-seat match in progress, the player left
// alone wins by forfeit.
func applyDisconnect(room *domain.Room, handle, connID string) (*domain.Room, disconnectOutcome, error) {
	p, ok := room.Players[handle]
	if !ok {
		return nil, disconnectOutcome{}, fmt.Errorf("%w: %q", ErrPlayerNotFound, handle)
	}
	if !p.Connected() || (connID != "" && p.ConnectionID != connID) {
		return room, disconnectOutcome{}, domain.ErrUnchanged
	}
	p.ConnectionID = ""

	if room.Capacity != 2 || room.Status != domain.StatusInProgress {
		return room, disconnectOutcome{}, nil
	}
	connected := room.ConnectedHandles()
	if len(connected) != 1 {
		return room, disconnectOutcome{}, nil
	}
	room.Status = domain.StatusGameOver
	room.Winner = connected[0]
	room.Turn = ""
	return room, disconnectOutcome{forfeitWinner: connected[0]}, nil
}
