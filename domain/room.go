package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/roneel47/4Sure-sub000/feedback"
)

type RoomStatus string

const (
	StatusWaitingForPlayers RoomStatus = "WaitingForPlayers"
	StatusAllPlayersJoined  RoomStatus = "AllPlayersJoined"
	StatusSettingSecrets    RoomStatus = "SettingSecrets"
	StatusInProgress        RoomStatus = "InProgress"
	StatusGameOver          RoomStatus = "GameOver"
)

// NoWinner is the winner value of every room that has not reached GameOver.
const NoWinner = ""

const (
	MinCapacity = 2
	MaxCapacity = 4
)

var statusOrder = map[RoomStatus]int{
	StatusWaitingForPlayers: 0,
	StatusAllPlayersJoined:  1,
	StatusSettingSecrets:    2,
	StatusInProgress:        3,
	StatusGameOver:          4,
}

func (s RoomStatus) Known() bool {
	_, ok := statusOrder[s]
	return ok
}

// Before reports whether s comes strictly earlier than other in the room lifecycle.
func (s RoomStatus) Before(other RoomStatus) bool {
	return statusOrder[s] < statusOrder[other]
}

type Guess struct {
	Value    string            `json:"value"`
	Feedback feedback.Feedback `json:"feedback"`
	// Seq is the room turn number the guess was made on.
	Seq int `json:"seq"`
}

type PlayerState struct {
	Handle string `json:"handle"`
	Slot   int    `json:"slot"`
	// ConnectionID names the live connection bound to this handle. Empty while disconnected.
	ConnectionID string  `json:"connectionId,omitempty"`
	Secret       string  `json:"secret,omitempty"`
	HasSetSecret bool    `json:"hasSetSecret"`
	IsReady      bool    `json:"isReady"`
	GuessesMade  []Guess `json:"guessesMade"`
}

func (p *PlayerState) Connected() bool {
	return p.ConnectionID != ""
}

// LastGuess returns the most recent guess of the player, if any.
func (p *PlayerState) LastGuess() (Guess, bool) {
	if len(p.GuessesMade) == 0 {
		return Guess{}, false
	}
	return p.GuessesMade[len(p.GuessesMade)-1], true
}

// Room is the full persisted record of one match.
type Room struct {
	ID              string                  `json:"roomId"`
	Capacity        int                     `json:"capacity"`
	Players         map[string]*PlayerState `json:"players"`
	Status          RoomStatus              `json:"status"`
	Turn            string                  `json:"turn,omitempty"`
	TargetMap       map[string]string       `json:"targetMap,omitempty"`
	Winner          string                  `json:"winner,omitempty"`
	SecretsSetCount int                     `json:"secretsSetCount"`
	// TurnSeq is the number of the turn currently being played, starting at 1 once the
	// game is InProgress.
	TurnSeq int `json:"turnSeq"`
	// Version is bumped by the store on every write.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewRoom(id string, capacity int, now time.Time) *Room {
	return &Room{
		ID:        id,
		Capacity:  capacity,
		Players:   make(map[string]*PlayerState, capacity),
		Status:    StatusWaitingForPlayers,
		Winner:    NoWinner,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy sharing no mutable state with r.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Players = make(map[string]*PlayerState, len(r.Players))
	for handle, p := range r.Players {
		pc := *p
		pc.GuessesMade = append([]Guess(nil), p.GuessesMade...)
		c.Players[handle] = &pc
	}
	if r.TargetMap != nil {
		c.TargetMap = make(map[string]string, len(r.TargetMap))
		for k, v := range r.TargetMap {
			c.TargetMap[k] = v
		}
	}
	return &c
}

func (r *Room) Full() bool {
	return len(r.Players) >= r.Capacity
}

// Handles lists the player handles ordered by slot. This is the fixed rotation order of
// the room.
func (r *Room) Handles() []string {
	players := make([]*PlayerState, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Slot < players[j].Slot })
	handles := make([]string, len(players))
	for i, p := range players {
		handles[i] = p.Handle
	}
	return handles
}

func (r *Room) ConnectedHandles() []string {
	var connected []string
	for _, h := range r.Handles() {
		if r.Players[h].Connected() {
			connected = append(connected, h)
		}
	}
	return connected
}

// HandleForConnection returns the handle currently bound to connID.
func (r *Room) HandleForConnection(connID string) (string, bool) {
	if connID == "" {
		return "", false
	}
	for h, p := range r.Players {
		if p.ConnectionID == connID {
			return h, true
		}
	}
	return "", false
}

// LastGuess returns the most recent guess made in the room and the handle that made it.
func (r *Room) LastGuess() (string, Guess, bool) {
	var (
		by    string
		last  Guess
		found bool
	)
	for h, p := range r.Players {
		g, ok := p.LastGuess()
		if ok && (!found || g.Seq > last.Seq) {
			by, last, found = h, g, true
		}
	}
	return by, last, found
}

// Validate checks the invariants every stored room must satisfy.
func (r *Room) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: empty room id", ErrIntegrityFault)
	}
	if !r.Status.Known() {
		return fmt.Errorf("%w: unknown status %q", ErrIntegrityFault, r.Status)
	}
	if r.Capacity < MinCapacity || r.Capacity > MaxCapacity {
		return fmt.Errorf("%w: capacity %d out of range", ErrIntegrityFault, r.Capacity)
	}
	if len(r.Players) > r.Capacity {
		return fmt.Errorf("%w: %d players in a room of %d", ErrIntegrityFault, len(r.Players), r.Capacity)
	}

	secrets := 0
	slots := make(map[int]bool, len(r.Players))
	for handle, p := range r.Players {
		if p.Handle != handle {
			return fmt.Errorf("%w: player keyed %q carries handle %q", ErrIntegrityFault, handle, p.Handle)
		}
		if slots[p.Slot] {
			return fmt.Errorf("%w: slot %d used twice", ErrIntegrityFault, p.Slot)
		}
		slots[p.Slot] = true
		if p.Secret != "" {
			secrets++
			if !feedback.Valid(p.Secret) {
				return fmt.Errorf("%w: malformed secret for %q", ErrIntegrityFault, handle)
			}
		}
		if p.HasSetSecret != (p.Secret != "") || p.IsReady != p.HasSetSecret {
			return fmt.Errorf("%w: secret flags of %q disagree with secret", ErrIntegrityFault, handle)
		}
	}
	if secrets != r.SecretsSetCount {
		return fmt.Errorf("%w: secretsSetCount %d but %d secrets set", ErrIntegrityFault, r.SecretsSetCount, secrets)
	}

	started := r.Status == StatusInProgress || r.Status == StatusGameOver
	if started != (len(r.TargetMap) > 0) {
		return fmt.Errorf("%w: targetMap presence does not match status %s", ErrIntegrityFault, r.Status)
	}
	for guesser, target := range r.TargetMap {
		if _, ok := r.Players[guesser]; !ok {
			return fmt.Errorf("%w: targetMap names unknown guesser %q", ErrIntegrityFault, guesser)
		}
		if _, ok := r.Players[target]; !ok || target == guesser {
			return fmt.Errorf("%w: invalid target %q for %q", ErrIntegrityFault, target, guesser)
		}
	}

	if (r.Status == StatusInProgress) != (r.Turn != "") {
		return fmt.Errorf("%w: turn presence does not match status %s", ErrIntegrityFault, r.Status)
	}
	if r.Turn != "" {
		if _, ok := r.Players[r.Turn]; !ok {
			return fmt.Errorf("%w: turn held by unknown player %q", ErrIntegrityFault, r.Turn)
		}
	}

	if (r.Status == StatusGameOver) != (r.Winner != NoWinner) {
		return fmt.Errorf("%w: winner presence does not match status %s", ErrIntegrityFault, r.Status)
	}
	if r.Winner != NoWinner {
		if _, ok := r.Players[r.Winner]; !ok {
			return fmt.Errorf("%w: winner %q is not a player", ErrIntegrityFault, r.Winner)
		}
	}

	if r.Status != StatusWaitingForPlayers && !r.Full() {
		return fmt.Errorf("%w: status %s with %d of %d players", ErrIntegrityFault, r.Status, len(r.Players), r.Capacity)
	}
	return nil
}

// ValidateTransition checks that next is a legal successor of prev: the status never
// moves backward, the room never shrinks and values fixed once set stay fixed.
func ValidateTransition(prev, next *Room) error {
	if prev == nil {
		return nil
	}
	if next.ID != prev.ID || next.Capacity != prev.Capacity {
		return fmt.Errorf("%w: room identity changed", ErrIntegrityFault)
	}
	if next.Status.Before(prev.Status) {
		return fmt.Errorf("%w: status moved back from %s to %s", ErrIntegrityFault, prev.Status, next.Status)
	}
	if len(next.Players) < len(prev.Players) {
		return fmt.Errorf("%w: player removed", ErrIntegrityFault)
	}
	for handle, p := range prev.Players {
		np, ok := next.Players[handle]
		if !ok {
			return fmt.Errorf("%w: player %q removed", ErrIntegrityFault, handle)
		}
		if p.Secret != "" && np.Secret != p.Secret {
			return fmt.Errorf("%w: secret of %q changed", ErrIntegrityFault, handle)
		}
		if len(np.GuessesMade) < len(p.GuessesMade) {
			return fmt.Errorf("%w: guesses of %q truncated", ErrIntegrityFault, handle)
		}
	}
	if len(prev.TargetMap) > 0 {
		if len(next.TargetMap) != len(prev.TargetMap) {
			return fmt.Errorf("%w: targetMap changed", ErrIntegrityFault)
		}
		for k, v := range prev.TargetMap {
			if next.TargetMap[k] != v {
				return fmt.Errorf("%w: targetMap changed", ErrIntegrityFault)
			}
		}
	}
	if prev.Winner != NoWinner && next.Winner != prev.Winner {
		return fmt.Errorf("%w: winner changed", ErrIntegrityFault)
	}
	return nil
}
