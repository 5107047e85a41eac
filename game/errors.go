package game

import (
	"context"
	"errors"

	"github.com/roneel47/4Sure-sub000/domain"
)

var (
	ErrRoomFull        = errors.New("room-full")
	ErrInvalidState    = errors.New("invalid-state")
	ErrNotYourTurn     = errors.New("not-your-turn")
	ErrInvalidGuess    = errors.New("invalid-guess")
	ErrInvalidSecret   = errors.New("invalid-secret")
	ErrInvalidCapacity = errors.New("invalid-capacity")
	ErrInvalidRoomID   = errors.New("invalid-room-id")
	ErrPlayerNotFound  = errors.New("player-not-found")
)

// Reason codes carried by operationRejected.
const (
	ReasonRoomFull         = "RoomFull"
	ReasonRoomNotFound     = "RoomNotFound"
	ReasonInvalidState     = "InvalidState"
	ReasonNotYourTurn      = "NotYourTurn"
	ReasonInvalidGuess     = "InvalidGuess"
	ReasonInvalidSecret    = "InvalidSecret"
	ReasonInvalidCapacity  = "InvalidCapacity"
	ReasonInvalidRoomID    = "InvalidRoomId"
	ReasonPlayerNotFound   = "PlayerNotFound"
	ReasonStoreUnavailable = "StoreUnavailable"
	ReasonIntegrityFault   = "IntegrityFault"
	ReasonTimeout          = "Timeout"
	ReasonInternal         = "Internal"
)

func ReasonCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomFull):
		return ReasonRoomFull
	case errors.Is(err, domain.ErrRoomNotFound):
		return ReasonRoomNotFound
	case errors.Is(err, ErrInvalidState):
		return ReasonInvalidState
	case errors.Is(err, ErrNotYourTurn):
		return ReasonNotYourTurn
	case errors.Is(err, ErrInvalidGuess):
		return ReasonInvalidGuess
	case errors.Is(err, ErrInvalidSecret):
		return ReasonInvalidSecret
	case errors.Is(err, ErrInvalidCapacity):
		return ReasonInvalidCapacity
	case errors.Is(err, ErrInvalidRoomID):
		return ReasonInvalidRoomID
	case errors.Is(err, ErrPlayerNotFound):
		return ReasonPlayerNotFound
	case errors.Is(err, domain.ErrIntegrityFault):
		return ReasonIntegrityFault
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrStaleRoom):
		return ReasonStoreUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonTimeout
	default:
		return ReasonInternal
	}
}
