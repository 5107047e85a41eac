package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roneel47/4Sure-sub000/domain"
)

// runMutation applies m to current and stamps the result for writing. write is false
// when the mutation left the room unchanged, in which case the returned room is a copy
// of current.
func runMutation(current *domain.Room, m domain.Mutation, now time.Time) (next *domain.Room, write bool, err error) {
	next, err = m(current.Clone())
	if errors.Is(err, domain.ErrUnchanged) {
		if current == nil {
			return nil, false, domain.ErrRoomNotFound
		}
		return current.Clone(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if next == nil {
		return nil, false, fmt.Errorf("%w: mutation produced no room", domain.ErrIntegrityFault)
	}

	if current == nil {
		next.Version = 1
		if next.CreatedAt.IsZero() {
			next.CreatedAt = now
		}
	} else {
		next.Version = current.Version + 1
	}
	next.UpdatedAt = now
	return next, true, nil
}

// retirable reports whether the janitor may delete the room.
func retirable(r *domain.Room, idleBefore time.Time) bool {
	if r.Status == domain.StatusGameOver && len(r.ConnectedHandles()) == 0 {
		return true
	}
	return r.UpdatedAt.Before(idleBefore)
}

func encodeRoom(r *domain.Room) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding room %s: %w", domain.ErrIntegrityFault, r.ID, err)
	}
	return data, nil
}

func decodeRoom(data []byte) (*domain.Room, error) {
	room := &domain.Room{}
	if err := json.Unmarshal(data, room); err != nil {
		return nil, fmt.Errorf("%w: decoding room: %w", domain.ErrIntegrityFault, err)
	}
	if room.Players == nil {
		room.Players = map[string]*domain.PlayerState{}
	}
	return room, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
