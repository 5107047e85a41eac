package storage

import (
	"context"
	"sync"
	"time"

	"github.com/roneel47/4Sure-sub000/domain"
)

// MemoryStore keeps rooms in process memory. Each room has its own lock, so operations
// on different rooms never wait on each other. Nothing survives a restart.
type MemoryStore struct {
	rooms sync.Map // room id -> *memoryEntry
	now   func() time.Time
}

type memoryEntry struct {
	mu      sync.Mutex
	room    *domain.Room
	retired bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := m.rooms.Load(roomID)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	entry := v.(*memoryEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.room == nil || entry.retired {
		return nil, domain.ErrRoomNotFound
	}
	return entry.room.Clone(), nil
}

func (m *MemoryStore) Upsert(ctx context.Context, roomID string, mutate domain.Mutation) (*domain.Room, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, _ := m.rooms.LoadOrStore(roomID, &memoryEntry{})
		entry := v.(*memoryEntry)

		entry.mu.Lock()
		if entry.retired {
			// lost a race with Retire, the id now maps to a fresh entry
			entry.mu.Unlock()
			continue
		}
		next, write, err := runMutation(entry.room, mutate, m.now())
		if err == nil && write {
			entry.room = next.Clone()
		}
		entry.mu.Unlock()
		return next, err
	}
}

// Retire deletes finished rooms nobody is connected to and rooms untouched since
// idleBefore.
func (m *MemoryStore) Retire(ctx context.Context, idleBefore time.Time) (int, error) {
	retired := 0
	m.rooms.Range(func(key, v any) bool {
		if ctx.Err() != nil {
			return false
		}
		entry := v.(*memoryEntry)
		entry.mu.Lock()
		if entry.room == nil || retirable(entry.room, idleBefore) {
			entry.retired = true
			m.rooms.Delete(key)
			if entry.room != nil {
				retired++
			}
		}
		entry.mu.Unlock()
		return true
	})
	return retired, ctx.Err()
}

func (m *MemoryStore) Close() error {
	return nil
}
