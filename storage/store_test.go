package storage_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/roneel47/4Sure-sub000/domain"
	"github.com/roneel47/4Sure-sub000/feedback"
	"github.com/roneel47/4Sure-sub000/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roomStore interface {
	Get(ctx context.Context, roomID string) (*domain.Room, error)
	Upsert(ctx context.Context, roomID string, mutate domain.Mutation) (*domain.Room, error)
	Retire(ctx context.Context, idleBefore time.Time) (int, error)
}

func createRoom(capacity int) domain.Mutation {
	return func(current *domain.Room) (*domain.Room, error) {
		if current != nil {
			return nil, domain.ErrUnchanged
		}
		return domain.NewRoom("ignored", capacity, time.Now()), nil
	}
}

func seedRoom(id string, status domain.RoomStatus, connected bool) domain.Mutation {
	return func(current *domain.Room) (*domain.Room, error) {
		r := domain.NewRoom(id, 2, time.Now())
		r.Status = status
		conn := ""
		if connected {
			conn = "conn-" + id
		}
		r.Players["player1"] = &domain.PlayerState{Handle: "player1", Slot: 1, ConnectionID: conn}
		return r, nil
	}
}

// upsertRetrying retries stale writes the way the coordinator does.
func upsertRetrying(ctx context.Context, s roomStore, id string, m domain.Mutation) (*domain.Room, error) {
	for {
		room, err := s.Upsert(ctx, id, m)
		if errors.Is(err, domain.ErrStaleRoom) {
			continue
		}
		return room, err
	}
}

func runStoreSuite(t *testing.T, newStore func(t *testing.T) roomStore) {
	ctx := context.Background()

	t.Run("Get missing room", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	})

	t.Run("Upsert creates then reads back", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Upsert(ctx, "room-a", func(current *domain.Room) (*domain.Room, error) {
			assert.Nil(t, current)
			r := domain.NewRoom("room-a", 2, time.Now())
			r.Players["player1"] = &domain.PlayerState{Handle: "player1", Slot: 1, ConnectionID: "c1"}
			return r, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.Version)

		got, err := s.Get(ctx, "room-a")
		require.NoError(t, err)
		if diff := cmp.Diff(created, got); diff != "" {
			t.Errorf("stored room mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Upsert hands the mutation the stored room", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Upsert(ctx, "room-b", createRoom(3))
		require.NoError(t, err)

		updated, err := s.Upsert(ctx, "room-b", func(current *domain.Room) (*domain.Room, error) {
			require.NotNil(t, current)
			assert.Equal(t, 3, current.Capacity)
			current.Players["player1"] = &domain.PlayerState{Handle: "player1", Slot: 1}
			return current, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Version)
		assert.Len(t, updated.Players, 1)
	})

	t.Run("Unchanged keeps the version", func(t *testing.T) {
		s := newStore(t)
		first, err := s.Upsert(ctx, "room-c", createRoom(2))
		require.NoError(t, err)

		again, err := s.Upsert(ctx, "room-c", createRoom(2))
		require.NoError(t, err)
		assert.Equal(t, first.Version, again.Version)
	})

	t.Run("Unchanged on a missing room", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Upsert(ctx, "room-d", func(current *domain.Room) (*domain.Room, error) {
			return nil, domain.ErrUnchanged
		})
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	})

	t.Run("Mutation error writes nothing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Upsert(ctx, "room-e", createRoom(2))
		require.NoError(t, err)

		boom := errors.New("boom")
		_, err = s.Upsert(ctx, "room-e", func(current *domain.Room) (*domain.Room, error) {
			current.Capacity = 4
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.Get(ctx, "room-e")
		require.NoError(t, err)
		assert.Equal(t, 2, got.Capacity)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("Concurrent appends are never lost", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Upsert(ctx, "room-f", func(current *domain.Room) (*domain.Room, error) {
			r := domain.NewRoom("room-f", 2, time.Now())
			r.Players["player1"] = &domain.PlayerState{Handle: "player1", Slot: 1}
			return r, nil
		})
		require.NoError(t, err)

		const writers = 20
		wg := sync.WaitGroup{}
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := upsertRetrying(ctx, s, "room-f", func(current *domain.Room) (*domain.Room, error) {
					p := current.Players["player1"]
					if i%2 == 0 {
						p.ConnectionID = fmt.Sprintf("conn-%d", i)
					}
					p.GuessesMade = append(p.GuessesMade, domain.Guess{Value: fmt.Sprintf("%04d", i), Feedback: feedback.Feedback{}})
					return current, nil
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := s.Get(ctx, "room-f")
		require.NoError(t, err)
		assert.Len(t, got.Players["player1"].GuessesMade, writers)
		assert.Equal(t, int64(writers+1), got.Version)
	})

	t.Run("Retire", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Upsert(ctx, "finished-empty", seedRoom("finished-empty", domain.StatusGameOver, false))
		require.NoError(t, err)
		_, err = s.Upsert(ctx, "finished-watched", seedRoom("finished-watched", domain.StatusGameOver, true))
		require.NoError(t, err)
		_, err = s.Upsert(ctx, "waiting", seedRoom("waiting", domain.StatusWaitingForPlayers, true))
		require.NoError(t, err)

		n, err := s.Retire(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = s.Get(ctx, "finished-empty")
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
		_, err = s.Get(ctx, "finished-watched")
		assert.NoError(t, err)

		n, err = s.Retire(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		_, err = s.Get(ctx, "waiting")
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)

		// the id is free again
		created, err := s.Upsert(ctx, "waiting", createRoom(2))
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.Version)
	})
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	runStoreSuite(t, func(t *testing.T) roomStore {
		return storage.NewMemoryStore()
	})
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := storage.NewMemoryStore()

	created, err := s.Upsert(ctx, "room", seedRoom("room", domain.StatusWaitingForPlayers, true))
	require.NoError(t, err)
	created.Players["player1"].ConnectionID = "tampered"

	got, err := s.Get(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, "conn-room", got.Players["player1"].ConnectionID)
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	runStoreSuite(t, func(t *testing.T) roomStore {
		s, err := storage.NewSQLiteStore(context.Background(), t.TempDir()+"/rooms.db")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := t.TempDir() + "/rooms.db"

	s, err := storage.NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	written, err := s.Upsert(ctx, "room", seedRoom("room", domain.StatusWaitingForPlayers, true))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := storage.NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "room")
	require.NoError(t, err)
	if diff := cmp.Diff(written, got); diff != "" {
		t.Errorf("room after reopen mismatch (-want +got):\n%s", diff)
	}
}
