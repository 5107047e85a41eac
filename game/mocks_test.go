package game

import (
	"context"
	"time"

	"github.com/roneel47/4Sure-sub000/domain"
	"github.com/stretchr/testify/mock"
)

// --- Publisher ---

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockPublisher) Last() Notification {
	calls := m.Calls
	return calls[len(calls)-1].Arguments.Get(1).(Notification)
}

// --- RoomStore ---

type MockRoomStore struct {
	mock.Mock
}

func (m *MockRoomStore) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	room, _ := args.Get(0).(*domain.Room)
	return room, args.Error(1)
}

func (m *MockRoomStore) Upsert(ctx context.Context, roomID string, mutate domain.Mutation) (*domain.Room, error) {
	args := m.Called(ctx, roomID, mutate)
	room, _ := args.Get(0).(*domain.Room)
	return room, args.Error(1)
}

// --- RoomRetirer ---

type MockRoomRetirer struct {
	mock.Mock
}

func (m *MockRoomRetirer) Retire(ctx context.Context, idleBefore time.Time) (int, error) {
	args := m.Called(ctx, idleBefore)
	return args.Int(0), args.Error(1)
}

// --- PeriodicTickerChannelCreator ---

type MockPeriodicTickerChannelCreator struct {
	mock.Mock
}

func (m *MockPeriodicTickerChannelCreator) Create(duration time.Duration) <-chan time.Time {
	args := m.Called(duration)
	return args.Get(0).(chan time.Time)
}
