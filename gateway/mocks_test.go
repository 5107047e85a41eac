package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// --- NetworkSession ---

type MockNetworkSession struct {
	mock.Mock
}

func (m *MockNetworkSession) Close(code string) {
	m.Called(code)
}

func (m *MockNetworkSession) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockNetworkSession) Read() ([]byte, error) {
	args := m.Called()
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockNetworkSession) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func newTestClient(id string) *Client {
	return NewClient(id, &MockNetworkSession{}, rate.NewLimiter(rate.Inf, 1))
}

// nextMessage pops the next queued frame of a client whose pumps are not running.
func nextMessage(t *testing.T, c *Client) ServerMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var m ServerMessage
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(time.Second):
		t.Fatalf("no message queued for %s", c.id)
		return ServerMessage{}
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message for %s: %s", c.id, data)
	default:
	}
}

func closed(c *Client) bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
