package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockHub is a mock implementation of ConnectionHub
type MockHub struct {
	mock.Mock
}

func (m *MockHub) HandleWebSocketConnection(conn *websocket.Conn, gameID, clientID string) {
	m.Called(conn, gameID, clientID)
	conn.Close()
}

func (m *MockHub) CheckInactiveClients(maxIdle time.Duration) int {
	args := m.Called(maxIdle)
	return args.Int(0)
}

func TestHandleConnection(t *testing.T) {
	e, gameHandler, gm := newTestHandler(t)
	summary := createGame(t, e, gameHandler)

	hub := new(MockHub)
	connected := make(chan struct{})
	hub.On("HandleWebSocketConnection", mock.Anything, summary.ID, "renderer-1").
		Run(func(mock.Arguments) { close(connected) }).Once()

	handler := NewWebSocketHandler(hub, gm, zap.NewNop().Sugar())
	e.GET("/ws/:gameId", handler.HandleConnection)
	server := httptest.NewServer(e)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + summary.Code + "?clientId=renderer-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("connection was not handed to the hub")
	}
	hub.AssertExpectations(t)
}

func TestHandleConnection_UnknownGame(t *testing.T) {
	e, _, gm := newTestHandler(t)
	hub := new(MockHub)
	handler := NewWebSocketHandler(hub, gm, zap.NewNop().Sugar())

	c, _ := request(e, http.MethodGet, "/ws/nope", "", "gameId", "nope")
	assert.Equal(t, http.StatusNotFound, httpCode(t, handler.HandleConnection(c)))
	hub.AssertNotCalled(t, "HandleWebSocketConnection", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleConnection_MissingGameID(t *testing.T) {
	e, _, gm := newTestHandler(t)
	handler := NewWebSocketHandler(new(MockHub), gm, zap.NewNop().Sugar())

	c, _ := request(e, http.MethodGet, "/ws/", "")
	assert.Equal(t, http.StatusBadRequest, httpCode(t, handler.HandleConnection(c)))
}

func TestPingPongMonitorStops(t *testing.T) {
	_, _, gm := newTestHandler(t)
	handler := NewWebSocketHandler(new(MockHub), gm, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	handler.StartPingPongMonitor(ctx)
	cancel()
}

func TestPlainRequestIsNotUpgraded(t *testing.T) {
	e, gameHandler, gm := newTestHandler(t)
	summary := createGame(t, e, gameHandler)
	hub := new(MockHub)
	handler := NewWebSocketHandler(hub, gm, zap.NewNop().Sugar())

	c, rec := request(e, http.MethodGet, "/ws/"+summary.ID, "", "gameId", summary.ID)
	require.NoError(t, handler.HandleConnection(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	hub.AssertNotCalled(t, "HandleWebSocketConnection", mock.Anything, mock.Anything, mock.Anything)
}

