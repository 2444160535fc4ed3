package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adamnnoli/monopoly/internal/api"
	"github.com/adamnnoli/monopoly/internal/api/handlers"
	"github.com/adamnnoli/monopoly/internal/config"
	"github.com/adamnnoli/monopoly/internal/db/mongodb"
	"github.com/adamnnoli/monopoly/internal/game/engine"
	"github.com/adamnnoli/monopoly/internal/game/manager"
	"github.com/adamnnoli/monopoly/internal/game/models"
	"github.com/adamnnoli/monopoly/internal/game/websocket"
	"github.com/adamnnoli/monopoly/internal/queue"
)

// memoryResults stands in for the mongo result store
type memoryResults struct {
	mu      sync.Mutex
	results map[string]models.GameResult
}

func newMemoryResults() *memoryResults {
	return &memoryResults{results: make(map[string]models.GameResult)}
}

func (m *memoryResults) Save(ctx context.Context, result models.GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.results[result.ResultID]; !ok {
		m.results[result.ResultID] = result
	}
	return nil
}

func (m *memoryResults) List(ctx context.Context, limit int64) ([]models.GameResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]models.GameResult, 0, len(m.results))
	for _, r := range m.results {
		r.Log = nil
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].FinishedAt.After(list[j].FinishedAt) })
	if limit > 0 && int64(len(list)) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *memoryResults) Get(ctx context.Context, gameID string) (*models.GameResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.GameResult
	for _, r := range m.results {
		if r.GameID == gameID && (latest == nil || r.Round > latest.Round) {
			r := r
			latest = &r
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: %s", mongodb.ErrResultNotFound, gameID)
	}
	return latest, nil
}

type testServer struct {
	*httptest.Server
	games  *manager.GameManager
	worker *queue.Worker
}

// startServer wires the bridge the way cmd/server does, with miniredis for the
// feed and an in-memory archive behind the queue worker
func startServer(t *testing.T, withBackends bool, rolls ...[2]int) *testServer {
	t.Helper()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	sugar := logger.Sugar()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	gm := manager.NewGameManager(ctx, sugar, manager.Options{
		NewDice: func() engine.Dice { return engine.NewFixedDice(rolls...) },
	})

	hub := websocket.NewHub(ctx, gm, sugar)
	go hub.Run()
	gm.AddSink(hub)

	ts := &testServer{games: gm}
	backends := api.Backends{}
	if withBackends {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		feed := queue.NewRedisQueue(client, logger)
		t.Cleanup(func() { _ = feed.Close() })

		store := newMemoryResults()
		gm.AddSink(feed)
		gm.SetArchiver(feed)
		ts.worker = queue.NewWorker(feed, store, logger)

		backends.RedisClient = client
		backends.Feed = feed
		backends.Results = store
	}

	cfg := &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", ReadTimeout: 15, WriteTimeout: 15}}
	server := api.NewServer(ctx, cfg, gm, hub, backends, sugar)
	ts.Server = httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string, out interface{}) int {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && resp.StatusCode < 300 && len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, out), string(data))
	}
	return resp.StatusCode
}

func (ts *testServer) action(t *testing.T, gameID, action string) handlers.ActionResponse {
	t.Helper()
	var resp handlers.ActionResponse
	code := ts.do(t, http.MethodPost, "/api/v1/games/"+gameID+"/actions/"+action, "", &resp)
	require.Equal(t, http.StatusOK, code, action)
	return resp
}

func readMessage(t *testing.T, conn *gorilla.Conn) websocket.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg websocket.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

const seats = `{"gameName":"friday night","players":[
	{"id":"p1","name":"Alice","color":"red"},
	{"id":"p2","name":"Bob","color":"blue"}]}`

func TestGameFromCreateToArchive(t *testing.T) {
	ts := startServer(t, true, [2]int{1, 2})

	var summary models.GameSummary
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/v1/games", seats, &summary))
	require.NotEmpty(t, summary.Code)

	// A renderer joins by room code and gets the board first
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + summary.Code
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readMessage(t, conn)
	require.Equal(t, websocket.MessageSnapshot, first.Type)
	require.NotNil(t, first.Snapshot)
	assert.Len(t, first.Snapshot.Board, 40)

	roll := ts.action(t, summary.ID, "roll")
	require.NotEmpty(t, roll.Entries)
	pushed := readMessage(t, conn)
	assert.Equal(t, websocket.MessageLog, pushed.Type)
	assert.Equal(t, roll.Entries, pushed.Entries)

	buy := ts.action(t, summary.ID, "buy")
	assert.Equal(t, models.LogBuySuccess, buy.Entries[len(buy.Entries)-1].Category)

	ts.action(t, summary.ID, "end-turn")
	quit := ts.action(t, summary.ID, "quit")
	assert.Equal(t, models.LogGameOver, quit.Entries[len(quit.Entries)-1].Category)
	assert.Equal(t, models.PhaseGameOver, quit.State.Phase)

	// Every batch landed in the redis feed with contiguous sequence numbers
	var replay []queue.FeedEntry
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/games/"+summary.ID+"/replay", "", &replay))
	require.NotEmpty(t, replay)
	for i, entry := range replay {
		assert.Equal(t, int64(i+1), entry.Seq)
	}
	assert.Equal(t, models.LogGameOver, replay[len(replay)-1].Category)

	// The result waits in the queue until the worker runs
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/v1/results/"+summary.ID, "", nil))
	processed, err := ts.worker.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	var results []models.GameResult
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/results?limit=5", "", &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Alice", results[0].WinnerName)

	var result models.GameResult
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/results/"+summary.ID, "", &result))
	assert.Equal(t, "friday night", result.Name)
	assert.NotEmpty(t, result.Log)

	var metrics struct {
		GameActions map[string]int `json:"gameActions"`
	}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/metrics", "", &metrics))
	assert.Equal(t, 1, metrics.GameActions[string(manager.CommandRoll)])
	assert.Equal(t, 1, metrics.GameActions[string(manager.CommandQuit)])
}

func TestRestartStartsFreshFeedAndRound(t *testing.T) {
	ts := startServer(t, true, [2]int{1, 2})

	var summary models.GameSummary
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/v1/games", seats, &summary))
	ts.action(t, summary.ID, "roll")
	ts.action(t, summary.ID, "buy")
	ts.action(t, summary.ID, "end-turn")
	ts.action(t, summary.ID, "quit")

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/v1/games/"+summary.ID+"/restart", "", nil))

	// Only the new game's opening entry is left in the feed
	var replay []queue.FeedEntry
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/games/"+summary.ID+"/replay", "", &replay))
	require.Len(t, replay, 1)
	assert.Equal(t, int64(1), replay[0].Seq)
	assert.Contains(t, replay[0].Message, "A new game has started")

	// Alice quits the second game, so Bob wins it
	ts.action(t, summary.ID, "quit")
	processed, err := ts.worker.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	var results []models.GameResult
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/results", "", &results))
	assert.Len(t, results, 2)

	var latest models.GameResult
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/results/"+summary.ID, "", &latest))
	assert.Equal(t, 2, latest.Round)
	assert.Equal(t, summary.ID+"-2", latest.ResultID)
	assert.Equal(t, "Bob", latest.WinnerName)
}

func TestRejectedCommandsAreLogged(t *testing.T) {
	ts := startServer(t, false)

	var summary models.GameSummary
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/v1/games", seats, &summary))

	resp := ts.action(t, summary.ID, "end-turn")
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, models.ReasonMustRollFirst, resp.Entries[0].Reason)
	assert.Equal(t, "p1", resp.State.CurrentPlayer)

	code := ts.do(t, http.MethodPost, "/api/v1/games/"+summary.ID+"/actions/build", `{"tile":"Boardwalk","count":9}`, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServerWithoutBackends(t *testing.T) {
	ts := startServer(t, false)

	var summary models.GameSummary
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/v1/games", seats, &summary))

	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodGet, "/api/v1/games/"+summary.ID+"/replay", "", nil))
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodGet, "/api/v1/results", "", nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/v1/games/nope", "", nil))

	var health handlers.SystemHealth
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "", &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 1, health.ActiveGames)
	assert.Equal(t, "disabled", health.Components["redis"].Status)
	assert.Equal(t, "disabled", health.Components["mongodb"].Status)
}
