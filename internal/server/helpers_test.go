package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"plateroom-server/internal/config"
	"plateroom-server/internal/database"
	"plateroom-server/internal/order"
	"plateroom-server/internal/protocol"
)

const (
	openOrderUUID   = "0f8fad5b-d9cb-469f-a165-70867728950e"
	otherOrderUUID  = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	closedOrderUUID = "16fd2706-8baf-433b-82eb-8c7fada847da"
	brokenOrderUUID = "886313e1-3b8a-5372-9b90-0c9aee199e5d"
)

var errStoreDown = errors.New("connection refused")

// fakeStore is an in-memory Store. brokenOrderUUID always fails the lookup.
type fakeStore struct {
	mu        sync.Mutex
	orders    map[string]order.Order
	rounds    []order.Round
	lookups   int
	insertErr error
	dbDown    bool
}

func newFakeStore() *fakeStore {
	closed := testOrder(closedOrderUUID, 3)
	closed.IsOpen = false

	return &fakeStore{
		orders: map[string]order.Order{
			openOrderUUID:   testOrder(openOrderUUID, 1),
			otherOrderUUID:  testOrder(otherOrderUUID, 2),
			closedOrderUUID: closed,
		},
	}
}

func (f *fakeStore) GetOpenOrder(ctx context.Context, orderUUID string) (order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++

	if orderUUID == brokenOrderUUID {
		return order.Order{}, errStoreDown
	}
	o, ok := f.orders[orderUUID]
	if !ok || !o.IsOpen {
		return order.Order{}, database.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeStore) InsertCompletedRound(ctx context.Context, orderID int64, dishes order.Quantities) (order.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return order.Round{}, f.insertErr
	}

	number := 1
	for _, r := range f.rounds {
		if r.OrderID == orderID {
			number++
		}
	}
	round := order.Round{
		ID:        int64(len(f.rounds) + 1),
		OrderID:   orderID,
		Number:    number,
		Status:    order.RoundCompleted,
		Dishes:    dishes.Clone(),
		CreatedAt: time.Now(),
	}
	f.rounds = append(f.rounds, round)
	return round, nil
}

func (f *fakeStore) Health(ctx context.Context) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dbDown {
		return map[string]string{"status": "down", "error": "db down"}
	}
	return map[string]string{"status": "up", "message": "It's healthy"}
}

func (f *fakeStore) setInsertErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertErr = err
}

func (f *fakeStore) savedRounds() []order.Round {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]order.Round(nil), f.rounds...)
}

func (f *fakeStore) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

func testOrder(uuid string, id int64) order.Order {
	desc := "Pork dumplings"
	return order.Order{
		ID:          id,
		UUID:        uuid,
		IsOpen:      true,
		TotalAmount: decimal.RequireFromString("12.50"),
		Menu: order.Menu{
			Name: "Dinner",
			Dishes: []order.Dish{
				{ID: 5, Name: "Gyoza", Description: &desc, Supplement: decimal.Zero, Category: "Starters"},
				{ID: 9, Name: "Ramen", Supplement: decimal.RequireFromString("1.50"), Category: "Mains"},
			},
		},
		Table: order.Table{Name: "T1", Seats: 4},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Mode:            gin.TestMode,
		Port:            8080,
		DatabaseURL:     "postgres://unused",
		AllowedOrigins:  []string{"*"},
		LogLevel:        "info",
		LogFormat:       "console",
		ReadLimit:       32768,
		SendBuffer:      64,
		WriteTimeout:    5 * time.Second,
		CommitTimeout:   5 * time.Second,
		RateLimit:       100,
		RateWindow:      time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// setupTestServer starts the full gin router over a fake store.
func setupTestServer(t *testing.T) (*Server, *fakeStore, string) {
	t.Helper()
	store := newFakeStore()
	s := NewServer(testConfig(), store)

	ts := httptest.NewServer(s.RegisterRoutes())
	t.Cleanup(ts.Close)

	return s, store, ts.URL
}

func wsURL(base, orderUUID string) string {
	return "ws" + strings.TrimPrefix(base, "http") + "/ws?order_uuid=" + orderUUID
}

type frame struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// dial connects to an order and consumes its order_data frame.
func dial(t *testing.T, base, orderUUID string) (*websocket.Conn, protocol.OrderData) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(base, orderUUID), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })

	f := readFrame(t, conn)
	require.Equal(t, protocol.TypeOrderData, f.Type)

	var data protocol.OrderData
	require.NoError(t, json.Unmarshal(f.Data, &data))
	return conn, data
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func writeRaw(t *testing.T, conn *websocket.Conn, data string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(data)))
}

func roundFrom(t *testing.T, f frame) order.Quantities {
	t.Helper()
	require.Equal(t, protocol.TypeUpdateRound, f.Type, "got %s: %s", f.Type, f.Message)
	var q order.Quantities
	require.NoError(t, json.Unmarshal(f.Data, &q))
	return q
}

func testContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
