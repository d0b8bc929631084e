package room

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"plateroom-server/internal/order"
	"plateroom-server/internal/protocol"
)

var errMemberClosed = errors.New("member closed")

// fakeMember records every frame it is sent.
type fakeMember struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeMember(id string) *fakeMember {
	return &fakeMember{id: id}
}

func (m *fakeMember) ID() string { return m.id }

func (m *fakeMember) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errMemberClosed
	}
	m.frames = append(m.frames, data)
	return nil
}

func (m *fakeMember) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

type decodedFrame struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (m *fakeMember) messages(t *testing.T) []decodedFrame {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]decodedFrame, 0, len(m.frames))
	for _, f := range m.frames {
		var d decodedFrame
		require.NoError(t, json.Unmarshal(f, &d))
		out = append(out, d)
	}
	return out
}

func (m *fakeMember) last(t *testing.T) decodedFrame {
	t.Helper()
	msgs := m.messages(t)
	require.NotEmpty(t, msgs, "member %s received nothing", m.id)
	return msgs[len(msgs)-1]
}

func roundOf(t *testing.T, f decodedFrame) order.Quantities {
	t.Helper()
	require.Equal(t, protocol.TypeUpdateRound, f.Type)
	var q order.Quantities
	require.NoError(t, json.Unmarshal(f.Data, &q))
	return q
}

func testOrder(uuid string) order.Order {
	return order.Order{
		ID:     42,
		UUID:   uuid,
		IsOpen: true,
		Menu: order.Menu{
			Name:   "Dinner",
			Dishes: []order.Dish{{ID: 5, Name: "Gyoza"}, {ID: 9, Name: "Ramen"}},
		},
		Table: order.Table{Name: "T1", Seats: 2},
	}
}
