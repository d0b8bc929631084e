package room

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"plateroom-server/internal/order"
	"plateroom-server/internal/protocol"
)

const defaultCommitTimeout = 10 * time.Second

// Registry maps order uuids to live rooms. A room is present exactly while
// it has at least one member.
type Registry struct {
	store         RoundStore
	commitTimeout time.Duration

	mu    sync.Mutex
	rooms map[string]*Room
}

type Option func(*Registry)

// WithCommitTimeout bounds each round store call.
func WithCommitTimeout(d time.Duration) Option {
	return func(reg *Registry) {
		if d > 0 {
			reg.commitTimeout = d
		}
	}
}

func NewRegistry(store RoundStore, opts ...Option) *Registry {
	reg := &Registry{
		store:         store,
		commitTimeout: defaultCommitTimeout,
		rooms:         make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(reg)
	}
	return reg
}

// Join adds m to the room for o, creating the room if needed, and sends m
// an order_data frame with the room's current round. No broadcast can
// reach m before that frame.
func (reg *Registry) Join(o order.Order, m Member) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, exists := reg.rooms[o.UUID]
	if !exists {
		r = newRoom(o, reg.store, reg.commitTimeout)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := protocol.EncodeOrderData(o, r.current)
	if err != nil {
		return nil, err
	}

	if !exists {
		reg.rooms[o.UUID] = r
		log.Info().Str("module", "room.registry").Str("order", o.UUID).Msg("room created")
	}
	r.members[m.ID()] = m
	if err := m.Send(data); err != nil {
		log.Warn().Err(err).Str("module", "room.registry").Str("member", m.ID()).Msg("order_data not delivered")
	}

	log.Info().Str("module", "room.registry").Str("order", o.UUID).Str("member", m.ID()).Int("members", len(r.members)).Msg("member joined")
	return r, nil
}

// Leave removes a member and evicts the room once it is empty. Uncommitted
// dishes of an evicted room are dropped.
func (reg *Registry) Leave(r *Room, memberID string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r.mu.Lock()
	delete(r.members, memberID)
	remaining := len(r.members)
	pending := len(r.current)
	r.mu.Unlock()

	log.Info().Str("module", "room.registry").Str("order", r.orderUUID).Str("member", memberID).Int("members", remaining).Msg("member left")

	if remaining > 0 {
		return false
	}
	if reg.rooms[r.orderUUID] == r {
		delete(reg.rooms, r.orderUUID)
	}
	log.Info().Str("module", "room.registry").Str("order", r.orderUUID).Int("discarded_dishes", pending).Msg("room evicted")
	return true
}

func (reg *Registry) Get(orderUUID string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[orderUUID]
	return r, ok
}

func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

type Stats struct {
	Rooms   int `json:"rooms"`
	Members int `json:"members"`
}

func (reg *Registry) Stats() Stats {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	stats := Stats{Rooms: len(reg.rooms)}
	for _, r := range reg.rooms {
		r.mu.Lock()
		stats.Members += len(r.members)
		r.mu.Unlock()
	}
	return stats
}
