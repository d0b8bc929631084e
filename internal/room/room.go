// Package room holds the in-memory session state shared by every socket
// connected to the same order.
package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"plateroom-server/internal/order"
	"plateroom-server/internal/protocol"
)

//go:generate mockgen -destination=mock_store_test.go -package=room . RoundStore

var (
	ErrEmptyRound        = errors.New("EMPTY_ROUND: The current round has no dishes")
	ErrPersistenceFailed = errors.New("PERSISTENCE_FAILED: Could not save the round, please retry")
)

// Member is a connected socket as seen by a room. Send must not block.
type Member interface {
	ID() string
	Send(data []byte) error
}

// RoundStore persists completed rounds.
type RoundStore interface {
	InsertCompletedRound(ctx context.Context, orderID int64, dishes order.Quantities) (order.Round, error)
}

type Room struct {
	orderUUID     string
	orderID       int64
	store         RoundStore
	commitTimeout time.Duration

	// opMu serializes ApplyDelta and Commit. Commit holds it across the
	// store call, so a slow write only delays later mutations of this room.
	opMu sync.Mutex

	// mu guards members and current. Writers of current hold opMu as well.
	mu      sync.Mutex
	members map[string]Member
	current order.Quantities
}

func newRoom(o order.Order, store RoundStore, commitTimeout time.Duration) *Room {
	return &Room{
		orderUUID:     o.UUID,
		orderID:       o.ID,
		store:         store,
		commitTimeout: commitTimeout,
		members:       make(map[string]Member),
		current:       order.Quantities{},
	}
}

func (r *Room) OrderUUID() string { return r.orderUUID }

// Snapshot returns a copy of the current round.
func (r *Room) Snapshot() order.Quantities {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.Clone()
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// ApplyDelta adds deltas to the current round as one step and sends the
// resulting round to every member, including the one that asked for it.
func (r *Room) ApplyDelta(deltas order.Quantities) (order.Quantities, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	next := r.current.Apply(deltas)
	data, err := protocol.EncodeUpdateRound(next)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.current = next
	sent := r.broadcastLocked(data, "")
	r.mu.Unlock()

	log.Debug().Str("module", "room").Str("order", r.orderUUID).Int("dishes", len(next)).Int("sent_to", sent).Msg("round updated")
	return next.Clone(), nil
}

// Commit persists the current round and resets it. An empty round is
// rejected without touching the store. On a store failure the round is
// left exactly as it was.
//
// The store call ignores ctx's cancellation: a disconnecting client
// cannot abort a commit half way.
func (r *Room) Commit(ctx context.Context) (order.Round, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if len(r.current) == 0 {
		return order.Round{}, ErrEmptyRound
	}
	dishes := r.current.Clone()

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.commitTimeout)
	defer cancel()

	round, err := r.store.InsertCompletedRound(storeCtx, r.orderID, dishes)
	if err != nil {
		log.Error().Err(err).Str("module", "room").Str("order", r.orderUUID).Msg("round commit failed")
		return order.Round{}, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	data, err := protocol.EncodeRoundCompleted(round)
	if err != nil {
		log.Error().Err(err).Str("module", "room").Str("order", r.orderUUID).Msg("encode round_completed")
	}

	r.mu.Lock()
	r.current = order.Quantities{}
	sent := 0
	if data != nil {
		sent = r.broadcastLocked(data, "")
	}
	r.mu.Unlock()

	log.Info().Str("module", "room").Str("order", r.orderUUID).Int("round", round.Number).Int("items", dishes.Total()).Int("sent_to", sent).Msg("round committed")
	return round, nil
}

// Broadcast sends data to every member except exclude and returns how
// many members accepted it.
func (r *Room) Broadcast(data []byte, exclude string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcastLocked(data, exclude)
}

func (r *Room) broadcastLocked(data []byte, exclude string) int {
	sent := 0
	for id, m := range r.members {
		if id == exclude {
			continue
		}
		if err := m.Send(data); err != nil {
			log.Debug().Err(err).Str("module", "room").Str("member", id).Msg("skipping member")
			continue
		}
		sent++
	}
	return sent
}
