package server

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"plateroom-server/internal/order"
	"plateroom-server/internal/protocol"
	"plateroom-server/internal/room"
)

func (s *Server) handleUpdateDish(cl *client, rm *room.Room, snapshot order.Order, msg protocol.UpdateDish) {
	// Sorted so the reported dish does not depend on map order.
	ids := make([]int64, 0, len(msg.Deltas))
	for id := range msg.Deltas {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if !snapshot.HasDish(id) {
			s.sendError(cl, fmt.Sprintf("UNKNOWN_DISH: Dish %d is not on this order's menu", id))
			return
		}
	}

	if _, err := rm.ApplyDelta(msg.Deltas); err != nil {
		log.Error().Err(err).Str("module", "server").Str("conn", cl.id).Msg("apply delta failed")
		s.sendError(cl, "INTERNAL_ERROR: Could not update the round")
	}
}

func (s *Server) handleCompleteRound(ctx context.Context, cl *client, rm *room.Room) {
	round, err := rm.Commit(ctx)
	switch {
	case errors.Is(err, room.ErrEmptyRound):
		s.sendError(cl, room.ErrEmptyRound.Error())
	case errors.Is(err, room.ErrPersistenceFailed):
		s.sendError(cl, room.ErrPersistenceFailed.Error())
	case err != nil:
		log.Error().Err(err).Str("module", "server").Str("conn", cl.id).Msg("commit failed")
		s.sendError(cl, "INTERNAL_ERROR: Could not complete the round")
	default:
		log.Debug().Str("module", "server").Str("conn", cl.id).Int("round", round.Number).Msg("round completed by client")
	}
}

func (s *Server) handlePing(cl *client) {
	data, err := protocol.EncodePong()
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("encode pong")
		return
	}
	if err := cl.Send(data); err != nil {
		log.Debug().Err(err).Str("module", "server").Str("conn", cl.id).Msg("failed to queue pong")
	}
}

// sendError replies to one client only.
func (s *Server) sendError(cl *client, message string) {
	data, err := protocol.EncodeError(message)
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("encode error frame")
		return
	}
	if err := cl.Send(data); err != nil {
		log.Debug().Err(err).Str("module", "server").Str("conn", cl.id).Msg("failed to queue error")
	}
}
