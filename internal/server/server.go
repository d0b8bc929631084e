package server

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"plateroom-server/internal/config"
	"plateroom-server/internal/order"
	"plateroom-server/internal/room"
)

// Store is the record store the server needs: open order lookups for
// admission, round inserts for commits and a health probe.
type Store interface {
	room.RoundStore
	GetOpenOrder(ctx context.Context, orderUUID string) (order.Order, error)
	Health(ctx context.Context) map[string]string
}

type Server struct {
	cfg               *config.Config
	store             Store
	rooms             *room.Registry
	connectionManager *ConnectionManager
	rateLimiter       *RateLimiter
}

func NewServer(cfg *config.Config, store Store) *Server {
	return &Server{
		cfg:               cfg,
		store:             store,
		rooms:             room.NewRegistry(store, room.WithCommitTimeout(cfg.CommitTimeout)),
		connectionManager: NewConnectionManager(),
		rateLimiter:       NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
	}
}

// Shutdown closes every socket with StatusGoingAway and waits until their
// handlers have left their rooms, or ctx ends.
// Why here and not in http.Server.Shutdown: hijacked connections are not
// tracked by net/http, so it would return while sockets are still open.
func (s *Server) Shutdown(ctx context.Context) error {
	n := s.connectionManager.CloseAll(websocket.StatusGoingAway, "Server shutting down")
	log.Info().Str("module", "server").Int("connections", n).Msg("closing connections")

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for s.connectionManager.Count() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("shutdown: %d connections still open: %w", s.connectionManager.Count(), ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
