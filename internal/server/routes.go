package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"plateroom-server/internal/order"
	"plateroom-server/internal/protocol"
	"plateroom-server/internal/room"
)

func (s *Server) RegisterRoutes() http.Handler {
	gin.SetMode(s.cfg.Mode)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), s.corsMiddleware())

	r.GET("/health", s.healthHandler)
	r.GET("/ws", s.websocketHandler)
	r.GET("/websocket", s.websocketHandler)

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	db := s.store.Health(c.Request.Context())

	resp := HealthResponse{
		Status:      "ok",
		Database:    db,
		Rooms:       s.rooms.Stats(),
		Connections: s.connectionManager.Count(),
	}

	status := http.StatusOK
	if db["status"] != "up" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (s *Server) websocketHandler(c *gin.Context) {
	snapshot, err := s.admitOrder(c.Request)
	if err != nil {
		rejectAdmission(c, err)
		return
	}

	socket, err := websocket.Accept(newUpgradeWriter(c.Writer), c.Request, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		// Accept has already written the response.
		log.Warn().Err(err).Str("module", "server").Msg("websocket upgrade failed")
		return
	}
	socket.SetReadLimit(s.cfg.ReadLimit)

	ctx := c.Request.Context()
	cl := newClient(uuid.NewString(), socket, s.cfg.SendBuffer)
	s.connectionManager.AddConnection(cl)

	rm, err := s.rooms.Join(snapshot, cl)
	if err != nil {
		log.Error().Err(err).Str("module", "server").Str("conn", cl.id).Str("order", snapshot.UUID).Msg("join failed")
		s.connectionManager.RemoveConnection(cl.id)
		socket.Close(websocket.StatusInternalError, "Could not join order")
		return
	}

	logger := log.With().Str("module", "server").Str("conn", cl.id).Str("order", rm.OrderUUID()).Logger()
	logger.Info().Msg("connection admitted")

	defer func() {
		s.rooms.Leave(rm, cl.id)
		s.connectionManager.RemoveConnection(cl.id)
		s.rateLimiter.RemoveConnection(cl.id)
		logger.Info().Msg("connection closed")
	}()

	var wg conc.WaitGroup
	wg.Go(func() {
		cl.writePump(ctx, s.cfg.WriteTimeout)
		cl.shutdown(websocket.StatusNormalClosure, "")
		socket.Close(cl.closeCode, cl.closeReason)
	})

	s.readLoop(ctx, cl, rm, snapshot)
	cl.shutdown(websocket.StatusNormalClosure, "")
	wg.Wait()
}

// upgradeWriter sends the 101 status straight to the net/http writer and
// hijacks through gin's writer.
//
// Why: websocket.Accept calls gin's WriteHeaderNow before Hijack, and gin
// refuses to hijack a response it has already written. net/http flushes a
// pending 101 on Hijack, and hijacking through gin marks its response as
// written so gin adds nothing once the handler returns.
type upgradeWriter struct {
	http.ResponseWriter
	gw gin.ResponseWriter
}

func newUpgradeWriter(w gin.ResponseWriter) http.ResponseWriter {
	u, ok := w.(interface{ Unwrap() http.ResponseWriter })
	if !ok {
		return w
	}
	return upgradeWriter{ResponseWriter: u.Unwrap(), gw: w}
}

func (w upgradeWriter) WriteHeader(code int) {
	if code == http.StatusSwitchingProtocols {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.gw.WriteHeader(code)
}

// Write goes through gin so error responses from a failed Accept are
// accounted for.
func (w upgradeWriter) Write(data []byte) (int, error) {
	return w.gw.Write(data)
}

func (w upgradeWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.gw.Hijack()
}

// readLoop decodes and dispatches frames until the socket fails or closes.
func (s *Server) readLoop(ctx context.Context, cl *client, rm *room.Room, snapshot order.Order) {
	for {
		msgType, data, err := cl.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Debug().Str("module", "server").Str("conn", cl.id).Msg("peer closed")
			default:
				if !cl.closed() && !errors.Is(err, context.Canceled) {
					log.Warn().Err(err).Str("module", "server").Str("conn", cl.id).Msg("read failed")
				}
			}
			return
		}

		if msgType != websocket.MessageText {
			s.sendError(cl, "INVALID_MESSAGE: Only text frames are accepted")
			continue
		}

		if !s.rateLimiter.Allow(cl.id) {
			s.sendError(cl, "RATE_LIMITED: Too many messages, slow down")
			continue
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			log.Debug().Err(err).Str("module", "server").Str("conn", cl.id).Msg("invalid message")
			s.sendError(cl, err.Error())
			continue
		}

		switch m := msg.(type) {
		case protocol.UpdateDish:
			s.handleUpdateDish(cl, rm, snapshot, m)
		case protocol.CompleteRound:
			s.handleCompleteRound(ctx, cl, rm)
		case protocol.Ping:
			s.handlePing(cl)
		}
	}
}
