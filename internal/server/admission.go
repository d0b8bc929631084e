package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"plateroom-server/internal/database"
	"plateroom-server/internal/order"
)

var (
	ErrMissingParameter = errors.New("MISSING_PARAMETER: Missing order_uuid parameter")
	ErrOrderUnavailable = errors.New("ORDER_UNAVAILABLE: Order not found or not open")
	ErrStoreFailure     = errors.New("STORE_FAILURE: Error checking order")
)

// admitOrder validates an admission request and loads its order. Nothing
// outside the store is touched.
func (s *Server) admitOrder(r *http.Request) (order.Order, error) {
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return order.Order{}, fmt.Errorf("%w: not a websocket upgrade request", ErrMissingParameter)
	}

	raw := strings.TrimSpace(r.URL.Query().Get("order_uuid"))
	if raw == "" {
		return order.Order{}, ErrMissingParameter
	}

	orderUUID, err := uuid.Parse(raw)
	if err != nil {
		return order.Order{}, fmt.Errorf("%w: %w", ErrOrderUnavailable, err)
	}

	snapshot, err := s.store.GetOpenOrder(r.Context(), orderUUID.String())
	switch {
	case errors.Is(err, database.ErrOrderNotFound):
		return order.Order{}, ErrOrderUnavailable
	case err != nil:
		return order.Order{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	return snapshot, nil
}

// rejectAdmission answers a failed admission with its status and a JSON
// body. Store details stay in the log.
func rejectAdmission(c *gin.Context, err error) {
	var status int
	var code string
	var message string

	switch {
	case errors.Is(err, ErrMissingParameter):
		status, code, message = http.StatusBadRequest, "MISSING_PARAMETER", err.Error()
	case errors.Is(err, ErrOrderUnavailable):
		status, code, message = http.StatusNotFound, "ORDER_UNAVAILABLE", ErrOrderUnavailable.Error()
	default:
		log.Error().Err(err).Str("module", "server.admission").Msg("order lookup failed")
		status, code, message = http.StatusInternalServerError, "STORE_FAILURE", ErrStoreFailure.Error()
	}

	log.Debug().Str("module", "server.admission").Str("code", code).Str("remote", c.ClientIP()).Msg("admission rejected")
	c.AbortWithStatusJSON(status, ErrorMessage{Message: message, Code: code})
}
