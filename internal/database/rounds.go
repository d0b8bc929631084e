package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"plateroom-server/internal/order"
)

const insertRoundQuery = `
	INSERT INTO rounds (order_id, number, status, dishes)
	VALUES ($1, COALESCE((SELECT MAX(number) FROM rounds WHERE order_id = $1), 0) + 1, $2, $3)
	RETURNING id, number, created_at
`

// Two rooms of the same order can commit at once when one was evicted with
// a commit in flight. Both then read the same MAX(number); the loser hits
// the (order_id, number) unique key and takes the next number.
const insertRoundAttempts = 3

const uniqueViolation = "23505"

// InsertCompletedRound stores one completed round for the order and
// numbers it after the order's previous rounds.
func (s *Store) InsertCompletedRound(ctx context.Context, orderID int64, dishes order.Quantities) (order.Round, error) {
	payload, err := json.Marshal(dishes)
	if err != nil {
		return order.Round{}, fmt.Errorf("failed to serialize round dishes: %w", err)
	}

	round := order.Round{
		OrderID: orderID,
		Status:  order.RoundCompleted,
		Dishes:  dishes.Clone(),
	}

	for attempt := 1; ; attempt++ {
		err = s.pool.QueryRow(ctx, insertRoundQuery, orderID, string(order.RoundCompleted), payload).
			Scan(&round.ID, &round.Number, &round.CreatedAt)
		if err == nil {
			return round, nil
		}
		if !isUniqueViolation(err) || attempt == insertRoundAttempts {
			return order.Round{}, fmt.Errorf("failed to save round for order %d: %w", orderID, err)
		}
		log.Warn().Str("module", "database").Int64("order_id", orderID).Int("attempt", attempt).Msg("round number taken, retrying")
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
