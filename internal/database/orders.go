package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"plateroom-server/internal/order"
)

var ErrOrderNotFound = errors.New("ORDER_NOT_FOUND: Order not found or not open")

const openOrderQuery = `
	SELECT o.id, o.uuid::text, o.is_open, o.total_amount::text, o.menu_id, m.name, t.name, t.seats
	FROM orders o
	JOIN menus m ON m.id = o.menu_id
	JOIN tables t ON t.id = o.table_id
	WHERE o.uuid = $1 AND o.is_open
`

const menuDishesQuery = `
	SELECT d.id, d.name, d.description, d.supplement::text, d.photo_path, c.name
	FROM menu_dishes md
	JOIN dishes d ON d.id = md.dish_id
	JOIN dish_categories c ON c.id = d.category_id
	WHERE md.menu_id = $1
	ORDER BY md.position, d.id
`

// GetOpenOrder loads the snapshot of an open order. Closed and unknown
// orders both yield ErrOrderNotFound.
func (s *Store) GetOpenOrder(ctx context.Context, orderUUID string) (order.Order, error) {
	var snapshot order.Order

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		var (
			menuID int64
			total  string
		)
		err := tx.QueryRow(ctx, openOrderQuery, orderUUID).Scan(
			&snapshot.ID,
			&snapshot.UUID,
			&snapshot.IsOpen,
			&total,
			&menuID,
			&snapshot.Menu.Name,
			&snapshot.Table.Name,
			&snapshot.Table.Seats,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load order %s: %w", orderUUID, err)
		}

		if snapshot.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return fmt.Errorf("failed to parse total of order %s: %w", orderUUID, err)
		}

		rows, err := tx.Query(ctx, menuDishesQuery, menuID)
		if err != nil {
			return fmt.Errorf("failed to query dishes of menu %d: %w", menuID, err)
		}
		snapshot.Menu.Dishes, err = pgx.CollectRows(rows, scanDish)
		if err != nil {
			return fmt.Errorf("failed to scan dishes of menu %d: %w", menuID, err)
		}
		return nil
	})
	if err != nil {
		return order.Order{}, err
	}

	return snapshot, nil
}

func scanDish(row pgx.CollectableRow) (order.Dish, error) {
	var (
		dish       order.Dish
		supplement string
	)
	if err := row.Scan(&dish.ID, &dish.Name, &dish.Description, &supplement, &dish.PhotoPath, &dish.Category); err != nil {
		return order.Dish{}, err
	}

	var err error
	if dish.Supplement, err = decimal.NewFromString(supplement); err != nil {
		return order.Dish{}, fmt.Errorf("dish %d supplement: %w", dish.ID, err)
	}
	return dish, nil
}
