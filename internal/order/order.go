package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the denormalized snapshot a connection is admitted with.
// It is loaded once per admission and never mutated afterwards.
type Order struct {
	ID          int64           `json:"id"`
	UUID        string          `json:"uuid"`
	IsOpen      bool            `json:"is_open"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Menu        Menu            `json:"menu"`
	Table       Table           `json:"table"`
}

type Menu struct {
	Name   string `json:"name"`
	Dishes []Dish `json:"dishes"`
}

type Dish struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Supplement  decimal.Decimal `json:"supplement"`
	PhotoPath   *string         `json:"photo_path"`
	Category    string          `json:"category"`
}

type Table struct {
	Name  string `json:"name"`
	Seats int    `json:"seats"`
}

// HasDish reports whether the dish is on the order's menu.
func (o Order) HasDish(dishID int64) bool {
	for _, d := range o.Menu.Dishes {
		if d.ID == dishID {
			return true
		}
	}
	return false
}

type RoundStatus string

const RoundCompleted RoundStatus = "completed"

// Round is a committed round as stored in the rounds table.
type Round struct {
	ID        int64       `json:"id"`
	OrderID   int64       `json:"order_id"`
	Number    int         `json:"number"`
	Status    RoundStatus `json:"status"`
	Dishes    Quantities  `json:"dishes"`
	CreatedAt time.Time   `json:"created_at"`
}
