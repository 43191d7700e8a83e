package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Game is a catalog entry. DiscountPercent is the current sale discount; it
// is snapshotted into order lines when the game is added to a cart.
type Game struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Key             string          `json:"key" db:"game_key"`
	Name            string          `json:"name" db:"name"`
	Genre           string          `json:"genre" db:"genre"`
	Price           decimal.Decimal `json:"price" db:"price"`
	DiscountPercent int             `json:"discount_percent" db:"discount_percent"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}
