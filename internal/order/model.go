package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusCheckout  Status = "CHECKOUT"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
	StatusShipped   Status = "SHIPPED"
)

func (s Status) String() string {
	return string(s)
}

var oneHundred = decimal.NewFromInt(100)

// OrderLine is one product entry inside an order. UnitPrice is a snapshot
// taken when the product was added and is never recomputed from the catalog.
type OrderLine struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderID         uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID       uuid.UUID       `json:"product_id" db:"product_id"`
	UnitPrice       decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity        int             `json:"quantity" db:"quantity"`
	DiscountPercent int             `json:"discount_percent" db:"discount_percent"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Total is unitPrice * quantity * (1 - discountPercent/100), rounded to the
// smallest currency unit.
func (l OrderLine) Total() decimal.Decimal {
	discount := oneHundred.Sub(decimal.NewFromInt(int64(l.DiscountPercent))).Div(oneHundred)
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Mul(discount).Round(2)
}

type Order struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	UserID    uuid.UUID   `json:"user_id" db:"user_id"`
	Status    Status      `json:"status" db:"status"`
	Lines     []OrderLine `json:"lines" db:"-"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Total())
	}
	return total.Round(2)
}
