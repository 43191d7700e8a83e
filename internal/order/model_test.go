package order_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/gamestore-backend/internal/order"
)

func TestOrderLine_Total(t *testing.T) {
	tests := []struct {
		name     string
		line     order.OrderLine
		expected string
	}{
		{
			name: "no_discount",
			line: order.OrderLine{
				UnitPrice: decimal.RequireFromString("10.00"),
				Quantity:  1,
			},
			expected: "10.00",
		},
		{
			name: "quantity_and_discount",
			line: order.OrderLine{
				UnitPrice:       decimal.RequireFromString("5.00"),
				Quantity:        2,
				DiscountPercent: 10,
			},
			expected: "9.00",
		},
		{
			name: "full_discount",
			line: order.OrderLine{
				UnitPrice:       decimal.RequireFromString("59.99"),
				Quantity:        3,
				DiscountPercent: 100,
			},
			expected: "0.00",
		},
		{
			name: "rounding_to_cents",
			line: order.OrderLine{
				UnitPrice:       decimal.RequireFromString("9.99"),
				Quantity:        3,
				DiscountPercent: 33,
			},
			// 9.99 * 3 * 0.67 = 20.0799
			expected: "20.08",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.line.Total().StringFixed(2))
		})
	}
}

func TestOrder_Total(t *testing.T) {
	ord := order.Order{
		Lines: []order.OrderLine{
			{UnitPrice: decimal.RequireFromString("10.00"), Quantity: 1},
			{UnitPrice: decimal.RequireFromString("5.00"), Quantity: 2, DiscountPercent: 10},
		},
	}

	assert.Equal(t, "19.00", ord.Total().StringFixed(2))
}

func TestOrder_Total_Empty(t *testing.T) {
	assert.Equal(t, "0.00", order.Order{}.Total().StringFixed(2))
}
