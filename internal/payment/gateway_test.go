package payment_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/gamestore-backend/internal/config"
	"github.com/vasiliy-maslov/gamestore-backend/internal/invoice"
	"github.com/vasiliy-maslov/gamestore-backend/internal/order"
	"github.com/vasiliy-maslov/gamestore-backend/internal/payment"
)

var (
	testUserID  = uuid.Must(uuid.FromString("123e4567-e89b-12d3-a456-426614174000"))
	testOrderID = uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))

	fixedTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return fixedTime }

func checkoutOrder() *order.Order {
	return &order.Order{
		ID:     testOrderID,
		UserID: testUserID,
		Status: order.StatusCheckout,
		Lines: []order.OrderLine{
			{UnitPrice: decimal.RequireFromString("10.00"), Quantity: 1},
			{UnitPrice: decimal.RequireFromString("5.00"), Quantity: 2, DiscountPercent: 10},
		},
	}
}

// newDispatcher builds a dispatcher whose gateways fail with the given
// probability; 0 and 1 pin the simulated behaviour.
func newDispatcher(failureProbability float64) *payment.Dispatcher {
	cfg := config.PaymentConfig{
		FailureProbability: failureProbability,
		CardNumberLength:   16,
		GatewayTimeout:     time.Second,
	}
	gen := invoice.NewGenerator(30, fixedClock)
	return payment.NewDispatcher(cfg, gen, rand.New(rand.NewSource(1)), fixedClock)
}

func validCard() *payment.CardDetails {
	return &payment.CardDetails{
		Number:     "4111111111111111",
		CVV:        "123",
		ExpiryYear: 2030,
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected payment.Method
		wantErr  bool
	}{
		{name: "visa", input: "visa", expected: payment.MethodVisa},
		{name: "ibox", input: "ibox terminal", expected: payment.MethodIBox},
		{name: "bank", input: "bank", expected: payment.MethodBank},
		{name: "unknown", input: "paypal", wantErr: true},
		{name: "case_sensitive", input: "Visa", wantErr: true},
		{name: "no_trimming", input: " visa", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := payment.ParseMethod(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, payment.ErrUnsupportedMethod)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, m)
			}
		})
	}
}

func TestVisaGateway_Validation(t *testing.T) {
	d := newDispatcher(0)

	tests := []struct {
		name      string
		card      *payment.CardDetails
		wantField string
	}{
		{
			name:      "nil_card",
			card:      nil,
			wantField: "card",
		},
		{
			name:      "fourteen_digit_number",
			card:      &payment.CardDetails{Number: "41111111111111", CVV: "123", ExpiryYear: 2030},
			wantField: "card_number",
		},
		{
			name:      "non_numeric_number",
			card:      &payment.CardDetails{Number: "4111-1111-1111-1", CVV: "123", ExpiryYear: 2030},
			wantField: "card_number",
		},
		{
			name:      "short_cvv",
			card:      &payment.CardDetails{Number: "4111111111111111", CVV: "12", ExpiryYear: 2030},
			wantField: "cvv",
		},
		{
			name:      "expired_card",
			card:      &payment.CardDetails{Number: "4111111111111111", CVV: "123", ExpiryYear: 2024},
			wantField: "expiry_year",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Pay(context.Background(), payment.MethodVisa, checkoutOrder(), testUserID, tt.card)

			var vErr *payment.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestVisaGateway_Charge(t *testing.T) {
	t.Run("success_when_backend_healthy", func(t *testing.T) {
		d := newDispatcher(0)

		outcome, err := d.Pay(context.Background(), payment.MethodVisa, checkoutOrder(), testUserID, validCard())
		require.NoError(t, err)

		card, ok := outcome.(payment.CardOutcome)
		require.True(t, ok)
		assert.True(t, card.Success)
	})

	t.Run("transient_failure_when_backend_down", func(t *testing.T) {
		d := newDispatcher(1)

		_, err := d.Pay(context.Background(), payment.MethodVisa, checkoutOrder(), testUserID, validCard())
		assert.ErrorIs(t, err, payment.ErrGatewayFailure)
	})
}

func TestIBoxGateway_Charge(t *testing.T) {
	t.Run("success_carries_timestamp_and_total", func(t *testing.T) {
		d := newDispatcher(0)

		outcome, err := d.Pay(context.Background(), payment.MethodIBox, checkoutOrder(), testUserID, nil)
		require.NoError(t, err)

		terminal, ok := outcome.(payment.TerminalOutcome)
		require.True(t, ok)
		assert.Equal(t, testUserID, terminal.UserID)
		assert.Equal(t, testOrderID, terminal.OrderID)
		assert.Equal(t, fixedTime, terminal.PaidAt)
		assert.Equal(t, "19.00", terminal.Amount.StringFixed(2))
	})

	t.Run("transient_failure", func(t *testing.T) {
		d := newDispatcher(1)

		_, err := d.Pay(context.Background(), payment.MethodIBox, checkoutOrder(), testUserID, nil)
		assert.ErrorIs(t, err, payment.ErrGatewayFailure)
	})
}

func TestBankGateway_NeverFails(t *testing.T) {
	// Failure probability 1 must not affect the bank gateway.
	d := newDispatcher(1)

	outcome, err := d.Pay(context.Background(), payment.MethodBank, checkoutOrder(), testUserID, nil)
	require.NoError(t, err)

	bank, ok := outcome.(payment.BankOutcome)
	require.True(t, ok)
	assert.NotEmpty(t, bank.InvoiceDocument)
	assert.Contains(t, bank.FileName, testOrderID.String())

	doc := string(bank.InvoiceDocument)
	assert.Contains(t, doc, testOrderID.String())
	assert.Contains(t, doc, testUserID.String())
	assert.Contains(t, doc, "19.00")
	assert.Contains(t, doc, fixedTime.AddDate(0, 0, 30).Format(time.RFC3339))
}

func TestDispatcher_Preconditions(t *testing.T) {
	d := newDispatcher(0)

	t.Run("order_not_in_checkout", func(t *testing.T) {
		ord := checkoutOrder()
		ord.Status = order.StatusOpen

		_, err := d.Pay(context.Background(), payment.MethodVisa, ord, testUserID, validCard())
		assert.ErrorIs(t, err, order.ErrStatusConflict)
	})

	t.Run("empty_order", func(t *testing.T) {
		ord := checkoutOrder()
		ord.Lines = nil

		_, err := d.Pay(context.Background(), payment.MethodBank, ord, testUserID, nil)
		assert.ErrorIs(t, err, order.ErrEmptyOrder)
	})

	t.Run("unsupported_method", func(t *testing.T) {
		_, err := d.Pay(context.Background(), payment.Method("crypto"), checkoutOrder(), testUserID, nil)
		assert.ErrorIs(t, err, payment.ErrUnsupportedMethod)
	})
}
