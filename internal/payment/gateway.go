package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/gamestore-backend/internal/order"
)

// ErrGatewayFailure marks a transient backend failure. The whole payment
// call is safe to retry, with the same or a different method.
var ErrGatewayFailure = errors.New("payment gateway transient failure")

// ValidationError reports a malformed payment model field. Not retryable
// without correcting the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type CardDetails struct {
	Number     string `json:"number"`
	CVV        string `json:"cvv"`
	ExpiryYear int    `json:"expiry_year"`
}

// Outcome is the tagged result of a gateway invocation. The variant tells
// the lifecycle manager whether the order is settled immediately or left in
// checkout for deferred settlement.
type Outcome interface {
	outcome()
}

// BankOutcome carries the invoice for a deferred bank transfer. The order
// stays in checkout until settlement completes out of band.
type BankOutcome struct {
	InvoiceDocument []byte
	FileName        string
}

// TerminalOutcome is an immediate terminal settlement.
type TerminalOutcome struct {
	UserID  uuid.UUID       `json:"user_id"`
	OrderID uuid.UUID       `json:"order_id"`
	PaidAt  time.Time       `json:"paid_at"`
	Amount  decimal.Decimal `json:"amount"`
}

// CardOutcome is an immediate card settlement.
type CardOutcome struct {
	Success bool `json:"success"`
}

func (BankOutcome) outcome()     {}
func (TerminalOutcome) outcome() {}
func (CardOutcome) outcome()     {}

type Gateway interface {
	Pay(ctx context.Context, ord *order.Order, userID uuid.UUID, card *CardDetails) (Outcome, error)
}

// failureSimulator imitates an unreliable external backend with a seedable
// source so failure scenarios reproduce in tests. Safe for concurrent use.
type failureSimulator struct {
	probability float64

	mu  sync.Mutex
	rng *rand.Rand
}

func newFailureSimulator(probability float64, rng *rand.Rand) *failureSimulator {
	return &failureSimulator{probability: probability, rng: rng}
}

func (f *failureSimulator) shouldFail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Float64() < f.probability
}
