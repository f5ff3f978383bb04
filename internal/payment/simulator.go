package payment

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

// OutcomeSource decides how a charge attempt ends. Tests plug in a
// deterministic source; production uses RandomOutcome.
type OutcomeSource interface {
	Outcome() (approved bool, reason string)
}

type RandomOutcome struct{}

func (RandomOutcome) Outcome() (bool, string) {
	randomInt := rand.Intn(101) // 101 because Intn is exclusive of the upper bound
	return calcOutcome(randomInt)
}

// Refusal reasons 1..5; index 0 is unused so the offset math below maps
// directly onto the table.
var refusalReasons = [...]string{
	1: "insufficient_funds",
	2: "card_expired",
	3: "card_declined",
	4: "suspected_fraud",
	5: "processing_error",
}

// calcOutcome approves ~95% of charges. Values 96..100 pick one of the
// five known refusal reasons, 95 declines with no specific reason.
func calcOutcome(randomInt int) (bool, string) {
	if randomInt < 95 {
		return true, ""
	}
	otherReason := randomInt - 95
	if otherReason == 0 || otherReason > 5 {
		return false, "unknown reason"
	}
	return false, refusalReasons[otherReason]
}

// Simulator stands in for a real payment provider. It answers after an
// optional artificial latency, which lets the timeout and breaker paths
// be exercised without a flaky dependency.
type Simulator struct {
	outcome OutcomeSource
	latency time.Duration
}

func NewSimulator(outcome OutcomeSource, latency time.Duration) *Simulator {
	return &Simulator{
		outcome: outcome,
		latency: latency,
	}
}

func (s *Simulator) Charge(ctx context.Context, checkoutID uuid.UUID, _ domain.Money, _ domain.PaymentMethod) (*Result, error) {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	approved, reason := s.outcome.Outcome()
	return &Result{
		Approved:  approved,
		Reference: fmt.Sprintf("TXN-%s-%d", checkoutID, time.Now().UnixNano()),
		Reason:    reason,
	}, nil
}

// Refund is always success for this implementation.
func (s *Simulator) Refund(context.Context, uuid.UUID, string, domain.Money) error {
	return nil
}
