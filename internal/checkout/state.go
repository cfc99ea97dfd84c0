package checkout

import (
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// State tracks one checkout attempt.
type State string

const (
	StateCartReviewed    State = "CART_REVIEWED"
	StatePaymentRecorded State = "PAYMENT_RECORDED"
	StateOrderCommitted  State = "ORDER_COMMITTED"
	StateFailed          State = "FAILED"
)

func (s State) String() string {
	return string(s)
}

// attempt follows one checkout request through its states and logs every
// transition. CompleteOrder reports the final state on the Receipt.
type attempt struct {
	userID uuid.UUID
	state  State
}

func newAttempt(userID uuid.UUID) *attempt {
	a := &attempt{userID: userID}
	a.advance(StateCartReviewed)
	return a
}

func (a *attempt) advance(next State) {
	log.Info().
		Stringer("user_id", a.userID).
		Str("from", string(a.state)).
		Stringer("to", next).
		Msg("Checkout state changed")
	a.state = next
}

func (a *attempt) fail(err error) {
	log.Warn().
		Err(err).
		Stringer("user_id", a.userID).
		Str("from", string(a.state)).
		Stringer("to", StateFailed).
		Msg("Checkout state changed")
	a.state = StateFailed
}
