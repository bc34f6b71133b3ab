package service

import (
	"errors"
	"math"
	"time"

	"github.com/dimasromerop/portal-giav/giav"
)

// Epsilon is the tolerance used for every money comparison, in cents.
const Epsilon int64 = 1

const (
	DeadlinePolicyLatest   = "latest"
	DeadlinePolicyEarliest = "earliest"
)

var (
	ErrAmountTooLow        = errors.New("amount must be greater than zero")
	ErrAmountTooHigh       = errors.New("amount exceeds the pending balance")
	ErrBelowMinimumPartial = errors.New("partial payments must reach the minimum amount")
)

type DepositQuote struct {
	// Allowed: the booking may still be paid with a deposit
	Allowed bool `json:"allowed"`
	// Effective: the deposit is smaller than the pending balance and is
	// offered as a separate option
	Effective bool      `json:"effective"`
	Amount    int64     `json:"amount"`
	Percent   float64   `json:"percent"`
	Deadline  time.Time `json:"deadline,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// QuoteDeposit computes the deposit offered for a booking. A deposit needs an
// untouched booking and a deadline that has not passed yet; the deadline day
// itself is still in time.
func QuoteDeposit(cfg DepositConfig, bookingID int64, balance giav.Balance, now time.Time) DepositQuote {
	quote := DepositQuote{Percent: depositPercent(cfg, bookingID)}
	pending := balance.Pending

	switch {
	case !cfg.Enabled:
		quote.Reason = "disabled"
		return quote
	case pending <= Epsilon:
		quote.Reason = "nothing_pending"
		return quote
	case balance.Paid > Epsilon:
		quote.Reason = "already_paid"
		return quote
	}

	quote.Deadline = pickDeadline(balance.Deadlines, cfg.DeadlinePolicy)
	if !quote.Deadline.IsZero() && !now.Before(quote.Deadline.AddDate(0, 0, 1)) {
		quote.Reason = "deadline_passed"
		return quote
	}

	amount := int64(math.Round(float64(pending) * quote.Percent / 100))
	if amount < cfg.Minimum {
		amount = cfg.Minimum
	}
	if amount > pending {
		amount = pending
	}
	quote.Allowed = true
	quote.Amount = amount
	quote.Effective = amount+Epsilon < pending
	if !quote.Effective {
		quote.Reason = "equals_pending"
	}
	return quote
}

func depositPercent(cfg DepositConfig, bookingID int64) float64 {
	if pct, ok := cfg.Overrides[bookingID]; ok && pct > 0 {
		return pct
	}
	return cfg.Percent
}

// deadlines come sorted ascending from giav.CalcBalance
func pickDeadline(deadlines []time.Time, policy string) time.Time {
	if len(deadlines) == 0 {
		return time.Time{}
	}
	if policy == DeadlinePolicyEarliest {
		return deadlines[0]
	}
	return deadlines[len(deadlines)-1]
}

// ValidateAmount checks a payment amount against the pending balance. A
// partial payment, one not within Epsilon of the pending balance, must be
// at least minPartial.
func ValidateAmount(amount, pending, minPartial int64) error {
	if amount < 1 {
		return ErrAmountTooLow
	}
	if amount > pending+Epsilon {
		return ErrAmountTooHigh
	}
	partial := pending-amount > Epsilon
	if partial && amount < minPartial {
		return ErrBelowMinimumPartial
	}
	return nil
}
