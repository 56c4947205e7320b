package service

import (
	"time"

	"weatherbet/models"
)

const (
	MinStake int64 = 10
	MaxStake int64 = 1000
)

// StakeGate validates placement requests before any state changes
type StakeGate struct {
	limiter      *RateLimiter
	releaseDelay time.Duration
}

// NewStakeGate creates a gate around an injected limiter
func NewStakeGate(limiter *RateLimiter, releaseDelay time.Duration) *StakeGate {
	return &StakeGate{limiter: limiter, releaseDelay: releaseDelay}
}

// CanPlace runs the checks in order and stops at the first failure. On success
// the placement lock is held and the caller must call Complete or Abort.
func (g *StakeGate) CanPlace(category models.Category, stake, availableFunds int64, counters *models.RateLimitState) error {
	if !g.limiter.TryAcquire() {
		return newValidationError(ReasonLockHeld, "another placement is in progress, try again in a moment")
	}

	if err := g.checkLocked(category, stake, availableFunds, counters); err != nil {
		g.limiter.Release()
		return err
	}
	return nil
}

func (g *StakeGate) checkLocked(category models.Category, stake, availableFunds int64, counters *models.RateLimitState) error {
	if stake < MinStake {
		return newValidationError(ReasonStakeTooLow, "stake must be at least %d coins", MinStake)
	}
	if stake > MaxStake {
		return newValidationError(ReasonStakeTooHigh, "stake must be at most %d coins", MaxStake)
	}
	if stake > availableFunds {
		return newValidationError(ReasonInsufficientFunds, "stake of %d exceeds available balance of %d", stake, availableFunds)
	}
	if g.limiter.Remaining(counters, category) <= 0 {
		return newValidationError(ReasonQuotaExhausted, "no %s bets left in the current window (limit %d)",
			category.Group(), g.limiter.Cap(category.Group()))
	}
	return nil
}

// Complete releases the lock after the configured delay
func (g *StakeGate) Complete() {
	g.limiter.ReleaseAfter(g.releaseDelay)
}

// Abort releases the lock immediately
func (g *StakeGate) Abort() {
	g.limiter.Release()
}

// Limiter returns the injected rate limiter
func (g *StakeGate) Limiter() *RateLimiter {
	return g.limiter
}
