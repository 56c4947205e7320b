package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"weatherbet/events"
	"weatherbet/models"
	"weatherbet/repository"
	"weatherbet/service"
	"weatherbet/store"
)

func requireValidation(t *testing.T, err error, reason service.ValidationReason) {
	t.Helper()
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	assert.Equal(t, reason, verr.Reason)
}

func TestBettingService_PlaceBet(t *testing.T) {
	h := newHarness(t)

	placed := make(chan events.BetPlacedEvent, 1)
	h.bus.Subscribe(events.EventTypeBetPlaced, func(ctx context.Context, e events.Event) {
		placed <- e.(events.BetPlacedEvent)
	})

	bet := h.place(t, models.CategoryRainAmount, ptr(2), 100)

	assert.Equal(t, models.StatusPending, bet.Status)
	assert.Equal(t, 5.0, bet.Odds, "autumn odds for 2 mm")
	assert.Equal(t, autumnMorning.Add(24*time.Hour), bet.VerificationDeadline)
	assert.Equal(t, int64(900), h.balance(t))
	assert.Equal(t, 1, h.ledgerLen(t))

	remaining, err := h.betting.RemainingQuota(h.ctx, "alice", models.CategoryRainYes)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	h.bus.Wait()
	require.Len(t, placed, 1)
	ev := <-placed
	assert.Equal(t, bet.ID, ev.BetID)
	assert.Equal(t, int64(100), ev.Stake)
}

func TestBettingService_OddsCapturedAtPlacement(t *testing.T) {
	h := newHarness(t)
	bet := h.place(t, models.CategoryRainYes, nil, 50)
	assert.Equal(t, 4.0, bet.Odds)

	// Moving into winter does not change a stored bet
	h.clock.Advance(60 * 24 * time.Hour)
	assert.Equal(t, 4.0, h.bet(t, bet.ID).Odds)

	next := h.place(t, models.CategoryRainYes, nil, 50)
	assert.Equal(t, 2.8, next.Odds)
}

func TestBettingService_StakeTooLow(t *testing.T) {
	h := newHarness(t)

	_, err := h.betting.PlaceBet(h.ctx, models.PlaceBetInput{
		Owner:          "alice",
		Category:       models.CategoryRainAmount,
		PredictedValue: ptr(2),
		Stake:          5,
	})

	requireValidation(t, err, service.ReasonStakeTooLow)
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Equal(t, 0, h.ledgerLen(t))
	assert.Equal(t, 0, h.store.Keys(), "nothing is persisted on rejection")
}

func TestBettingService_Validation(t *testing.T) {
	tests := []struct {
		name   string
		input  models.PlaceBetInput
		reason service.ValidationReason
	}{
		{
			name:   "stake too high",
			input:  models.PlaceBetInput{Owner: "alice", Category: models.CategoryRainYes, Stake: 1001},
			reason: service.ReasonStakeTooHigh,
		},
		{
			name:   "insufficient funds",
			input:  models.PlaceBetInput{Owner: "alice", Category: models.CategoryRainYes, Stake: 600},
			reason: service.ReasonInsufficientFunds,
		},
		{
			name:   "missing value",
			input:  models.PlaceBetInput{Owner: "alice", Category: models.CategoryTempMin, Stake: 100},
			reason: service.ReasonInvalidPrediction,
		},
		{
			name:   "unknown category",
			input:  models.PlaceBetInput{Owner: "alice", Category: "snow", Stake: 100},
			reason: service.ReasonInvalidPrediction,
		},
		{
			name:   "negative rain",
			input:  models.PlaceBetInput{Owner: "alice", Category: models.CategoryRainAmount, PredictedValue: ptr(-1), Stake: 100},
			reason: service.ReasonInvalidPrediction,
		},
		{
			name:   "unknown mode",
			input:  models.PlaceBetInput{Owner: "alice", Category: models.CategoryRainYes, Stake: 100, Mode: "expert"},
			reason: service.ReasonInvalidPrediction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, withStartingBalance(500))
			_, err := h.betting.PlaceBet(h.ctx, tt.input)
			requireValidation(t, err, tt.reason)
			assert.Equal(t, 0, h.ledgerLen(t))
			assert.Equal(t, int64(500), h.balance(t))
		})
	}
}

func TestBettingService_FourthRainBetRejected(t *testing.T) {
	h := newHarness(t)

	h.place(t, models.CategoryRainYes, nil, 10)
	h.place(t, models.CategoryRainNo, nil, 10)
	h.place(t, models.CategoryRainAmount, ptr(5), 10)

	allowed, err := h.betting.IsBettingAllowed(h.ctx, "alice", models.CategoryRainYes)
	require.NoError(t, err)
	assert.False(t, allowed)

	_, err = h.betting.PlaceBet(h.ctx, models.PlaceBetInput{
		Owner: "alice", Category: models.CategoryRainAmount, PredictedValue: ptr(1), Stake: 10,
	})
	requireValidation(t, err, service.ReasonQuotaExhausted)
	assert.Equal(t, 3, h.ledgerLen(t))
	assert.Equal(t, int64(970), h.balance(t))

	// Other groups are unaffected
	allowed, err = h.betting.IsBettingAllowed(h.ctx, "alice", models.CategoryTemperature)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Next calendar day
	h.clock.Advance(15 * time.Hour)
	remaining, err := h.betting.RemainingQuota(h.ctx, "alice", models.CategoryRainYes)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestBettingService_QuotaPerOwner(t *testing.T) {
	h := newHarness(t)
	h.place(t, models.CategoryTemperature, ptr(15), 10)
	h.place(t, models.CategoryTempMax, ptr(18), 10)

	_, err := h.betting.PlaceBet(h.ctx, models.PlaceBetInput{
		Owner: "alice", Category: models.CategoryTempMin, PredictedValue: ptr(5), Stake: 10,
	})
	requireValidation(t, err, service.ReasonQuotaExhausted)

	_, err = h.betting.PlaceBet(h.ctx, models.PlaceBetInput{
		Owner: "bob", Category: models.CategoryTempMin, PredictedValue: ptr(5), Stake: 10,
	})
	assert.NoError(t, err)
}

func TestBettingService_PlacementLock(t *testing.T) {
	h := newHarness(t, withReleaseDelay(2*time.Second))

	h.place(t, models.CategoryRainYes, nil, 10)

	_, err := h.betting.PlaceBet(h.ctx, models.PlaceBetInput{Owner: "alice", Category: models.CategoryRainNo, Stake: 10})
	requireValidation(t, err, service.ReasonLockHeld)
	assert.Equal(t, 1, h.ledgerLen(t))

	h.clock.Advance(2 * time.Second)
	h.place(t, models.CategoryRainNo, nil, 10)

	// A rejected placement releases the lock immediately
	h.clock.Advance(2 * time.Second)
	_, err = h.betting.PlaceBet(h.ctx, models.PlaceBetInput{Owner: "alice", Category: models.CategoryRainNo, Stake: 5})
	requireValidation(t, err, service.ReasonStakeTooLow)
	h.place(t, models.CategoryRainNo, nil, 10)
}

func TestBettingService_PersistenceFailure(t *testing.T) {
	h := newHarness(t, withReleaseDelay(2*time.Second))

	h.store.FailWritesWith(errors.New("connection reset"))
	_, err := h.betting.PlaceBet(h.ctx, models.PlaceBetInput{Owner: "alice", Category: models.CategoryRainYes, Stake: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.NotErrorIs(t, err, service.ErrValidation)

	h.store.FailWritesWith(nil)
	assert.Equal(t, 0, h.ledgerLen(t))
	assert.Equal(t, 0, h.store.Keys())

	// The lock was released immediately and no quota was consumed
	h.place(t, models.CategoryRainYes, nil, 10)
	remaining, err := h.betting.RemainingQuota(h.ctx, "alice", models.CategoryRainYes)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestBettingService_Metrics(t *testing.T) {
	clock := &testClock{now: autumnMorning}
	factory := repository.NewUnitOfWorkFactory(store.NewMemoryStore(), nil)
	metrics := new(service.MockMetricsRecorder)
	calculator := new(service.MockOddsCalculator)

	svc := service.NewBettingService(factory,
		service.NewStakeGate(service.NewRateLimiter(clock.Now), 0),
		calculator,
		service.BettingOptions{StartingBalance: 1000, Now: clock.Now, Metrics: metrics})

	calculator.On("OddsFor", models.CategoryWindMax, mock.Anything).Return(6.0, nil)
	metrics.On("BetPlaced", models.CategoryWindMax).Return().Once()
	metrics.On("BetRejected", service.ReasonStakeTooLow).Return().Once()

	ctx := context.Background()
	bet, err := svc.PlaceBet(ctx, models.PlaceBetInput{Owner: "alice", Category: models.CategoryWindMax, PredictedValue: ptr(30), Stake: 100})
	require.NoError(t, err)
	assert.Equal(t, 6.0, bet.Odds)
	require.NotNil(t, bet.PredictedWindKMH)

	_, err = svc.PlaceBet(ctx, models.PlaceBetInput{Owner: "alice", Category: models.CategoryWindMax, PredictedValue: ptr(30), Stake: 1})
	require.Error(t, err)

	metrics.AssertExpectations(t)
	calculator.AssertExpectations(t)
}

func TestBettingService_ProModeRange(t *testing.T) {
	h := newHarness(t)

	bet, err := h.betting.PlaceBet(h.ctx, models.PlaceBetInput{
		Owner:          "alice",
		Category:       models.CategoryTemperature,
		PredictedValue: ptr(20),
		Stake:          100,
		Mode:           models.ModePro,
	})
	require.NoError(t, err)

	assert.Equal(t, 2.2, bet.Odds, "inside the autumn band")
	require.NotNil(t, bet.RangeMin)
	assert.Equal(t, 15.0, *bet.RangeMin)
	assert.Equal(t, 25.0, *bet.RangeMax)
}

func TestBettingService_Stats(t *testing.T) {
	h := newHarness(t)
	h.place(t, models.CategoryRainYes, nil, 100)
	h.place(t, models.CategoryWindMax, ptr(10), 50)

	stats, err := h.betting.GetStats(h.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalBets)
	assert.Equal(t, 2, stats.TotalPending)
	assert.Equal(t, int64(150), stats.TotalWagered)

	stats, err = h.betting.GetStats(h.ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalBets)
}
