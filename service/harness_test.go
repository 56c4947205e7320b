package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"weatherbet/events"
	"weatherbet/models"
	"weatherbet/odds"
	"weatherbet/repository"
	"weatherbet/service"
	"weatherbet/store"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// autumnMorning is a Monday in October
var autumnMorning = time.Date(2024, 10, 14, 9, 0, 0, 0, time.UTC)

type harness struct {
	ctx        context.Context
	clock      *testClock
	store      *store.MemoryStore
	bus        *events.Bus
	factory    service.UnitOfWorkFactory
	limiter    *service.RateLimiter
	provider   *service.MockObservationProvider
	retries    *service.RetryQueue
	betting    service.BettingService
	resolution service.ResolutionService
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	startingBalance int64
	releaseDelay    time.Duration
}

func withStartingBalance(b int64) harnessOption {
	return func(c *harnessConfig) { c.startingBalance = b }
}

func withReleaseDelay(d time.Duration) harnessOption {
	return func(c *harnessConfig) { c.releaseDelay = d }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{startingBalance: 1000}
	for _, opt := range opts {
		opt(&cfg)
	}

	clock := &testClock{now: autumnMorning}
	mem := store.NewMemoryStore()
	bus := events.NewBus()
	factory := repository.NewUnitOfWorkFactory(mem, bus)
	limiter := service.NewRateLimiter(clock.Now)
	provider := new(service.MockObservationProvider)
	retries := service.NewRetryQueue(factory, clock.Now)

	h := &harness{
		ctx:      context.Background(),
		clock:    clock,
		store:    mem,
		bus:      bus,
		factory:  factory,
		limiter:  limiter,
		provider: provider,
		retries:  retries,
		betting: service.NewBettingService(factory, service.NewStakeGate(limiter, cfg.releaseDelay),
			odds.NewEngine(clock.Now), service.BettingOptions{
				StartingBalance: cfg.startingBalance,
				Now:             clock.Now,
			}),
		resolution: service.NewResolutionService(factory, provider, retries, service.ResolutionOptions{
			StartingBalance: cfg.startingBalance,
			Now:             clock.Now,
		}),
	}
	t.Cleanup(bus.Wait)
	return h
}

func (h *harness) place(t *testing.T, category models.Category, value *float64, stake int64) *models.Bet {
	t.Helper()
	bet, err := h.betting.PlaceBet(h.ctx, models.PlaceBetInput{
		Owner:          "alice",
		Category:       category,
		PredictedValue: value,
		Stake:          stake,
	})
	require.NoError(t, err)
	return bet
}

func (h *harness) bet(t *testing.T, id string) *models.Bet {
	t.Helper()
	bet, err := h.betting.GetBet(h.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, bet)
	return bet
}

func (h *harness) ledgerLen(t *testing.T) int {
	t.Helper()
	bets, err := h.betting.ListBets(h.ctx, models.BetFilter{})
	require.NoError(t, err)
	return len(bets)
}

func (h *harness) balance(t *testing.T) int64 {
	t.Helper()
	wallet, err := h.betting.GetBalance(h.ctx, "alice")
	require.NoError(t, err)
	return wallet.Balance
}

func (h *harness) retryRecords(t *testing.T) []*models.RetryRecord {
	t.Helper()
	records, err := h.retries.Pending(h.ctx)
	require.NoError(t, err)
	return records
}

func ptr(v float64) *float64 { return &v }
