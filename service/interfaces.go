package service

import (
	"context"
	"time"

	"weatherbet/events"
	"weatherbet/models"
)

// BetRepository is the Bet Ledger: append on placement, atomic mutate on resolution
type BetRepository interface {
	// Append assigns an id, derives the typed prediction fields, deadline and
	// Pro range, and persists a new pending bet
	Append(ctx context.Context, input models.PlaceBetInput, odds float64, placedAt time.Time) (*models.Bet, error)

	// GetByID returns a copy of the bet or nil if it does not exist
	GetByID(ctx context.Context, id string) (*models.Bet, error)

	// Query returns bets matching the filter, newest first
	Query(ctx context.Context, filter models.BetFilter) ([]*models.Bet, error)

	// Due returns pending, unverified bets whose deadline is at or before now
	Due(ctx context.Context, now time.Time) ([]*models.Bet, error)

	// Resolve writes result, won, status, verified and explanation as one update
	Resolve(ctx context.Context, id string, resolution models.Resolution) (*models.Bet, error)

	// SetPendingNote attaches a retry note to a bet that stays pending
	SetPendingNote(ctx context.Context, id string, explanation string) (*models.Bet, error)

	// Count returns the number of bets in the ledger
	Count(ctx context.Context) (int, error)
}

// RetryRepository is the worklist of bets whose observation fetch failed
type RetryRepository interface {
	// Get returns the record for a bet or nil if none exists
	Get(ctx context.Context, betID string) (*models.RetryRecord, error)

	// Save creates or replaces the record for its bet
	Save(ctx context.Context, record *models.RetryRecord) error

	// Delete removes the record for a bet, if present
	Delete(ctx context.Context, betID string) error

	// List returns every outstanding record in insertion order
	List(ctx context.Context) ([]*models.RetryRecord, error)
}

// RateLimitRepository persists per-owner category counters
type RateLimitRepository interface {
	// Get returns the owner's counters, empty if none were stored yet
	Get(ctx context.Context, owner string) (*models.RateLimitState, error)

	// Save replaces the owner's counters
	Save(ctx context.Context, state *models.RateLimitState) error
}

// WalletRepository persists virtual coin balances
type WalletRepository interface {
	// GetOrCreate returns the owner's wallet, opening one with the starting balance if missing
	GetOrCreate(ctx context.Context, owner string, startingBalance int64, now time.Time) (*models.Wallet, error)

	// Save replaces the owner's wallet
	Save(ctx context.Context, wallet *models.Wallet) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork groups repository reads and writes that commit together
type UnitOfWork interface {
	// Begin starts the unit of work
	Begin(ctx context.Context) error

	// Commit persists every modified document and flushes pending events
	Commit() error

	// Rollback drops pending changes and events. No-op after Commit.
	Rollback() error

	BetRepository() BetRepository
	RetryRepository() RetryRepository
	RateLimitRepository() RateLimitRepository
	WalletRepository() WalletRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// ObservationProvider fetches live weather readings. Any call may fail.
type ObservationProvider interface {
	// FetchCurrentRain returns today's accumulated rain in mm
	FetchCurrentRain(ctx context.Context) (float64, error)

	// FetchCurrentTemperature returns the current temperature and today's extremes
	FetchCurrentTemperature(ctx context.Context) (models.TemperatureReading, error)

	// FetchCurrentWind returns today's maximum wind speed
	FetchCurrentWind(ctx context.Context) (models.WindReading, error)
}

// OddsCalculator computes placement odds for the current season
type OddsCalculator interface {
	OddsFor(category models.Category, value *float64) (float64, error)
}

// MetricsRecorder receives counters from placement and settlement
type MetricsRecorder interface {
	BetPlaced(category models.Category)
	BetRejected(reason ValidationReason)
	BetSettled(status models.Status)
	ObservationFailed(reading models.Reading)
	SweepCompleted(duration time.Duration)
}

// BettingService is the caller-facing placement API
type BettingService interface {
	PlaceBet(ctx context.Context, input models.PlaceBetInput) (*models.Bet, error)
	RemainingQuota(ctx context.Context, owner string, category models.Category) (int, error)
	IsBettingAllowed(ctx context.Context, owner string, category models.Category) (bool, error)
	GetBet(ctx context.Context, id string) (*models.Bet, error)
	ListBets(ctx context.Context, filter models.BetFilter) ([]*models.Bet, error)
	GetStats(ctx context.Context, owner string) (*models.BetStats, error)
	GetBalance(ctx context.Context, owner string) (*models.Wallet, error)
}

// ResolutionService settles due bets against live observations
type ResolutionService interface {
	SweepDueBets(ctx context.Context) ([]*models.Bet, error)
}
