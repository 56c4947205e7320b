package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"weatherbet/events"
	"weatherbet/models"
)

// BettingOptions configures a BettingService
type BettingOptions struct {
	StartingBalance int64
	Now             func() time.Time
	Metrics         MetricsRecorder
}

type bettingService struct {
	uowFactory      UnitOfWorkFactory
	gate            *StakeGate
	odds            OddsCalculator
	startingBalance int64
	now             func() time.Time
	metrics         MetricsRecorder
}

// NewBettingService creates the placement service
func NewBettingService(uowFactory UnitOfWorkFactory, gate *StakeGate, odds OddsCalculator, opts BettingOptions) BettingService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetrics{}
	}
	return &bettingService{
		uowFactory:      uowFactory,
		gate:            gate,
		odds:            odds,
		startingBalance: opts.StartingBalance,
		now:             opts.Now,
		metrics:         opts.Metrics,
	}
}

// PlaceBet validates, prices and persists a bet. Either the bet is appended,
// the stake debited and the counter incremented together, or nothing changes.
func (s *bettingService) PlaceBet(ctx context.Context, input models.PlaceBetInput) (*models.Bet, error) {
	if err := validateInput(&input); err != nil {
		s.reject(input, err)
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wallet, err := uow.WalletRepository().GetOrCreate(ctx, input.Owner, s.startingBalance, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	counters, err := uow.RateLimitRepository().Get(ctx, input.Owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limits: %w", err)
	}

	if err := s.gate.CanPlace(input.Category, input.Stake, wallet.Balance, counters); err != nil {
		s.reject(input, err)
		return nil, err
	}

	placed := false
	defer func() {
		if !placed {
			s.gate.Abort()
		}
	}()

	multiplier, err := s.odds.OddsFor(input.Category, input.PredictedValue)
	if err != nil {
		return nil, fmt.Errorf("failed to compute odds: %w", err)
	}

	now := s.now()
	bet, err := uow.BetRepository().Append(ctx, input, multiplier, now)
	if err != nil {
		return nil, fmt.Errorf("failed to append bet: %w", err)
	}

	if err := wallet.Debit(input.Stake, now); err != nil {
		return nil, fmt.Errorf("failed to debit stake: %w", err)
	}
	if err := uow.WalletRepository().Save(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}

	s.gate.Limiter().Record(counters, input.Category)
	if err := uow.RateLimitRepository().Save(ctx, counters); err != nil {
		return nil, fmt.Errorf("failed to save rate limits: %w", err)
	}

	uow.EventBus().Publish(events.BetPlacedEvent{
		BetID:                bet.ID,
		Owner:                bet.Owner,
		Category:             bet.Category,
		Mode:                 bet.Mode,
		PredictedValue:       bet.PredictedValue,
		Stake:                bet.Stake,
		Odds:                 bet.Odds,
		VerificationDeadline: bet.VerificationDeadline,
	})

	if err := uow.Commit(); err != nil {
		log.WithFields(log.Fields{
			"owner":    input.Owner,
			"category": input.Category,
		}).WithError(err).Error("Failed to persist bet placement")
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	placed = true
	s.gate.Complete()
	s.metrics.BetPlaced(bet.Category)

	log.WithFields(log.Fields{
		"betID":    bet.ID,
		"owner":    bet.Owner,
		"category": bet.Category,
		"stake":    bet.Stake,
		"odds":     bet.Odds,
		"deadline": bet.VerificationDeadline,
	}).Info("Bet placed")

	return bet, nil
}

func validateInput(input *models.PlaceBetInput) error {
	if input.Owner == "" {
		return newValidationError(ReasonInvalidPrediction, "owner is required")
	}
	if !input.Category.Valid() {
		return newValidationError(ReasonInvalidPrediction, "unknown category %q", input.Category)
	}
	if input.Mode == "" {
		input.Mode = models.ModeSimple
	}
	if !input.Mode.Valid() {
		return newValidationError(ReasonInvalidPrediction, "unknown mode %q", input.Mode)
	}
	if !input.Category.RequiresValue() {
		input.PredictedValue = nil
	}
	if _, err := models.NewPrediction(input.Category, input.PredictedValue); err != nil {
		return newValidationError(ReasonInvalidPrediction, "%v", err)
	}
	return nil
}

func (s *bettingService) reject(input models.PlaceBetInput, err error) {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return
	}
	s.metrics.BetRejected(verr.Reason)
	log.WithFields(log.Fields{
		"owner":    input.Owner,
		"category": input.Category,
		"stake":    input.Stake,
		"reason":   verr.Reason,
	}).Debug("Bet rejected")
}

// RemainingQuota returns the placements left for the category's group
func (s *bettingService) RemainingQuota(ctx context.Context, owner string, category models.Category) (int, error) {
	if !category.Valid() {
		return 0, fmt.Errorf("unknown category %q", category)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	counters, err := uow.RateLimitRepository().Get(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to get rate limits: %w", err)
	}
	return s.gate.Limiter().Remaining(counters, category), nil
}

// IsBettingAllowed reports whether the quota has room and the lock is free
func (s *bettingService) IsBettingAllowed(ctx context.Context, owner string, category models.Category) (bool, error) {
	remaining, err := s.RemainingQuota(ctx, owner, category)
	if err != nil {
		return false, err
	}
	return remaining > 0 && !s.gate.Limiter().IsLocked(), nil
}

// GetBet returns nil when the bet does not exist
func (s *bettingService) GetBet(ctx context.Context, id string) (*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bet, err := uow.BetRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	return bet, nil
}

// ListBets queries the ledger
func (s *bettingService) ListBets(ctx context.Context, filter models.BetFilter) ([]*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}
	return bets, nil
}

// GetStats aggregates an owner's bet history
func (s *bettingService) GetStats(ctx context.Context, owner string) (*models.BetStats, error) {
	bets, err := s.ListBets(ctx, models.BetFilter{Owner: owner})
	if err != nil {
		return nil, err
	}

	stats := &models.BetStats{}
	for _, bet := range bets {
		stats.Add(bet)
	}
	return stats, nil
}

// GetBalance returns the owner's wallet. A missing wallet is reported with the
// starting balance but is not persisted.
func (s *bettingService) GetBalance(ctx context.Context, owner string) (*models.Wallet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wallet, err := uow.WalletRepository().GetOrCreate(ctx, owner, s.startingBalance, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}
