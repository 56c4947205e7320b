package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"weatherbet/events"
	"weatherbet/models"
)

// ResolutionOptions configures a ResolutionService
type ResolutionOptions struct {
	StartingBalance int64
	Now             func() time.Time
	Metrics         MetricsRecorder
}

type resolutionService struct {
	sweepMu         sync.Mutex
	uowFactory      UnitOfWorkFactory
	provider        ObservationProvider
	retries         *RetryQueue
	startingBalance int64
	now             func() time.Time
	metrics         MetricsRecorder
}

// NewResolutionService creates the settlement engine
func NewResolutionService(uowFactory UnitOfWorkFactory, provider ObservationProvider, retries *RetryQueue, opts ResolutionOptions) ResolutionService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetrics{}
	}
	return &resolutionService{
		uowFactory:      uowFactory,
		provider:        provider,
		retries:         retries,
		startingBalance: opts.StartingBalance,
		now:             opts.Now,
		metrics:         opts.Metrics,
	}
}

// observation is the fetch result for one candidate bet
type observation struct {
	bet      *models.Bet
	reading  models.Reading
	observed float64
	err      error
}

// SweepDueBets settles every due or queued bet and returns the bets it changed.
// Observations are fetched outside any unit of work so placements are never
// blocked by the provider. Sweeps run one at a time.
func (s *resolutionService) SweepDueBets(ctx context.Context) ([]*models.Bet, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	started := time.Now()
	defer func() {
		s.metrics.SweepCompleted(time.Since(started))
	}()

	candidates, err := s.candidates(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load bets for sweep")
		return nil, err
	}
	if len(candidates) == 0 {
		return []*models.Bet{}, nil
	}

	readings := newSweepReadings(s.provider)
	results := make([]observation, 0, len(candidates))
	for _, bet := range candidates {
		prediction, err := bet.Prediction()
		if err != nil {
			// Counted against the retry bound so the bet eventually moves to error
			log.WithField("betID", bet.ID).WithError(err).Error("Bet has an unreadable prediction")
			results = append(results, observation{bet: bet, err: fmt.Errorf("failed to read prediction: %w", err)})
			continue
		}
		reading := prediction.Reading()
		observed, err := readings.value(ctx, reading)
		if err != nil {
			s.metrics.ObservationFailed(reading)
			log.WithFields(log.Fields{
				"betID":    bet.ID,
				"category": bet.Category,
				"reading":  reading,
			}).WithError(err).Warn("Observation fetch failed")
		}
		results = append(results, observation{bet: bet, reading: reading, observed: observed, err: err})
	}

	changed, err := s.apply(ctx, results)
	if err != nil {
		log.WithError(err).Error("Failed to persist sweep results")
		return nil, err
	}

	log.WithFields(log.Fields{
		"candidates": len(candidates),
		"changed":    len(changed),
	}).Info("Sweep completed")

	return changed, nil
}

// candidates snapshots due bets plus every still-pending bet in the retry worklist
func (s *resolutionService) candidates(ctx context.Context) ([]*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	due, err := uow.BetRepository().Due(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to get due bets: %w", err)
	}

	seen := make(map[string]bool, len(due))
	for _, bet := range due {
		seen[bet.ID] = true
	}

	queued, err := uow.RetryRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list retry records: %w", err)
	}
	for _, record := range queued {
		if seen[record.BetID] {
			continue
		}
		bet, err := uow.BetRepository().GetByID(ctx, record.BetID)
		if err != nil {
			return nil, fmt.Errorf("failed to get bet %s: %w", record.BetID, err)
		}
		if bet == nil || bet.Verified {
			continue
		}
		seen[bet.ID] = true
		due = append(due, bet)
	}
	return due, nil
}

// apply writes every outcome of the sweep in one unit of work
func (s *resolutionService) apply(ctx context.Context, results []observation) ([]*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	changed := make([]*models.Bet, 0, len(results))
	settled := make([]models.Status, 0, len(results))

	for _, result := range results {
		// Re-read: a concurrent path may have settled the bet since the snapshot
		bet, err := uow.BetRepository().GetByID(ctx, result.bet.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get bet %s: %w", result.bet.ID, err)
		}
		if bet == nil || bet.Verified {
			continue
		}

		var updated *models.Bet
		if result.err == nil {
			updated, err = s.settle(ctx, uow, bet, result.observed)
		} else {
			updated, err = s.recordFailure(ctx, uow, bet, result.err)
		}
		if err != nil {
			return nil, err
		}
		changed = append(changed, updated)
		if updated.Status.IsTerminal() {
			settled = append(settled, updated.Status)
		}
	}

	if len(changed) == 0 {
		return changed, nil
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, status := range settled {
		s.metrics.BetSettled(status)
	}
	return changed, nil
}

func (s *resolutionService) settle(ctx context.Context, uow UnitOfWork, bet *models.Bet, observed float64) (*models.Bet, error) {
	prediction, err := bet.Prediction()
	if err != nil {
		return nil, fmt.Errorf("failed to read prediction of bet %s: %w", bet.ID, err)
	}

	outcome := prediction.Settle(observed, bet.ProRange())
	status := models.StatusLost
	var payout int64
	if outcome.Won {
		status = models.StatusWon
		payout = int64(math.Floor(float64(bet.Stake) * bet.Odds))
	}

	won := outcome.Won
	now := s.now()
	updated, err := uow.BetRepository().Resolve(ctx, bet.ID, models.Resolution{
		Status:      status,
		Result:      &observed,
		Won:         &won,
		Explanation: ExplainOutcome(outcome),
		Payout:      payout,
		ResolvedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bet: %w", err)
	}

	if err := s.credit(ctx, uow, bet.Owner, payout, now); err != nil {
		return nil, err
	}
	if err := s.retries.Clear(ctx, uow.RetryRepository(), bet.ID); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(settledEvent(updated))

	log.WithFields(log.Fields{
		"betID":    updated.ID,
		"owner":    updated.Owner,
		"category": updated.Category,
		"status":   updated.Status,
		"observed": observed,
		"payout":   payout,
	}).Info("Bet settled")

	return updated, nil
}

func (s *resolutionService) recordFailure(ctx context.Context, uow UnitOfWork, bet *models.Bet, cause error) (*models.Bet, error) {
	record, exhausted, err := s.retries.RecordFailure(ctx, uow.RetryRepository(), bet.ID, cause)
	if err != nil {
		return nil, err
	}

	if !exhausted {
		updated, err := uow.BetRepository().SetPendingNote(ctx, bet.ID, PendingRetryExplanation(record.AttemptCount))
		if err != nil {
			return nil, fmt.Errorf("failed to annotate bet: %w", err)
		}
		uow.EventBus().Publish(events.BetRetryScheduledEvent{
			BetID:        bet.ID,
			Owner:        bet.Owner,
			Category:     bet.Category,
			AttemptCount: record.AttemptCount,
			LastError:    record.LastError,
		})
		return updated, nil
	}

	// The stake is refunded since the bet can never settle
	won := false
	now := s.now()
	updated, err := uow.BetRepository().Resolve(ctx, bet.ID, models.Resolution{
		Status:      models.StatusError,
		Won:         &won,
		Explanation: ExhaustedExplanation,
		Payout:      bet.Stake,
		ResolvedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bet: %w", err)
	}
	if err := s.credit(ctx, uow, bet.Owner, bet.Stake, now); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(settledEvent(updated))

	log.WithFields(log.Fields{
		"betID":    bet.ID,
		"attempts": record.AttemptCount,
	}).WithError(errors.Join(ErrResolutionExhausted, cause)).Warn("Bet moved to error after exhausting retries")

	return updated, nil
}

func (s *resolutionService) credit(ctx context.Context, uow UnitOfWork, owner string, amount int64, now time.Time) error {
	if amount <= 0 {
		return nil
	}
	wallet, err := uow.WalletRepository().GetOrCreate(ctx, owner, s.startingBalance, now)
	if err != nil {
		return fmt.Errorf("failed to get wallet: %w", err)
	}
	wallet.Credit(amount, now)
	if err := uow.WalletRepository().Save(ctx, wallet); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}

func settledEvent(bet *models.Bet) events.BetSettledEvent {
	return events.BetSettledEvent{
		BetID:          bet.ID,
		Owner:          bet.Owner,
		Category:       bet.Category,
		Status:         bet.Status,
		PredictedValue: bet.PredictedValue,
		Result:         bet.Result,
		Won:            bet.Won != nil && *bet.Won,
		Stake:          bet.Stake,
		Payout:         bet.Payout,
		Explanation:    bet.Explanation,
	}
}
