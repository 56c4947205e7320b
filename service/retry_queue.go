package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"weatherbet/models"
)

// RetryQueue keeps the bookkeeping of bets whose observation fetch failed
type RetryQueue struct {
	uowFactory  UnitOfWorkFactory
	now         func() time.Time
	maxAttempts int
}

// NewRetryQueue creates a queue bounded by models.MaxResolutionAttempts
func NewRetryQueue(uowFactory UnitOfWorkFactory, now func() time.Time) *RetryQueue {
	if now == nil {
		now = time.Now
	}
	return &RetryQueue{
		uowFactory:  uowFactory,
		now:         now,
		maxAttempts: models.MaxResolutionAttempts,
	}
}

// RecordFailure creates or increments the bet's record. When the record
// reaches the bound it is deleted and exhausted is true.
func (q *RetryQueue) RecordFailure(ctx context.Context, repo RetryRepository, betID string, cause error) (*models.RetryRecord, bool, error) {
	record, err := repo.Get(ctx, betID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get retry record: %w", err)
	}
	if record == nil {
		record = &models.RetryRecord{BetID: betID}
	}

	record.AttemptCount++
	record.LastAttemptAt = q.now()
	if cause != nil {
		record.LastError = cause.Error()
	}

	if record.AttemptCount >= q.maxAttempts {
		if err := repo.Delete(ctx, betID); err != nil {
			return nil, false, fmt.Errorf("failed to delete retry record: %w", err)
		}
		return record, true, nil
	}

	if err := repo.Save(ctx, record); err != nil {
		return nil, false, fmt.Errorf("failed to save retry record: %w", err)
	}
	return record, false, nil
}

// Clear drops the bet's record after a successful resolution
func (q *RetryQueue) Clear(ctx context.Context, repo RetryRepository, betID string) error {
	if err := repo.Delete(ctx, betID); err != nil {
		return fmt.Errorf("failed to delete retry record: %w", err)
	}
	return nil
}

// Pending lists the outstanding records
func (q *RetryQueue) Pending(ctx context.Context) ([]*models.RetryRecord, error) {
	uow := q.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	records, err := uow.RetryRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list retry records: %w", err)
	}
	return records, nil
}

// CollectGarbage deletes records whose bet no longer exists or is already
// terminal, and returns how many were removed
func (q *RetryQueue) CollectGarbage(ctx context.Context) (int, error) {
	uow := q.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	records, err := uow.RetryRepository().List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list retry records: %w", err)
	}

	removed := 0
	for _, record := range records {
		bet, err := uow.BetRepository().GetByID(ctx, record.BetID)
		if err != nil {
			return 0, fmt.Errorf("failed to get bet %s: %w", record.BetID, err)
		}
		if bet != nil && !bet.Verified {
			continue
		}
		if err := uow.RetryRepository().Delete(ctx, record.BetID); err != nil {
			return 0, fmt.Errorf("failed to delete retry record: %w", err)
		}
		removed++
	}

	if removed == 0 {
		return 0, nil
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("removed", removed).Info("Collected orphaned retry records")
	return removed, nil
}
