package repository

import (
	"context"
	"fmt"

	"weatherbet/models"
)

// retryRepository implements service.RetryRepository on the ledger worklist
type retryRepository struct {
	docs *documents
}

func newRetryRepository(docs *documents) *retryRepository {
	return &retryRepository{docs: docs}
}

// Get returns nil when the bet has no outstanding record
func (r *retryRepository) Get(ctx context.Context, betID string) (*models.RetryRecord, error) {
	ledger, err := loadLedger(ctx, r.docs)
	if err != nil {
		return nil, err
	}
	for _, rec := range ledger.Worklist {
		if rec.BetID == betID {
			c := *rec
			return &c, nil
		}
	}
	return nil, nil
}

// Save replaces the record in place or appends it to the worklist
func (r *retryRepository) Save(ctx context.Context, record *models.RetryRecord) error {
	if record == nil || record.BetID == "" {
		return fmt.Errorf("retry record requires a bet id")
	}

	ledger, err := loadLedger(ctx, r.docs)
	if err != nil {
		return err
	}

	c := *record
	for i, rec := range ledger.Worklist {
		if rec.BetID == record.BetID {
			ledger.Worklist[i] = &c
			r.docs.markDirty(LedgerKey)
			return nil
		}
	}
	ledger.Worklist = append(ledger.Worklist, &c)
	r.docs.markDirty(LedgerKey)
	return nil
}

// Delete is a no-op for unknown ids
func (r *retryRepository) Delete(ctx context.Context, betID string) error {
	ledger, err := loadLedger(ctx, r.docs)
	if err != nil {
		return err
	}

	for i, rec := range ledger.Worklist {
		if rec.BetID == betID {
			ledger.Worklist = append(ledger.Worklist[:i], ledger.Worklist[i+1:]...)
			r.docs.markDirty(LedgerKey)
			return nil
		}
	}
	return nil
}

// List returns copies of every record
func (r *retryRepository) List(ctx context.Context) ([]*models.RetryRecord, error) {
	ledger, err := loadLedger(ctx, r.docs)
	if err != nil {
		return nil, err
	}

	records := make([]*models.RetryRecord, 0, len(ledger.Worklist))
	for _, rec := range ledger.Worklist {
		c := *rec
		records = append(records, &c)
	}
	return records, nil
}
