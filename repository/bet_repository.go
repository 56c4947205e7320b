package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"weatherbet/models"
	"weatherbet/odds"
)

var (
	// ErrBetNotFound is returned when a mutation targets an unknown id
	ErrBetNotFound = errors.New("bet not found")
	// ErrAlreadyResolved is returned when a mutation targets a verified bet
	ErrAlreadyResolved = errors.New("bet already resolved")
)

// betRepository implements service.BetRepository on the ledger document
type betRepository struct {
	docs  *documents
	newID func() string
}

func newBetRepository(docs *documents) *betRepository {
	return &betRepository{docs: docs, newID: uuid.NewString}
}

// Append creates a pending bet
func (r *betRepository) Append(ctx context.Context, input models.PlaceBetInput, multiplier float64, placedAt time.Time) (*models.Bet, error) {
	prediction, err := models.NewPrediction(input.Category, input.PredictedValue)
	if err != nil {
		return nil, fmt.Errorf("invalid prediction: %w", err)
	}

	ledger, err := loadLedger(ctx, r.docs)
	if err != nil {
		return nil, err
	}

	mode := input.Mode
	if mode == "" {
		mode = models.ModeSimple
	}

	bet := &models.Bet{
		ID:                   r.newID(),
		Owner:                input.Owner,
		Category:             input.Category,
		Mode:                 mode,
		PredictedValue:       prediction.Value(),
		Stake:                input.Stake,
		Odds:                 multiplier,
		PlacedAt:             placedAt,
		VerificationDeadline: placedAt.Add(input.Category.VerificationWindow()),
		Status:               models.StatusPending,
	}

	switch p := prediction.(type) {
	case models.RainAmount:
		bet.PredictedRainMM = &p.MM
	case models.TempMin:
		bet.PredictedTempC = &p.Celsius
	case models.TempMax:
		bet.PredictedTempC = &p.Celsius
	case models.Temperature:
		bet.PredictedTempC = &p.Celsius
	case models.WindMax:
		bet.PredictedWindKMH = &p.KMH
	}

	if mode == models.ModePro {
		if rng := odds.ProRange(input.Category, bet.PredictedValue, multiplier); rng != nil {
			bet.RangeMin = &rng.Min
			bet.RangeMax = &rng.Max
		}
	}

	if _, exists := ledger.Bets[bet.ID]; exists {
		return nil, fmt.Errorf("duplicate bet id %s", bet.ID)
	}
	ledger.Bets[bet.ID] = bet
	ledger.Order = append(ledger.Order, bet.ID)
	r.docs.markDirty(LedgerKey)

	return bet.Clone(), nil
}

// GetByID returns nil when the bet does not exist
func (r *betRepository) GetByID(ctx context.Context, id string) (*models.Bet, error) {
	ledger, err := loadLedger(ctx, r.docs)
	if err != nil {
		return nil, err
	}
	bet, ok := ledger.Bets[id]
	if !ok {
		return nil, nil
	}
	return bet.Clone(), nil
}

// Query walks the ledger newest first
func (r *betRepository) Query(ctx context.Context, filter models.BetFilter) ([]*models.Bet, error) {
	ledger, err := loadLedger(ctx, r.docs)
	if err != nil {
		return nil, err
	}

	result := make([]*models.Bet, 0)
	for i := len(ledger.Order) - 1; i >= 0; i-- {
		bet, ok := ledger.Bets[ledger.Order[i]]
		if !ok || !filter.Matches(bet) {
			continue
		}
		result = append(result, bet.Clone())
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

// Due returns bets ordered by deadline, oldest first
func (r *betRepository) Due(ctx context.Context, now time.Time) ([]*models.Bet, error) {
	ledger, err := loadLedger(ctx, r.docs)
	if err != nil {
		return nil, err
	}

	due := make([]*models.Bet, 0)
	for _, id := range ledger.Order {
		bet, ok := ledger.Bets[id]
		if ok && bet.IsDue(now) {
			due = append(due, bet.Clone())
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].VerificationDeadline.Before(due[j].VerificationDeadline)
	})
	return due, nil
}

// Resolve applies a terminal resolution in one update
func (r *betRepository) Resolve(ctx context.Context, id string, resolution models.Resolution) (*models.Bet, error) {
	ledger, err := loadLedger(ctx, r.docs)
	if err != nil {
		return nil, err
	}

	bet, ok := ledger.Bets[id]
	if !ok {
		return nil, fmt.Errorf("failed to resolve bet %s: %w", id, ErrBetNotFound)
	}
	if bet.Verified {
		return nil, fmt.Errorf("failed to resolve bet %s: %w", id, ErrAlreadyResolved)
	}

	// Apply on a copy so a rejected resolution leaves the ledger untouched
	updated := bet.Clone()
	if err := updated.Apply(resolution); err != nil {
		return nil, fmt.Errorf("failed to resolve bet %s: %w", id, err)
	}
	ledger.Bets[id] = updated
	r.docs.markDirty(LedgerKey)

	return updated.Clone(), nil
}

// SetPendingNote only touches the explanation of a pending bet
func (r *betRepository) SetPendingNote(ctx context.Context, id string, explanation string) (*models.Bet, error) {
	ledger, err := loadLedger(ctx, r.docs)
	if err != nil {
		return nil, err
	}

	bet, ok := ledger.Bets[id]
	if !ok {
		return nil, fmt.Errorf("failed to annotate bet %s: %w", id, ErrBetNotFound)
	}
	if bet.Verified || bet.Status.IsTerminal() {
		return nil, fmt.Errorf("failed to annotate bet %s: %w", id, ErrAlreadyResolved)
	}

	bet.Explanation = explanation
	r.docs.markDirty(LedgerKey)
	return bet.Clone(), nil
}

// Count returns the ledger length
func (r *betRepository) Count(ctx context.Context) (int, error) {
	ledger, err := loadLedger(ctx, r.docs)
	if err != nil {
		return 0, err
	}
	return len(ledger.Bets), nil
}
