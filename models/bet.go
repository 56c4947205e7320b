package models

import (
	"fmt"
	"time"
)

// Bet represents a wager on a future weather outcome
type Bet struct {
	ID       string   `json:"id"`
	Owner    string   `json:"owner"`
	Category Category `json:"category"`
	Mode     Mode     `json:"mode"`

	// PredictedValue mirrors whichever typed field applies to the category
	PredictedValue   *float64 `json:"predicted_value"`
	PredictedRainMM  *float64 `json:"predicted_rain_mm,omitempty"`
	PredictedTempC   *float64 `json:"predicted_temp_c,omitempty"`
	PredictedWindKMH *float64 `json:"predicted_wind_kmh,omitempty"`

	RangeMin *float64 `json:"range_min,omitempty"`
	RangeMax *float64 `json:"range_max,omitempty"`

	Stake int64   `json:"stake"`
	Odds  float64 `json:"odds"`

	PlacedAt             time.Time `json:"placed_at"`
	VerificationDeadline time.Time `json:"verification_deadline"`

	Status      Status     `json:"status"`
	Result      *float64   `json:"result"`
	Won         *bool      `json:"won"`
	Explanation string     `json:"explanation"`
	Verified    bool       `json:"verified"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	Payout      int64      `json:"payout"`
}

// Resolution is the complete set of fields written when a bet settles
type Resolution struct {
	Status      Status
	Result      *float64
	Won         *bool
	Explanation string
	Payout      int64
	ResolvedAt  time.Time
}

// Prediction reconstructs the typed prediction for the bet
func (b *Bet) Prediction() (Prediction, error) {
	return NewPrediction(b.Category, b.PredictedValue)
}

// ProRange returns the Pro mode range when both bounds are present
func (b *Bet) ProRange() *Range {
	if b.Mode != ModePro || b.RangeMin == nil || b.RangeMax == nil {
		return nil
	}
	return &Range{Min: *b.RangeMin, Max: *b.RangeMax}
}

// IsDue reports whether the bet is unresolved and past its verification deadline
func (b *Bet) IsDue(now time.Time) bool {
	return b.Status == StatusPending && !b.Verified && !b.VerificationDeadline.After(now)
}

// PotentialPayout returns the coins credited if the bet wins
func (b *Bet) PotentialPayout() int64 {
	return int64(float64(b.Stake) * b.Odds)
}

// GetNetProfit returns the net coin result of a settled bet
func (b *Bet) GetNetProfit() int64 {
	switch b.Status {
	case StatusWon:
		return b.Payout - b.Stake
	case StatusLost:
		return -b.Stake
	}
	return 0
}

// Apply writes a resolution onto the bet as one update
func (b *Bet) Apply(r Resolution) error {
	if b.Verified {
		return fmt.Errorf("bet %s is already verified", b.ID)
	}
	if !r.Status.IsTerminal() {
		return fmt.Errorf("resolution status %q is not terminal", r.Status)
	}
	if r.Explanation == "" {
		return fmt.Errorf("resolution for bet %s has no explanation", b.ID)
	}
	resolvedAt := r.ResolvedAt
	b.Status = r.Status
	b.Result = r.Result
	b.Won = r.Won
	b.Explanation = r.Explanation
	b.Payout = r.Payout
	b.ResolvedAt = &resolvedAt
	b.Verified = true
	return nil
}

// Clone returns a deep copy so callers cannot mutate ledger state by accident
func (b *Bet) Clone() *Bet {
	c := *b
	c.PredictedValue = cloneFloat(b.PredictedValue)
	c.PredictedRainMM = cloneFloat(b.PredictedRainMM)
	c.PredictedTempC = cloneFloat(b.PredictedTempC)
	c.PredictedWindKMH = cloneFloat(b.PredictedWindKMH)
	c.RangeMin = cloneFloat(b.RangeMin)
	c.RangeMax = cloneFloat(b.RangeMax)
	c.Result = cloneFloat(b.Result)
	if b.Won != nil {
		won := *b.Won
		c.Won = &won
	}
	if b.ResolvedAt != nil {
		t := *b.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// PlaceBetInput carries a placement request
type PlaceBetInput struct {
	Owner          string
	Category       Category
	PredictedValue *float64
	Stake          int64
	Mode           Mode
}

// BetFilter selects ledger records. Zero-valued fields match everything.
type BetFilter struct {
	Owner    string
	Status   Status
	Category Category
	Limit    int
}

// Matches reports whether the bet satisfies the filter
func (f BetFilter) Matches(b *Bet) bool {
	if f.Owner != "" && b.Owner != f.Owner {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Category != "" && b.Category != f.Category {
		return false
	}
	return true
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
