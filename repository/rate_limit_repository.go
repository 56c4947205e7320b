package repository

import (
	"context"
	"fmt"

	"weatherbet/models"
)

// rateLimitRepository stores one counter document per owner
type rateLimitRepository struct {
	docs *documents
}

func newRateLimitRepository(docs *documents) *rateLimitRepository {
	return &rateLimitRepository{docs: docs}
}

// Get returns an empty state for owners without stored counters
func (r *rateLimitRepository) Get(ctx context.Context, owner string) (*models.RateLimitState, error) {
	doc, err := loadDocument(ctx, r.docs, rateLimitKey(owner), func() *models.RateLimitState {
		return models.NewRateLimitState(owner)
	})
	if err != nil {
		return nil, err
	}
	return cloneRateLimitState(doc), nil
}

// Save replaces the owner's counters
func (r *rateLimitRepository) Save(ctx context.Context, state *models.RateLimitState) error {
	if state == nil || state.Owner == "" {
		return fmt.Errorf("rate limit state requires an owner")
	}

	key := rateLimitKey(state.Owner)
	doc, err := loadDocument(ctx, r.docs, key, func() *models.RateLimitState {
		return models.NewRateLimitState(state.Owner)
	})
	if err != nil {
		return err
	}
	*doc = *cloneRateLimitState(state)
	r.docs.markDirty(key)
	return nil
}

func cloneRateLimitState(s *models.RateLimitState) *models.RateLimitState {
	c := models.NewRateLimitState(s.Owner)
	for group, w := range s.Counters {
		c.Counters[group] = w
	}
	return c
}
