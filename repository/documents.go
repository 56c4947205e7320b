package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"weatherbet/store"
)

// LedgerKey holds the bet arena and the retry worklist
const LedgerKey = "bets"

const (
	rateLimitKeyPrefix = "rate_limits:"
	walletKeyPrefix    = "wallet:"
)

func rateLimitKey(owner string) string { return rateLimitKeyPrefix + owner }
func walletKey(owner string) string    { return walletKeyPrefix + owner }

// documents caches decoded store documents for the lifetime of a unit of work
// and tracks which ones need to be written back
type documents struct {
	store  store.Store
	values map[string]any
	dirty  map[string]bool
}

func newDocuments(s store.Store) *documents {
	return &documents{
		store:  s,
		values: make(map[string]any),
		dirty:  make(map[string]bool),
	}
}

// loadDocument decodes key into a fresh value from init, at most once per unit of work
func loadDocument[T any](ctx context.Context, d *documents, key string, init func() *T) (*T, error) {
	if v, ok := d.values[key]; ok {
		return v.(*T), nil
	}

	raw, found, err := d.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", key, err)
	}

	doc := init()
	if found {
		if err := json.Unmarshal([]byte(raw), doc); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", key, err)
		}
	}
	d.values[key] = doc
	return doc, nil
}

func (d *documents) markDirty(key string) {
	d.dirty[key] = true
}

func (d *documents) encodeDirty() (map[string]string, error) {
	out := make(map[string]string, len(d.dirty))
	for key := range d.dirty {
		data, err := json.Marshal(d.values[key])
		if err != nil {
			return nil, fmt.Errorf("failed to encode document %s: %w", key, err)
		}
		out[key] = string(data)
	}
	return out, nil
}

func (d *documents) reset() {
	d.values = make(map[string]any)
	d.dirty = make(map[string]bool)
}
