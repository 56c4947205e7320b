// Package store holds the durable key-value backends that persist the ledger,
// rate-limit counters and wallets as serialized documents.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable wraps any failure of the backing service
var ErrUnavailable = errors.New("store unavailable")

// Store is a string key-value store. SetMany writes every entry or none.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, entries map[string]string) error
	Close() error
}

func unavailable(action string, err error) error {
	return fmt.Errorf("failed to %s: %w: %v", action, ErrUnavailable, err)
}
