package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// ExecBatch sends every queued statement in one round trip inside a single
// transaction. Either all statements apply or none do.
func (db *DB) ExecBatch(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("statement %d: %w", i, err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}

	log.WithField("statements", batch.Len()).Debug("Executed batch")
	return nil
}
