package repository

import (
	"context"

	"weatherbet/models"
)

// ledgerDocument is the single persisted arena of bets plus the retry worklist
// that references it by id. Both live in one document so they cannot drift.
type ledgerDocument struct {
	Bets     map[string]*models.Bet `json:"bets"`
	Order    []string               `json:"order"`
	Worklist []*models.RetryRecord  `json:"worklist"`
}

func newLedgerDocument() *ledgerDocument {
	return &ledgerDocument{Bets: make(map[string]*models.Bet)}
}

func loadLedger(ctx context.Context, d *documents) (*ledgerDocument, error) {
	doc, err := loadDocument(ctx, d, LedgerKey, newLedgerDocument)
	if err != nil {
		return nil, err
	}
	if doc.Bets == nil {
		doc.Bets = make(map[string]*models.Bet)
	}
	return doc, nil
}
