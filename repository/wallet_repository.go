package repository

import (
	"context"
	"fmt"
	"time"

	"weatherbet/models"
)

// walletRepository stores one wallet document per owner
type walletRepository struct {
	docs *documents
}

func newWalletRepository(docs *documents) *walletRepository {
	return &walletRepository{docs: docs}
}

// GetOrCreate opens a wallet on first use. Opening marks the document dirty so
// the starting balance is persisted with the rest of the unit of work.
func (r *walletRepository) GetOrCreate(ctx context.Context, owner string, startingBalance int64, now time.Time) (*models.Wallet, error) {
	key := walletKey(owner)
	doc, err := loadDocument(ctx, r.docs, key, func() *models.Wallet {
		return &models.Wallet{}
	})
	if err != nil {
		return nil, err
	}

	if doc.Owner == "" {
		doc.Owner = owner
		doc.Balance = startingBalance
		doc.UpdatedAt = now
		r.docs.markDirty(key)
	}

	c := *doc
	return &c, nil
}

// Save replaces the owner's wallet
func (r *walletRepository) Save(ctx context.Context, wallet *models.Wallet) error {
	if wallet == nil || wallet.Owner == "" {
		return fmt.Errorf("wallet requires an owner")
	}

	key := walletKey(wallet.Owner)
	doc, err := loadDocument(ctx, r.docs, key, func() *models.Wallet {
		return &models.Wallet{}
	})
	if err != nil {
		return err
	}
	*doc = *wallet
	r.docs.markDirty(key)
	return nil
}
