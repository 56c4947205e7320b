package models

import (
	"errors"
	"time"
)

// Wallet holds an owner's virtual coin balance
type Wallet struct {
	Owner     string    `json:"owner"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanAfford checks if the wallet has sufficient balance for an amount
func (w *Wallet) CanAfford(amount int64) bool {
	return w.Balance >= amount
}

// Debit removes coins from the wallet, failing if the balance is insufficient
func (w *Wallet) Debit(amount int64, at time.Time) error {
	if amount <= 0 {
		return errors.New("amount must be positive")
	}
	if !w.CanAfford(amount) {
		return errors.New("insufficient balance")
	}
	w.Balance -= amount
	w.UpdatedAt = at
	return nil
}

// Credit adds coins to the wallet
func (w *Wallet) Credit(amount int64, at time.Time) {
	if amount <= 0 {
		return
	}
	w.Balance += amount
	w.UpdatedAt = at
}
