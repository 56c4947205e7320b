package repository

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"weatherbet/events"
	"weatherbet/service"
	"weatherbet/store"
)

// NewUnitOfWorkFactory creates a factory whose units of work run one at a time.
// Weather fetches happen outside a unit of work, so the lock is only held for
// document reads and writes.
func NewUnitOfWorkFactory(s store.Store, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		store:    s,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	mu       sync.Mutex
	store    store.Store
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		factory:          f,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	factory          *unitOfWorkFactory
	ctx              context.Context
	active           bool
	docs             *documents
	transactionalBus *events.TransactionalBus
	betRepo          service.BetRepository
	retryRepo        service.RetryRepository
	rateLimitRepo    service.RateLimitRepository
	walletRepo       service.WalletRepository
}

// Begin acquires the factory lock and prepares the repositories
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return fmt.Errorf("unit of work already started")
	}

	u.factory.mu.Lock()
	u.active = true
	u.ctx = ctx
	u.docs = newDocuments(u.factory.store)

	u.betRepo = newBetRepository(u.docs)
	u.retryRepo = newRetryRepository(u.docs)
	u.rateLimitRepo = newRateLimitRepository(u.docs)
	u.walletRepo = newWalletRepository(u.docs)

	return nil
}

// Commit writes every dirty document in one SetMany call, then flushes events
func (u *unitOfWork) Commit() error {
	if !u.active {
		return fmt.Errorf("no unit of work to commit")
	}
	defer u.finish()

	entries, err := u.docs.encodeDirty()
	if err != nil {
		u.transactionalBus.Discard()
		return fmt.Errorf("failed to commit unit of work: %w", err)
	}

	if len(entries) > 0 {
		if err := u.factory.store.SetMany(u.ctx, entries); err != nil {
			u.transactionalBus.Discard()
			return fmt.Errorf("failed to commit unit of work: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"documents": len(entries),
		"events":    u.transactionalBus.Pending(),
	}).Debug("Committed unit of work")

	u.transactionalBus.Flush(u.ctx)
	return nil
}

// Rollback drops every pending change
func (u *unitOfWork) Rollback() error {
	if !u.active {
		return nil
	}
	u.transactionalBus.Discard()
	u.finish()
	return nil
}

func (u *unitOfWork) finish() {
	u.docs.reset()
	u.active = false
	u.betRepo = nil
	u.retryRepo = nil
	u.rateLimitRepo = nil
	u.walletRepo = nil
	u.factory.mu.Unlock()
}

// BetRepository returns the bet ledger for this unit of work
func (u *unitOfWork) BetRepository() service.BetRepository {
	if u.betRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.betRepo
}

// RetryRepository returns the retry worklist for this unit of work
func (u *unitOfWork) RetryRepository() service.RetryRepository {
	if u.retryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.retryRepo
}

// RateLimitRepository returns the counter repository for this unit of work
func (u *unitOfWork) RateLimitRepository() service.RateLimitRepository {
	if u.rateLimitRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.rateLimitRepo
}

// WalletRepository returns the wallet repository for this unit of work
func (u *unitOfWork) WalletRepository() service.WalletRepository {
	if u.walletRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.walletRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if !u.active {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
