package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherbet/events"
	"weatherbet/models"
	"weatherbet/service"
	"weatherbet/store"
)

var placedAt = time.Date(2024, 10, 14, 9, 0, 0, 0, time.UTC)

func floatPtr(v float64) *float64 { return &v }

// inUnitOfWork runs fn inside a unit of work and commits it
func inUnitOfWork(t *testing.T, factory service.UnitOfWorkFactory, fn func(uow service.UnitOfWork)) {
	t.Helper()
	ctx := context.Background()
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	fn(uow)
	require.NoError(t, uow.Commit())
}

func TestBetRepository_Append(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(store.NewMemoryStore(), events.NewBus())

	t.Run("rain amount", func(t *testing.T) {
		var bet *models.Bet
		inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
			var err error
			bet, err = uow.BetRepository().Append(ctx, models.PlaceBetInput{
				Owner:          "alice",
				Category:       models.CategoryRainAmount,
				PredictedValue: floatPtr(2),
				Stake:          100,
			}, 5.0, placedAt)
			require.NoError(t, err)
		})

		assert.NotEmpty(t, bet.ID)
		assert.Equal(t, models.ModeSimple, bet.Mode)
		assert.Equal(t, models.StatusPending, bet.Status)
		assert.False(t, bet.Verified)
		assert.Equal(t, 2.0, *bet.PredictedValue)
		require.NotNil(t, bet.PredictedRainMM)
		assert.Equal(t, 2.0, *bet.PredictedRainMM)
		assert.Nil(t, bet.PredictedTempC)
		assert.Equal(t, placedAt.Add(24*time.Hour), bet.VerificationDeadline)
		assert.True(t, bet.VerificationDeadline.After(bet.PlacedAt))
		assert.Nil(t, bet.RangeMin)
		assert.Nil(t, bet.Result)
		assert.Nil(t, bet.Won)
	})

	t.Run("pro temperature carries a range", func(t *testing.T) {
		var bet *models.Bet
		inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
			var err error
			bet, err = uow.BetRepository().Append(ctx, models.PlaceBetInput{
				Owner:          "alice",
				Category:       models.CategoryTempMax,
				PredictedValue: floatPtr(20),
				Stake:          50,
				Mode:           models.ModePro,
			}, 10.0, placedAt)
			require.NoError(t, err)
		})

		require.NotNil(t, bet.PredictedTempC)
		assert.Equal(t, placedAt.Add(12*time.Hour), bet.VerificationDeadline)
		require.NotNil(t, bet.RangeMin)
		require.NotNil(t, bet.RangeMax)
		assert.Equal(t, 17.0, *bet.RangeMin)
		assert.Equal(t, 23.0, *bet.RangeMax)
	})

	t.Run("rain yes has no value", func(t *testing.T) {
		inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
			bet, err := uow.BetRepository().Append(ctx, models.PlaceBetInput{
				Owner:    "alice",
				Category: models.CategoryRainYes,
				Stake:    10,
				Mode:     models.ModePro,
			}, 4.0, placedAt)
			require.NoError(t, err)
			assert.Nil(t, bet.PredictedValue)
			assert.Nil(t, bet.RangeMin)
		})
	})

	t.Run("missing value rejected", func(t *testing.T) {
		inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
			_, err := uow.BetRepository().Append(ctx, models.PlaceBetInput{
				Owner:    "alice",
				Category: models.CategoryWindMax,
				Stake:    10,
			}, 2.5, placedAt)
			assert.ErrorIs(t, err, models.ErrMissingPredictedValue)
		})
	})

	inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
		count, err := uow.BetRepository().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})
}

func TestBetRepository_QueryAndDue(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(store.NewMemoryStore(), nil)

	var ids []string
	inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
		repo := uow.BetRepository()
		inputs := []models.PlaceBetInput{
			{Owner: "alice", Category: models.CategoryRainYes, Stake: 10},
			{Owner: "bob", Category: models.CategoryWindMax, PredictedValue: floatPtr(10), Stake: 20},
			{Owner: "alice", Category: models.CategoryTemperature, PredictedValue: floatPtr(15), Stake: 30},
		}
		for i, in := range inputs {
			bet, err := repo.Append(ctx, in, 2.0, placedAt.Add(time.Duration(i)*time.Hour))
			require.NoError(t, err)
			ids = append(ids, bet.ID)
		}
	})

	inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
		repo := uow.BetRepository()

		all, err := repo.Query(ctx, models.BetFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, ids[2], all[0].ID, "newest first")

		alice, err := repo.Query(ctx, models.BetFilter{Owner: "alice"})
		require.NoError(t, err)
		assert.Len(t, alice, 2)

		wind, err := repo.Query(ctx, models.BetFilter{Category: models.CategoryWindMax})
		require.NoError(t, err)
		require.Len(t, wind, 1)
		assert.Equal(t, "bob", wind[0].Owner)

		limited, err := repo.Query(ctx, models.BetFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		// wind placed at +1h is due at +13h, temperature at +2h is due at +14h,
		// rain placed at +0h is due at +24h
		due, err := repo.Due(ctx, placedAt.Add(14*time.Hour))
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, ids[1], due[0].ID)
		assert.Equal(t, ids[2], due[1].ID)

		due, err = repo.Due(ctx, placedAt.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Len(t, due, 3)
	})
}

func TestBetRepository_Resolve(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(store.NewMemoryStore(), nil)

	var id string
	inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
		bet, err := uow.BetRepository().Append(ctx, models.PlaceBetInput{
			Owner: "alice", Category: models.CategoryWindMax, PredictedValue: floatPtr(10), Stake: 100,
		}, 3.0, placedAt)
		require.NoError(t, err)
		id = bet.ID
	})

	t.Run("incomplete resolution leaves bet untouched", func(t *testing.T) {
		inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
			_, err := uow.BetRepository().Resolve(ctx, id, models.Resolution{Status: models.StatusLost})
			assert.Error(t, err)

			bet, err := uow.BetRepository().GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, models.StatusPending, bet.Status)
			assert.Nil(t, bet.Result)
			assert.False(t, bet.Verified)
		})
	})

	t.Run("pending note", func(t *testing.T) {
		inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
			bet, err := uow.BetRepository().SetPendingNote(ctx, id, "retrying")
			require.NoError(t, err)
			assert.Equal(t, "retrying", bet.Explanation)
			assert.Equal(t, models.StatusPending, bet.Status)
			assert.False(t, bet.Verified)
		})
	})

	observed := 20.0
	won := false
	resolution := models.Resolution{
		Status:      models.StatusLost,
		Result:      &observed,
		Won:         &won,
		Explanation: "lost",
		ResolvedAt:  placedAt.Add(13 * time.Hour),
	}

	t.Run("resolve", func(t *testing.T) {
		inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
			bet, err := uow.BetRepository().Resolve(ctx, id, resolution)
			require.NoError(t, err)
			assert.Equal(t, models.StatusLost, bet.Status)
			assert.True(t, bet.Verified)
			assert.Equal(t, 20.0, *bet.Result)
			assert.False(t, *bet.Won)
			assert.Equal(t, "lost", bet.Explanation)
		})
	})

	t.Run("second resolve rejected", func(t *testing.T) {
		inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
			_, err := uow.BetRepository().Resolve(ctx, id, resolution)
			assert.ErrorIs(t, err, ErrAlreadyResolved)

			_, err = uow.BetRepository().SetPendingNote(ctx, id, "again")
			assert.ErrorIs(t, err, ErrAlreadyResolved)
		})
	})

	t.Run("unknown id", func(t *testing.T) {
		inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
			_, err := uow.BetRepository().Resolve(ctx, "missing", resolution)
			assert.ErrorIs(t, err, ErrBetNotFound)

			bet, err := uow.BetRepository().GetByID(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, bet)
		})
	})
}

func TestRetryRepository(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(store.NewMemoryStore(), nil)

	inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
		repo := uow.RetryRepository()
		require.NoError(t, repo.Save(ctx, &models.RetryRecord{BetID: "a", AttemptCount: 1}))
		require.NoError(t, repo.Save(ctx, &models.RetryRecord{BetID: "b", AttemptCount: 1}))
		require.NoError(t, repo.Save(ctx, &models.RetryRecord{BetID: "a", AttemptCount: 2, LastError: "timeout"}))
		assert.Error(t, repo.Save(ctx, &models.RetryRecord{}))
	})

	inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
		repo := uow.RetryRepository()
		records, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "a", records[0].BetID)
		assert.Equal(t, 2, records[0].AttemptCount)
		assert.Equal(t, "timeout", records[0].LastError)

		require.NoError(t, repo.Delete(ctx, "a"))
		require.NoError(t, repo.Delete(ctx, "unknown"))

		rec, err := repo.Get(ctx, "a")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
		records, err := uow.RetryRepository().List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "b", records[0].BetID)
	})
}

func TestRateLimitAndWalletRepositories(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(store.NewMemoryStore(), nil)
	windowStart := placedAt.Add(-time.Hour)

	inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
		state, err := uow.RateLimitRepository().Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 0, state.Window(models.GroupRain).Count)

		state.SetWindow(models.GroupRain, models.CounterWindow{Count: 2, WindowStart: windowStart})
		require.NoError(t, uow.RateLimitRepository().Save(ctx, state))

		wallet, err := uow.WalletRepository().GetOrCreate(ctx, "alice", 1000, placedAt)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), wallet.Balance)

		require.NoError(t, wallet.Debit(100, placedAt))
		require.NoError(t, uow.WalletRepository().Save(ctx, wallet))
	})

	inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
		state, err := uow.RateLimitRepository().Get(ctx, "alice")
		require.NoError(t, err)
		w := state.Window(models.GroupRain)
		assert.Equal(t, 2, w.Count)
		assert.True(t, w.WindowStart.Equal(windowStart))

		wallet, err := uow.WalletRepository().GetOrCreate(ctx, "alice", 1000, placedAt)
		require.NoError(t, err)
		assert.Equal(t, int64(900), wallet.Balance, "starting balance only applies to new wallets")
	})
}

func TestUnitOfWork_RollbackDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	delivered := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeBetPlaced, func(ctx context.Context, e events.Event) {
		delivered <- e
	})
	factory := NewUnitOfWorkFactory(store.NewMemoryStore(), bus)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	_, err := uow.BetRepository().Append(ctx, models.PlaceBetInput{
		Owner: "alice", Category: models.CategoryRainYes, Stake: 10,
	}, 4.0, placedAt)
	require.NoError(t, err)
	uow.EventBus().Publish(events.BetPlacedEvent{BetID: "x"})
	require.NoError(t, uow.Rollback())
	require.NoError(t, uow.Rollback(), "second rollback is a no-op")

	bus.Wait()
	assert.Len(t, delivered, 0)

	inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
		count, err := uow.BetRepository().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestUnitOfWork_CommitFlushesEvents(t *testing.T) {
	bus := events.NewBus()
	delivered := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeBetPlaced, func(ctx context.Context, e events.Event) {
		delivered <- e
	})
	factory := NewUnitOfWorkFactory(store.NewMemoryStore(), bus)

	inUnitOfWork(t, factory, func(uow service.UnitOfWork) {
		uow.EventBus().Publish(events.BetPlacedEvent{BetID: "x"})
	})
	bus.Wait()

	require.Len(t, delivered, 1)
	assert.Equal(t, "x", (<-delivered).(events.BetPlacedEvent).BetID)
}

func TestUnitOfWork_StoreOutageAbortsCommit(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	bus := events.NewBus()
	delivered := make(chan events.Event, 1)
	bus.SubscribeAll(func(ctx context.Context, e events.Event) {
		delivered <- e
	})
	factory := NewUnitOfWorkFactory(mem, bus)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	_, err := uow.BetRepository().Append(ctx, models.PlaceBetInput{
		Owner: "alice", Category: models.CategoryRainYes, Stake: 10,
	}, 4.0, placedAt)
	require.NoError(t, err)
	uow.EventBus().Publish(events.BetPlacedEvent{BetID: "x"})

	mem.FailWith(errors.New("connection refused"))
	err = uow.Commit()
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)

	mem.FailWith(nil)
	bus.Wait()
	assert.Len(t, delivered, 0)
	assert.Equal(t, 0, mem.Keys())

	// The factory lock was released by the failed commit
	inUnitOfWork(t, factory, func(uow service.UnitOfWork) {})
}

func TestUnitOfWork_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, LedgerKey, "{not json"))
	factory := NewUnitOfWorkFactory(mem, nil)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	_, err := uow.BetRepository().Count(ctx)
	assert.Error(t, err)
}
