package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"weatherbet/config"
	"weatherbet/events"
	"weatherbet/models"
	"weatherbet/service"
	"weatherbet/store"
)

func TestOpenStore_Memory(t *testing.T) {
	cfg := config.NewTestConfig()
	st, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	defer st.Close()

	_, isMemory := st.(*store.MemoryStore)
	assert.True(t, isMemory)
}

func TestOpenStore_RedisUnreachable(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.StoreBackend = config.StoreRedis
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := OpenStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewServices_PlaceAndQuote(t *testing.T) {
	cfg := config.NewTestConfig()
	bus := events.NewBus()
	provider := new(service.MockObservationProvider)
	services := NewServices(cfg, store.NewMemoryStore(), bus, provider, nil)
	t.Cleanup(bus.Wait)

	bet, err := services.Betting.PlaceBet(context.Background(), models.PlaceBetInput{
		Owner:    "local",
		Category: models.CategoryRainYes,
		Stake:    50,
	})
	require.NoError(t, err)
	assert.Equal(t, services.Odds.RainYesOdds(), bet.Odds)

	wallet, err := services.Betting.GetBalance(context.Background(), "local")
	require.NoError(t, err)
	assert.Equal(t, cfg.StartingBalance-50, wallet.Balance)

	// Nothing is due yet, so the provider is never called
	changed, err := services.Resolution.SweepDueBets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, changed)
	provider.AssertNotCalled(t, "FetchCurrentRain", mock.Anything)
}
