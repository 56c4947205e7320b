package infrastructure

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"weatherbet/events"
)

func startNATS(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			Cmd:          []string{"-js"},
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)
	return fmt.Sprintf("nats://%s:%s", host, port.Port())
}

func TestNATSClient_PublishToStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping NATS integration test in short mode")
	}

	servers := startNATS(t)
	client := NewNATSClient(servers)
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { _ = client.Close() })
	assert.True(t, client.IsConnected())

	require.NoError(t, client.EnsureStream(BetEventStream, AllSubjects()))
	// Second call finds the existing stream
	require.NoError(t, client.EnsureStream(BetEventStream, AllSubjects()))

	publisher := NewNATSEventPublisher(client)
	require.NoError(t, publisher.Publish(context.Background(), events.BetPlacedEvent{BetID: "bet-1"}))

	nc, err := nats.Connect(servers)
	require.NoError(t, err)
	defer nc.Close()
	js, err := nc.JetStream()
	require.NoError(t, err)

	info, err := js.StreamInfo(BetEventStream)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)
}

func TestNATSClient_NotConnected(t *testing.T) {
	client := NewNATSClient("nats://127.0.0.1:1")
	assert.False(t, client.IsConnected())
	assert.Error(t, client.Publish(context.Background(), "weatherbet.bets.bet_placed", []byte("{}")))
	assert.Error(t, client.EnsureStream(BetEventStream, AllSubjects()))
	assert.NoError(t, client.Close())
}
