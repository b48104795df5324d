package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"storefront/internal/tasks"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type recordingHandler struct {
	mu       sync.Mutex
	received []tasks.Task
	failOnce bool
}

func (h *recordingHandler) Handle(_ context.Context, msg redis.XMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failOnce {
		h.failOnce = false
		return errors.New("transient")
	}
	h.received = append(h.received, tasks.Task{
		Type:  fmt.Sprint(msg.Values["type"]),
		Email: fmt.Sprint(msg.Values["email"]),
	})
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func TestProducerConsumerRoundTrip(t *testing.T) {
	client := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := &recordingHandler{}
	consumer := NewConsumer(client, "test:tasks", "workers", "w1", time.Second, zerolog.Nop(), handler)
	consumer.block = 200 * time.Millisecond
	require.NoError(t, consumer.EnsureGroup(ctx))
	require.NoError(t, consumer.EnsureGroup(ctx))

	producer := NewProducer(client, "test:tasks", 1000)
	require.NoError(t, producer.Enqueue(ctx, tasks.Task{Type: tasks.TypeResetCode, Email: "a@x.com", Code: "123456"}))
	require.NoError(t, producer.Enqueue(ctx, tasks.Task{Type: tasks.TypeSessionCleanup}))

	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	require.Eventually(t, func() bool { return handler.count() == 2 }, 10*time.Second, 50*time.Millisecond)

	pending, err := client.XPending(ctx, "test:tasks", "workers").Result()
	require.NoError(t, err)
	require.Zero(t, pending.Count)

	require.Eventually(t, func() bool {
		n, err := client.XLen(ctx, "test:tasks").Result()
		return err == nil && n == 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestConsumerReclaimsFailedMessage(t *testing.T) {
	client := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := &recordingHandler{failOnce: true}
	consumer := NewConsumer(client, "test:retry", "workers", "w1", 500*time.Millisecond, zerolog.Nop(), handler)
	consumer.block = 100 * time.Millisecond

	require.NoError(t, consumer.EnsureGroup(ctx))
	require.NoError(t, NewProducer(client, "test:retry", 1000).Enqueue(ctx, tasks.Task{Type: tasks.TypeSessionCleanup}))

	go func() { _ = consumer.Start(ctx) }()

	require.Eventually(t, func() bool { return handler.count() == 1 }, 15*time.Second, 100*time.Millisecond)
}

func TestProducerTrimsStream(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	producer := NewProducer(client, "test:trim", 5)
	for i := 0; i < 500; i++ {
		require.NoError(t, producer.Enqueue(ctx, tasks.Task{Type: tasks.TypeSessionCleanup}))
	}

	n, err := client.XLen(ctx, "test:trim").Result()
	require.NoError(t, err)
	require.Less(t, n, int64(500))
}

func TestResetCodeEntryRemovedAfterProcessing(t *testing.T) {
	client := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := &recordingHandler{}
	consumer := NewConsumer(client, "test:codes", "workers", "w1", time.Second, zerolog.Nop(), handler)
	consumer.block = 100 * time.Millisecond
	require.NoError(t, consumer.EnsureGroup(ctx))

	require.NoError(t, NewProducer(client, "test:codes", 1000).Enqueue(ctx,
		tasks.Task{Type: tasks.TypeResetCode, Email: "a@x.com", Code: "654321"}))

	go func() { _ = consumer.Start(ctx) }()
	require.Eventually(t, func() bool { return handler.count() == 1 }, 10*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		entries, err := client.XRange(ctx, "test:codes", "-", "+").Result()
		return err == nil && len(entries) == 0
	}, 5*time.Second, 50*time.Millisecond)
}
