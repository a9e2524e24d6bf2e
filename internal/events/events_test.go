package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startedBus(t *testing.T) EventBus {
	t.Helper()
	bus := NewEventBus(DefaultEventBusConfig(), zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		bus.Stop(ctx)
	})
	return bus
}

func waitForCount(t *testing.T, counter *int64, want int64) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt64(counter) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d handled events, got %d", want, atomic.LoadInt64(counter))
}

func TestEventBusDeliversToSubscriber(t *testing.T) {
	bus := startedBus(t)

	var handled int64
	handler := NewEventHandlerFunc("test-handler", func(ctx context.Context, event Event) error {
		atomic.AddInt64(&handled, 1)
		return nil
	})
	require.NoError(t, bus.Subscribe(EventTransactionCreated, handler))

	event := NewTransactionCreatedEvent(1, 10, 2, "ingreso", decimal.NewFromInt(100), nil)
	require.NoError(t, bus.PublishAsync(context.Background(), event))

	waitForCount(t, &handled, 1)
}

func TestEventBusPatternSubscription(t *testing.T) {
	bus := startedBus(t)

	var handled int64
	handler := NewEventHandlerFunc("pattern-handler", func(ctx context.Context, event Event) error {
		atomic.AddInt64(&handled, 1)
		return nil
	})
	require.NoError(t, bus.SubscribePattern("transaction.*", handler))

	event := NewTransactionCreatedEvent(1, 10, 2, "gasto", decimal.NewFromInt(50), nil)
	require.NoError(t, bus.PublishAsync(context.Background(), event))

	waitForCount(t, &handled, 1)
}

func TestEventBusHandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := startedBus(t)

	var handled int64
	failing := NewEventHandlerFunc("failing", func(ctx context.Context, event Event) error {
		return errors.New("handler broke")
	})
	succeeding := NewEventHandlerFunc("succeeding", func(ctx context.Context, event Event) error {
		atomic.AddInt64(&handled, 1)
		return nil
	})
	require.NoError(t, bus.Subscribe(EventGoalUpdated, failing))
	require.NoError(t, bus.Subscribe(EventGoalUpdated, succeeding))

	require.NoError(t, bus.PublishAsync(context.Background(), NewGoalUpdatedEvent(1, 5, true)))

	waitForCount(t, &handled, 1)
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := startedBus(t)

	var handled int64
	handler := NewEventHandlerFunc("once", func(ctx context.Context, event Event) error {
		atomic.AddInt64(&handled, 1)
		return nil
	})
	require.NoError(t, bus.Subscribe(EventDebtUpdated, handler))
	require.NoError(t, bus.Unsubscribe(EventDebtUpdated, handler))

	require.NoError(t, bus.PublishAsync(context.Background(), NewDebtUpdatedEvent(1, 3, decimal.NewFromInt(500))))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&handled))
}

func TestEventBusStats(t *testing.T) {
	bus := startedBus(t)

	require.NoError(t, bus.PublishAsync(context.Background(), NewChallengeJoinedEvent(1, 9)))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if bus.Stats().EventsProcessed >= 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	stats := bus.Stats()
	assert.GreaterOrEqual(t, stats.EventsPublished, int64(1))
	assert.GreaterOrEqual(t, stats.EventsProcessed, int64(1))
}

func TestGenerateEventID(t *testing.T) {
	first := GenerateEventID()
	second := GenerateEventID()

	assert.True(t, len(first) > 4)
	assert.Contains(t, first, "evt_")
	assert.NotEqual(t, first, second)
}

func TestMatchesPattern(t *testing.T) {
	assert.True(t, matchesPattern("transaction.created", "transaction.*"))
	assert.True(t, matchesPattern("anything", "*"))
	assert.True(t, matchesPattern("goal.updated", "goal.updated"))
	assert.False(t, matchesPattern("goal.updated", "transaction.*"))
}
