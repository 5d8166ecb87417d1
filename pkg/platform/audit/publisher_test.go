package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "coffer/pkg/platform/audit"
	"coffer/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("store down")
}

func (failingStore) List(context.Context, audit.Query) ([]audit.Event, error) {
	return nil, nil
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Action: audit.ActionDonationReceived,
		Actor:  "alice",
		Amount: 10,
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), audit.Query{Actor: "alice"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionDonationReceived, events[0].Action)
}

func TestPublisher_SyncMode_FailClosed(t *testing.T) {
	pub := audit.NewPublisher(failingStore{})
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Action: audit.ActionDonationReceived,
	})
	require.Error(t, err, "a failed append must surface to the caller")
}

func TestPublisher_RequiresAction(t *testing.T) {
	pub := audit.NewPublisher(memory.NewInMemoryStore())
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Actor: "alice"})
	require.Error(t, err)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store, audit.WithAsyncBuffer(10))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Action: audit.ActionFundsAllocated,
		Amount: 5,
	})
	require.NoError(t, err)

	// Wait for async processing
	time.Sleep(100 * time.Millisecond)

	events, err := pub.List(context.Background(), audit.Query{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionFundsAllocated, events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store, audit.WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Action: audit.ActionDonationReceived,
			Actor:  "alice",
		})
		require.NoError(t, err)
	}

	// Close should drain all events
	pub.Close()

	events, err := store.List(context.Background(), audit.Query{})
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store, audit.WithAsyncBuffer(1))
	defer pub.Close()

	// Fill the buffer with concurrent writes. Overflow must surface as
	// ErrBufferFull rather than blocking the caller.
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{
				Action: audit.ActionDonationReceived,
			})
			if err != nil {
				assert.ErrorIs(t, err, audit.ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_SetsIDAndTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store)
	defer pub.Close()

	before := time.Now()
	err := pub.Emit(context.Background(), audit.Event{
		Action: audit.ActionDonationReceived,
	})
	require.NoError(t, err)
	after := time.Now()

	events, err := pub.List(context.Background(), audit.Query{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.True(t, !events[0].CreatedAt.Before(before.UTC()), "timestamp should be >= before")
	assert.True(t, !events[0].CreatedAt.After(after.UTC()), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store)
	defer pub.Close()

	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	err := pub.Emit(context.Background(), audit.Event{
		Action:    audit.ActionDonationReceived,
		CreatedAt: customTime,
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), audit.Query{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].CreatedAt)
}

func TestPublisher_ContextCancellation(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store, audit.WithAsyncBuffer(1))
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Emit(ctx, audit.Event{Action: audit.ActionDonationReceived})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPublisher_MultipleEvents(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store)
	defer pub.Close()

	actions := []audit.Action{
		audit.ActionDonationReceived,
		audit.ActionFundsAllocated,
		audit.ActionImbalanceAbsorbed,
	}
	for _, action := range actions {
		err := pub.Emit(context.Background(), audit.Event{Action: action})
		require.NoError(t, err)
	}

	result, err := pub.List(context.Background(), audit.Query{})
	require.NoError(t, err)
	require.Len(t, result, 3)

	// Newest first.
	assert.Equal(t, audit.ActionImbalanceAbsorbed, result[0].Action)
	assert.Equal(t, audit.ActionFundsAllocated, result[1].Action)
	assert.Equal(t, audit.ActionDonationReceived, result[2].Action)
}

func TestPublisher_FiltersByActor(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Action: audit.ActionDonationReceived,
		Actor:  "alice",
	})
	require.NoError(t, err)

	err = pub.Emit(context.Background(), audit.Event{
		Action: audit.ActionDonationReceived,
		Actor:  "bob",
	})
	require.NoError(t, err)

	aliceEvents, err := pub.List(context.Background(), audit.Query{Actor: "alice"})
	require.NoError(t, err)
	require.Len(t, aliceEvents, 1)
	assert.Equal(t, "alice", string(aliceEvents[0].Actor))

	bobEvents, err := pub.List(context.Background(), audit.Query{Actor: "bob"})
	require.NoError(t, err)
	require.Len(t, bobEvents, 1)
	assert.Equal(t, "bob", string(bobEvents[0].Actor))
}
