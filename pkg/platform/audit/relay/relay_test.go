package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "coffer/pkg/platform/audit"
	"coffer/pkg/platform/audit/store/memory"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, records ...*kgo.Record) kgo.ProduceResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return kgo.ProduceResults{{Err: f.err}}
	}
	f.records = append(f.records, records...)
	results := make(kgo.ProduceResults, 0, len(records))
	for _, record := range records {
		results = append(results, kgo.ProduceResult{Record: record})
	}
	return results
}

func (f *fakeProducer) produced() []*kgo.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*kgo.Record{}, f.records...)
}

func (f *fakeProducer) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func seedOutbox(t *testing.T, store *memory.InMemoryStore, n int) []audit.Event {
	t.Helper()
	events := make([]audit.Event, 0, n)
	for i := 0; i < n; i++ {
		event := audit.Event{
			ID:         uuid.New(),
			Action:     audit.ActionDonationReceived,
			Actor:      "alice",
			Amount:     uint64(i + 1),
			PotBalance: uint64(100 + i),
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, store.Append(context.Background(), event))
		events = append(events, event)
	}
	return events
}

func TestRelay_PublishesAndMarks(t *testing.T) {
	store := memory.NewInMemoryStore()
	producer := &fakeProducer{}
	relay := New(store, producer)

	events := seedOutbox(t, store, 3)

	require.NoError(t, relay.relayOnce(context.Background()))

	records := producer.produced()
	require.Len(t, records, 3)
	assert.Equal(t, Topic, records[0].Topic)
	assert.Equal(t, string(audit.ActionDonationReceived), string(records[0].Key))

	var payload audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &payload))
	assert.Equal(t, events[0].ID, payload.ID)
	assert.Equal(t, events[0].Amount, payload.Amount)

	pending, err := store.ListUnrelayed(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "published events must be marked relayed")
}

func TestRelay_EmptyOutbox(t *testing.T) {
	store := memory.NewInMemoryStore()
	producer := &fakeProducer{}
	relay := New(store, producer)

	require.NoError(t, relay.relayOnce(context.Background()))
	assert.Empty(t, producer.produced())
}

func TestRelay_BrokerFailure_KeepsOutbox(t *testing.T) {
	store := memory.NewInMemoryStore()
	producer := &fakeProducer{err: errors.New("broker unavailable")}
	relay := New(store, producer)

	seedOutbox(t, store, 3)

	err := relay.relayOnce(context.Background())
	require.Error(t, err)

	pending, listErr := store.ListUnrelayed(context.Background(), 10)
	require.NoError(t, listErr)
	assert.Len(t, pending, 3, "failed batch must stay in the outbox")
}

func TestRelay_BreakerOpensAndRecovers(t *testing.T) {
	store := memory.NewInMemoryStore()
	producer := &fakeProducer{err: errors.New("broker unavailable")}
	relay := New(store, producer)

	seedOutbox(t, store, 10)

	// Default failure threshold is five consecutive failures.
	for i := 0; i < 5; i++ {
		require.Error(t, relay.relayOnce(context.Background()))
	}
	require.True(t, relay.breaker.IsOpen())

	// While open only a probe-sized batch goes out per pass.
	producer.setErr(nil)
	require.NoError(t, relay.relayOnce(context.Background()))
	assert.Len(t, producer.produced(), 1, "open breaker probes with a single event")

	// Two consecutive successes close the breaker; the next pass drains
	// a full batch again.
	require.NoError(t, relay.relayOnce(context.Background()))
	require.False(t, relay.breaker.IsOpen())

	require.NoError(t, relay.relayOnce(context.Background()))
	pending, err := store.ListUnrelayed(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	store := memory.NewInMemoryStore()
	relay := New(store, &fakeProducer{}, WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancellation")
	}
}
