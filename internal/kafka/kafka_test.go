package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/funkoshop/order-service/internal/orders"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducer_FlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, 8, zerolog.Nop())
	p.Start(context.Background())

	for _, k := range []string{"a", "b", "c"} {
		assert.True(t, p.Publish([]byte(k), []byte("v")))
	}
	p.Close()
	p.WaitClosed()

	assert.True(t, w.closed)
	require.Len(t, w.msgs, 3)
	assert.Equal(t, "c", string(w.msgs[2].Key))
	assert.False(t, p.Publish([]byte("late"), nil))
	p.Close()
}

func TestProducer_DropsWhenFull(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, 1, zerolog.Nop())
	assert.True(t, p.Publish([]byte("1"), nil))
	assert.False(t, p.Publish([]byte("2"), nil))
	p.Start(context.Background())
	p.Close()
	p.WaitClosed()
}

func TestNotifier_PublishesEnvelope(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, 4, zerolog.Nop())
	p.Start(context.Background())
	n := &Notifier{Producer: p, Service: "order-api"}

	n.Notify(context.Background(), orders.Event{Type: orders.EventCreate, Entity: orders.EntityOrder, Order: orders.Order{ID: "o-1", TotalItems: 2}})
	p.Close()
	p.WaitClosed()

	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, "o-1", string(m.Key))
	assert.Equal(t, []kafka.Header{
		{Key: "x-event-type", Value: []byte("ORDER_CREATE")},
		{Key: "x-event-version", Value: []byte("1")},
	}, m.Headers)

	env, err := UnmarshalEnvelope(m.Value)
	require.NoError(t, err)
	assert.Equal(t, "order-api", env.Producer)
	assert.Equal(t, "o-1", env.CorrelationID)
	assert.NotEmpty(t, env.EventID)
	ev, err := UnwrapPayload[orders.Event](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, orders.EventCreate, ev.Type)
	assert.Equal(t, 2, ev.Order.TotalItems)
}

func TestUnmarshalEnvelope_Invalid(t *testing.T) {
	_, err := UnmarshalEnvelope([]byte("nope"))
	assert.Error(t, err)
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed map[int][]int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.committed == nil {
		r.committed = map[int][]int64{}
	}
	for _, m := range msgs {
		r.committed[m.Partition] = append(r.committed[m.Partition], m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, offs := range r.committed {
		n += len(offs)
	}
	return n
}

func TestConsumer_RetriesAndCommitsInPartitionOrder(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{
		{Partition: 0, Offset: 1}, {Partition: 1, Offset: 10}, {Partition: 0, Offset: 2},
		{Partition: 1, Offset: 11}, {Partition: 0, Offset: 3},
	}}
	c := NewConsumerWithReader(r, 2, zerolog.Nop())
	c.backoff = time.Millisecond

	var mu sync.Mutex
	attempts := map[int64]int{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(_ context.Context, m kafka.Message) error {
			mu.Lock()
			defer mu.Unlock()
			attempts[m.Offset]++
			if m.Offset == 2 && attempts[m.Offset] < 3 {
				return errors.New("transient")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return r.commits() == 5 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2, 3}, r.committed[0])
	assert.Equal(t, []int64{10, 11}, r.committed[1])
	assert.Equal(t, 3, attempts[2])
	assert.True(t, r.closed)
}

func TestConsumer_StopsRetryingOnCancel(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{{Offset: 1}, {Offset: 2}}}
	c := NewConsumerWithReader(r, 1, zerolog.Nop())
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	failing := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(context.Context, kafka.Message) error {
			select {
			case failing <- struct{}{}:
			default:
			}
			return errors.New("down")
		})
	}()

	<-failing
	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, r.commits())
}
