package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRecorder collects saved entries in memory.
type memRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *memRecorder) Save(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memRecorder) GetByType(ctx context.Context, entryType string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.Type == entryType {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestNewEntry(t *testing.T) {
	e := NewEntry(
		WithType(TypePaymentStatusUpdated),
		WithData(map[string]string{"userId": "user-1"}),
		WithMetadata(map[string]string{"actor": "admin-1"}),
	)

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, TypePaymentStatusUpdated, e.Type)
	assert.Equal(t, map[string]string{"userId": "user-1"}, e.Data)
	assert.Equal(t, "admin-1", e.Metadata["actor"])
	assert.False(t, e.CreatedAt.IsZero())
}

func TestWorker_RecordAndShutdown(t *testing.T) {
	rec := &memRecorder{}
	w := NewWorker(rec, 10)
	w.Start()

	for i := 0; i < 5; i++ {
		w.Record(NewEntry(WithType(TypePaymentStatusUpdated)))
	}
	w.Shutdown()

	got, err := rec.GetByType(context.Background(), TypePaymentStatusUpdated)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestWorker_RecordAfterShutdownDoesNotPanic(t *testing.T) {
	rec := &memRecorder{}
	w := NewWorker(rec, 2)
	w.Start()
	w.Shutdown()

	for i := 0; i < 5; i++ {
		w.Record(NewEntry(WithType(TypePaymentStatusUpdated)))
	}
}

func TestWorker_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	rec := &memRecorder{}
	w := NewWorker(rec, 1)
	// Worker not started, so the buffer never drains.
	w.Record(NewEntry(WithType("a")))

	done := make(chan struct{})
	go func() {
		w.Record(NewEntry(WithType("b")))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
}
