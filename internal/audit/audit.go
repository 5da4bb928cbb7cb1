package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry types recorded by the application.
const (
	TypePaymentStatusUpdated = "payment_status_updated"
)

// Entry is a single audit trail record.
type Entry struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Type      string            `json:"entry_type,omitempty"`
	Data      any               `json:"entry_data,omitempty"`
	Metadata  map[string]string `json:"entry_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type EntryOption func(*Entry)

func WithType(entryType string) EntryOption {
	return func(e *Entry) {
		e.Type = entryType
	}
}

func WithData(data any) EntryOption {
	return func(e *Entry) {
		e.Data = data
	}
}

func WithMetadata(metadata map[string]string) EntryOption {
	return func(e *Entry) {
		e.Metadata = metadata
	}
}

func NewEntry(opts ...EntryOption) Entry {
	e := Entry{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Recorder persists audit entries.
type Recorder interface {
	Save(ctx context.Context, e Entry) error
	GetByType(ctx context.Context, entryType string) ([]Entry, error)
}
