package domain

import (
	"context"
	"errors"
	"time"
)

// Event lifecycle errors.
var (
	ErrEventClosed    = errors.New("event is not open for opt-in")
	ErrAlreadyOptedIn = errors.New("already opted in to this event")
)

// EventStatus is the lifecycle state of an event. Events only ever move from
// open to closed.
type EventStatus string

const (
	EventStatusOpen   EventStatus = "open"
	EventStatusClosed EventStatus = "closed"
)

// Event is a priced, time-bounded activity members can opt into. EndAt
// determines which billing month the event's price lands in.
type Event struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Price     float64     `json:"price"`
	EndAt     time.Time   `json:"endAt"`
	Status    EventStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// EventWithOptInCount decorates an event with its number of participants.
type EventWithOptInCount struct {
	*Event
	OptInCount int `json:"optInCount"`
}

// EventUpdate carries the optional fields of an event update. Nil fields are
// left unchanged.
type EventUpdate struct {
	Name  *string
	Price *float64
	EndAt *time.Time
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, id string, upd EventUpdate) (*Event, error)
	SetStatus(ctx context.Context, id string, status EventStatus) (*Event, error)
	ListAll(ctx context.Context) ([]*Event, error)
	// ListEndingBetween returns events whose end time falls in [from, to).
	ListEndingBetween(ctx context.Context, from, to time.Time) ([]*Event, error)
	// ListOpenEndingBetween is ListEndingBetween restricted to open events.
	ListOpenEndingBetween(ctx context.Context, from, to time.Time) ([]*Event, error)
}

// EventService defines the event lifecycle and opt-in business logic.
type EventService interface {
	CreateEvent(ctx context.Context, name string, price float64, endAt time.Time) (*Event, error)
	// CloneEvent creates a fresh open event from a source event, with optional
	// name and price overrides and a new end time.
	CloneEvent(ctx context.Context, sourceEventID string, newEndAt time.Time, name *string, price *float64) (*Event, error)
	UpdateEvent(ctx context.Context, id string, upd EventUpdate) (*Event, error)
	CloseEvent(ctx context.Context, id string) (*Event, error)
	// ListEvents returns all events, optionally restricted to a month, with
	// opt-in counts. Admin view.
	ListEvents(ctx context.Context, month *MonthKey) ([]*EventWithOptInCount, error)
	// ListTodaysOpenEvents returns open events ending today, with opt-in
	// counts. Member view.
	ListTodaysOpenEvents(ctx context.Context) ([]*EventWithOptInCount, error)
	OptIn(ctx context.Context, eventID, userID string) (*Participation, error)
	ListParticipants(ctx context.Context, eventID string) ([]*ParticipationWithUser, error)
	// MyParticipations returns the user's participations joined to their
	// events, ordered by event end time ascending.
	MyParticipations(ctx context.Context, userID string) ([]*ParticipationWithEvent, error)
}
