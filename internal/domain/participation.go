package domain

import (
	"context"
	"time"
)

// Participation records that a user opted into an event. At most one exists
// per (event, user) pair; it is never mutated after creation.
type Participation struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	OptedInAt time.Time `json:"optedInAt"`
}

// ParticipationWithEvent joins a participation to its event's billing fields.
type ParticipationWithEvent struct {
	Participation *Participation
	Event         *Event
}

// ParticipationWithUser joins a participation to the participating user.
type ParticipationWithUser struct {
	Participation *Participation
	User          *User
}

// ParticipationRepository defines the interface for participation storage.
// The batch queries exist so the aggregation paths stay at a constant number
// of store round trips regardless of how many participations they touch.
type ParticipationRepository interface {
	Create(ctx context.Context, p *Participation) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*Participation, error)
	// ListByEventIDs returns every participation in any of the given events.
	ListByEventIDs(ctx context.Context, eventIDs []string) ([]*Participation, error)
	// ListByUserWithEvent returns the user's participations joined to their
	// events, ordered by event end time ascending.
	ListByUserWithEvent(ctx context.Context, userID string) ([]*ParticipationWithEvent, error)
	ListByEventWithUser(ctx context.Context, eventID string) ([]*ParticipationWithUser, error)
	// CountByEventIDs returns opt-in counts keyed by event ID. Events with no
	// participations are absent from the map.
	CountByEventIDs(ctx context.Context, eventIDs []string) (map[string]int, error)
}
