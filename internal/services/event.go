package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clubledger/internal/domain"
)

type eventService struct {
	eventRepo         domain.EventRepository
	participationRepo domain.ParticipationRepository
	contextTimeout    time.Duration
}

// NewEventService creates an EventService with the given repositories.
func NewEventService(
	eventRepo domain.EventRepository,
	participationRepo domain.ParticipationRepository,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:         eventRepo,
		participationRepo: participationRepo,
		contextTimeout:    timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, name string, price float64, endAt time.Time) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	if endAt.IsZero() {
		return nil, fmt.Errorf("%w: endAt is required", domain.ErrInvalidInput)
	}

	now := time.Now()
	event := &domain.Event{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     price,
		EndAt:     endAt,
		Status:    domain.EventStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (s *eventService) CloneEvent(ctx context.Context, sourceEventID string, newEndAt time.Time, name *string, price *float64) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	source, err := s.eventRepo.GetByID(ctx, sourceEventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get source event: %w", err)
	}
	if newEndAt.IsZero() {
		return nil, fmt.Errorf("%w: newEndAt is required", domain.ErrInvalidInput)
	}

	cloneName := source.Name
	if name != nil && strings.TrimSpace(*name) != "" {
		cloneName = strings.TrimSpace(*name)
	}
	clonePrice := source.Price
	if price != nil {
		if *price < 0 {
			return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
		}
		clonePrice = *price
	}

	now := time.Now()
	clone := &domain.Event{
		ID:        uuid.NewString(),
		Name:      cloneName,
		Price:     clonePrice,
		EndAt:     newEndAt,
		Status:    domain.EventStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.eventRepo.Create(ctx, clone); err != nil {
		return nil, fmt.Errorf("create cloned event: %w", err)
	}
	return clone, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, id string, upd domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.Status == domain.EventStatusClosed {
		return nil, domain.ErrEventClosed
	}
	if upd.Price != nil && *upd.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}

	updated, err := s.eventRepo.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

func (s *eventService) CloseEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	closed, err := s.eventRepo.SetStatus(ctx, id, domain.EventStatusClosed)
	if err != nil {
		return nil, fmt.Errorf("close event: %w", err)
	}
	return closed, nil
}

func (s *eventService) ListEvents(ctx context.Context, month *domain.MonthKey) ([]*domain.EventWithOptInCount, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var events []*domain.Event
	var err error
	if month != nil {
		from, to := month.Window()
		events, err = s.eventRepo.ListEndingBetween(ctx, from, to)
	} else {
		events, err = s.eventRepo.ListAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return s.withOptInCounts(ctx, events)
}

func (s *eventService) ListTodaysOpenEvents(ctx context.Context) ([]*domain.EventWithOptInCount, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	// Calendar-day window in local time, matching how members think about
	// "today's events".
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 0, 1)

	events, err := s.eventRepo.ListOpenEndingBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return s.withOptInCounts(ctx, events)
}

func (s *eventService) withOptInCounts(ctx context.Context, events []*domain.Event) ([]*domain.EventWithOptInCount, error) {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	counts, err := s.participationRepo.CountByEventIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count participations: %w", err)
	}
	result := make([]*domain.EventWithOptInCount, 0, len(events))
	for _, e := range events {
		result = append(result, &domain.EventWithOptInCount{
			Event:      e,
			OptInCount: counts[e.ID],
		})
	}
	return result, nil
}

func (s *eventService) OptIn(ctx context.Context, eventID, userID string) (*domain.Participation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.Status != domain.EventStatusOpen {
		return nil, domain.ErrEventClosed
	}

	if _, err := s.participationRepo.GetByEventAndUser(ctx, eventID, userID); err == nil {
		return nil, domain.ErrAlreadyOptedIn
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get participation: %w", err)
	}

	p := &domain.Participation{
		ID:        uuid.NewString(),
		EventID:   eventID,
		UserID:    userID,
		OptedInAt: time.Now(),
	}
	if err := s.participationRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create participation: %w", err)
	}
	return p, nil
}

func (s *eventService) ListParticipants(ctx context.Context, eventID string) ([]*domain.ParticipationWithUser, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	participants, err := s.participationRepo.ListByEventWithUser(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}

func (s *eventService) MyParticipations(ctx context.Context, userID string) ([]*domain.ParticipationWithEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	parts, err := s.participationRepo.ListByUserWithEvent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	return parts, nil
}
