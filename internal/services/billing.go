package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"clubledger/internal/domain"
)

type billingService struct {
	eventRepo         domain.EventRepository
	participationRepo domain.ParticipationRepository
	paymentRepo       domain.PaymentRepository
	userRepo          domain.UserRepository
	emailService      domain.EmailService
	contextTimeout    time.Duration
}

// NewBillingService creates a BillingService with the given repositories.
// emailService may be nil; payment reminders then become a no-op.
func NewBillingService(
	eventRepo domain.EventRepository,
	participationRepo domain.ParticipationRepository,
	paymentRepo domain.PaymentRepository,
	userRepo domain.UserRepository,
	emailService domain.EmailService,
	timeout time.Duration,
) domain.BillingService {
	return &billingService{
		eventRepo:         eventRepo,
		participationRepo: participationRepo,
		paymentRepo:       paymentRepo,
		userRepo:          userRepo,
		emailService:      emailService,
		contextTimeout:    timeout,
	}
}

func (s *billingService) MonthlySummary(ctx context.Context, month domain.MonthKey) ([]*domain.UserMonthlyCharge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	from, to := month.Window()
	events, err := s.eventRepo.ListEndingBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if len(events) == 0 {
		return []*domain.UserMonthlyCharge{}, nil
	}

	priceByEvent := make(map[string]float64, len(events))
	eventIDs := make([]string, 0, len(events))
	for _, e := range events {
		priceByEvent[e.ID] = e.Price
		eventIDs = append(eventIDs, e.ID)
	}

	parts, err := s.participationRepo.ListByEventIDs(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}

	// Group by user, keeping first-seen order so output is deterministic.
	totals := make(map[string]float64)
	userIDs := make([]string, 0)
	for _, p := range parts {
		if _, seen := totals[p.UserID]; !seen {
			userIDs = append(userIDs, p.UserID)
		}
		totals[p.UserID] += priceByEvent[p.EventID]
	}
	if len(userIDs) == 0 {
		return []*domain.UserMonthlyCharge{}, nil
	}

	users, err := s.userRepo.ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	nameByUser := make(map[string]string, len(users))
	for _, u := range users {
		nameByUser[u.ID] = u.Name
	}

	statusByUser, err := s.ledgerStatusByUser(ctx, month.String())
	if err != nil {
		return nil, err
	}

	charges := make([]*domain.UserMonthlyCharge, 0, len(userIDs))
	for _, userID := range userIDs {
		name, ok := nameByUser[userID]
		if !ok {
			// Participation referencing a deleted user; skip the row rather
			// than bill a ghost.
			continue
		}
		charges = append(charges, &domain.UserMonthlyCharge{
			UserID:      userID,
			UserName:    name,
			TotalAmount: totals[userID],
			Status:      mergeStatus(statusByUser, userID),
		})
	}
	return charges, nil
}

func (s *billingService) PaymentHistory(ctx context.Context, userID string) ([]*domain.MonthlyCharge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	parts, err := s.participationRepo.ListByUserWithEvent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}

	totals := make(map[string]float64)
	months := make([]string, 0)
	for _, p := range parts {
		month := domain.MonthKeyOf(p.Event.EndAt).String()
		if _, seen := totals[month]; !seen {
			months = append(months, month)
		}
		totals[month] += p.Event.Price
	}
	if len(months) == 0 {
		return []*domain.MonthlyCharge{}, nil
	}
	// YYYY-MM sorts lexicographically; most recent month first.
	sort.Sort(sort.Reverse(sort.StringSlice(months)))

	records, err := s.paymentRepo.ListByUserAndMonths(ctx, userID, months)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	statusByMonth := make(map[string]domain.PaymentStatus, len(records))
	for _, rec := range records {
		statusByMonth[rec.Month] = rec.Status
	}

	history := make([]*domain.MonthlyCharge, 0, len(months))
	for _, month := range months {
		history = append(history, &domain.MonthlyCharge{
			Month:       month,
			TotalAmount: totals[month],
			Status:      mergeStatus(statusByMonth, month),
		})
	}
	return history, nil
}

func (s *billingService) MonthlyStatement(ctx context.Context, userID string, month domain.MonthKey) (*domain.MonthlyStatement, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	parts, err := s.participationRepo.ListByUserWithEvent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}

	// Repository order is end time ascending, so the contributing-events list
	// keeps that order without re-sorting.
	var total float64
	events := make([]domain.ChargedEvent, 0)
	for _, p := range parts {
		if !month.Contains(p.Event.EndAt) {
			continue
		}
		total += p.Event.Price
		events = append(events, domain.ChargedEvent{
			Name:  p.Event.Name,
			Price: p.Event.Price,
			EndAt: p.Event.EndAt,
		})
	}

	status := domain.PaymentStatusUnpaid
	rec, err := s.paymentRepo.GetByUserAndMonth(ctx, userID, month.String())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if rec != nil {
		status = rec.Status
	}

	return &domain.MonthlyStatement{
		UserID:      userID,
		UserName:    user.Name,
		Month:       month.String(),
		TotalAmount: total,
		Status:      status,
		Events:      events,
	}, nil
}

func (s *billingService) SetPaymentStatus(ctx context.Context, userID string, month domain.MonthKey, status domain.PaymentStatus) (*domain.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	rec := &domain.PaymentRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Month:     month.String(),
		Status:    status,
		UpdatedAt: time.Now(),
	}
	if err := s.paymentRepo.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("upsert payment: %w", err)
	}
	return rec, nil
}

func (s *billingService) SendPaymentReminders(ctx context.Context, month domain.MonthKey) (int, error) {
	if s.emailService == nil {
		return 0, nil
	}

	charges, err := s.MonthlySummary(ctx, month)
	if err != nil {
		return 0, err
	}

	unpaidIDs := make([]string, 0)
	for _, c := range charges {
		if c.Status == domain.PaymentStatusUnpaid {
			unpaidIDs = append(unpaidIDs, c.UserID)
		}
	}
	if len(unpaidIDs) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	users, err := s.userRepo.ListByIDs(ctx, unpaidIDs)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	emailByUser := make(map[string]string, len(users))
	for _, u := range users {
		emailByUser[u.ID] = u.Email
	}

	sent := 0
	for _, c := range charges {
		if c.Status != domain.PaymentStatusUnpaid {
			continue
		}
		email, ok := emailByUser[c.UserID]
		if !ok || email == "" {
			continue
		}
		data := &domain.PaymentReminderEmailData{
			Email:       email,
			Name:        c.UserName,
			Month:       month.String(),
			TotalAmount: c.TotalAmount,
		}
		if err := s.emailService.SendPaymentReminder(ctx, data); err != nil {
			// One bad recipient should not stop the rest of the batch.
			slog.Warn("failed to send payment reminder", "user_id", c.UserID, "month", month.String(), "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// mergeStatus looks up the ledger status for a key, falling back to Unpaid
// when no ledger row exists.
func mergeStatus(ledger map[string]domain.PaymentStatus, key string) domain.PaymentStatus {
	if status, ok := ledger[key]; ok {
		return status
	}
	return domain.PaymentStatusUnpaid
}

func (s *billingService) ledgerStatusByUser(ctx context.Context, month string) (map[string]domain.PaymentStatus, error) {
	records, err := s.paymentRepo.ListByMonth(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	statusByUser := make(map[string]domain.PaymentStatus, len(records))
	for _, rec := range records {
		statusByUser[rec.UserID] = rec.Status
	}
	return statusByUser, nil
}
