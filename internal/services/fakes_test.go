package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"clubledger/internal/domain"
)

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	byID   map[string]*domain.Event
	order  []string
	nextID int
	err    error // if set, every method returns this error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		byID:   make(map[string]*domain.Event),
		nextID: 1,
	}
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if f.err != nil {
		return f.err
	}
	if e.ID == "" {
		e.ID = fmt.Sprintf("ev-%d", f.nextID)
		f.nextID++
	}
	f.byID[e.ID] = e
	f.order = append(f.order, e.ID)
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) Update(ctx context.Context, id string, upd domain.EventUpdate) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Name != nil {
		e.Name = *upd.Name
	}
	if upd.Price != nil {
		e.Price = *upd.Price
	}
	if upd.EndAt != nil {
		e.EndAt = *upd.EndAt
	}
	e.UpdatedAt = time.Now()
	return e, nil
}

func (f *fakeEventRepo) SetStatus(ctx context.Context, id string, status domain.EventStatus) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.Status = status
	e.UpdatedAt = time.Now()
	return e, nil
}

// list returns events in insertion order, sorted by EndAt ascending to match
// the repository ordering.
func (f *fakeEventRepo) list(filter func(*domain.Event) bool) []*domain.Event {
	var out []*domain.Event
	for _, id := range f.order {
		if e := f.byID[id]; filter(e) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b *domain.Event) int {
		return a.EndAt.Compare(b.EndAt)
	})
	if out == nil {
		return []*domain.Event{}
	}
	return out
}

func (f *fakeEventRepo) ListAll(ctx context.Context) ([]*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.list(func(*domain.Event) bool { return true }), nil
}

func (f *fakeEventRepo) ListEndingBetween(ctx context.Context, from, to time.Time) ([]*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.list(func(e *domain.Event) bool {
		return !e.EndAt.Before(from) && e.EndAt.Before(to)
	}), nil
}

func (f *fakeEventRepo) ListOpenEndingBetween(ctx context.Context, from, to time.Time) ([]*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.list(func(e *domain.Event) bool {
		return e.Status == domain.EventStatusOpen && !e.EndAt.Before(from) && e.EndAt.Before(to)
	}), nil
}

// fakeParticipationRepo is an in-memory ParticipationRepository for tests.
type fakeParticipationRepo struct {
	parts  []*domain.Participation
	events *fakeEventRepo // joined views resolve events here
	users  *fakeUserRepo  // joined views resolve users here
	nextID int
	err    error
}

func newFakeParticipationRepo(events *fakeEventRepo, users *fakeUserRepo) *fakeParticipationRepo {
	return &fakeParticipationRepo{events: events, users: users, nextID: 1}
}

func (f *fakeParticipationRepo) Create(ctx context.Context, p *domain.Participation) error {
	if f.err != nil {
		return f.err
	}
	if p.ID == "" {
		p.ID = fmt.Sprintf("part-%d", f.nextID)
		f.nextID++
	}
	f.parts = append(f.parts, p)
	return nil
}

func (f *fakeParticipationRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Participation, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.parts {
		if p.EventID == eventID && p.UserID == userID {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeParticipationRepo) ListByEventIDs(ctx context.Context, eventIDs []string) ([]*domain.Participation, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*domain.Participation{}
	for _, p := range f.parts {
		if slices.Contains(eventIDs, p.EventID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeParticipationRepo) ListByUserWithEvent(ctx context.Context, userID string) ([]*domain.ParticipationWithEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*domain.ParticipationWithEvent{}
	for _, p := range f.parts {
		if p.UserID != userID {
			continue
		}
		e, ok := f.events.byID[p.EventID]
		if !ok {
			continue
		}
		out = append(out, &domain.ParticipationWithEvent{Participation: p, Event: e})
	}
	// Event end time ascending, to match the repository ordering.
	slices.SortStableFunc(out, func(a, b *domain.ParticipationWithEvent) int {
		return a.Event.EndAt.Compare(b.Event.EndAt)
	})
	return out, nil
}

func (f *fakeParticipationRepo) ListByEventWithUser(ctx context.Context, eventID string) ([]*domain.ParticipationWithUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*domain.ParticipationWithUser{}
	for _, p := range f.parts {
		if p.EventID != eventID {
			continue
		}
		u, ok := f.users.byID[p.UserID]
		if !ok {
			continue
		}
		out = append(out, &domain.ParticipationWithUser{Participation: p, User: u})
	}
	return out, nil
}

func (f *fakeParticipationRepo) CountByEventIDs(ctx context.Context, eventIDs []string) (map[string]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	counts := make(map[string]int)
	for _, p := range f.parts {
		if slices.Contains(eventIDs, p.EventID) {
			counts[p.EventID]++
		}
	}
	return counts, nil
}

// fakeUserRepo is an in-memory UserRepository for tests.
type fakeUserRepo struct {
	byID map[string]*domain.User
	err  error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	f := &fakeUserRepo{byID: make(map[string]*domain.User)}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	if f.err != nil {
		return f.err
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) ListByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*domain.User{}
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) AssignRole(ctx context.Context, userID, roleID string) error {
	return f.err
}

// fakePaymentRepo is an in-memory PaymentRepository keyed on (user, month).
type fakePaymentRepo struct {
	byKey map[string]*domain.PaymentRecord
	err   error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byKey: make(map[string]*domain.PaymentRecord)}
}

func paymentKey(userID, month string) string {
	return userID + "|" + month
}

func (f *fakePaymentRepo) Upsert(ctx context.Context, rec *domain.PaymentRecord) error {
	if f.err != nil {
		return f.err
	}
	key := paymentKey(rec.UserID, rec.Month)
	if existing, ok := f.byKey[key]; ok {
		// Conflict path keeps the stored row's identity and amount.
		existing.Status = rec.Status
		existing.UpdatedAt = rec.UpdatedAt
		rec.ID = existing.ID
		rec.TotalAmount = existing.TotalAmount
		return nil
	}
	stored := *rec
	f.byKey[key] = &stored
	return nil
}

func (f *fakePaymentRepo) GetByUserAndMonth(ctx context.Context, userID, month string) (*domain.PaymentRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if rec, ok := f.byKey[paymentKey(userID, month)]; ok {
		return rec, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakePaymentRepo) ListByMonth(ctx context.Context, month string) ([]*domain.PaymentRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*domain.PaymentRecord{}
	for _, rec := range f.byKey {
		if rec.Month == month {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) ListByUserAndMonths(ctx context.Context, userID string, months []string) ([]*domain.PaymentRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*domain.PaymentRecord{}
	for _, month := range months {
		if rec, ok := f.byKey[paymentKey(userID, month)]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// fakeEmailService records reminder sends.
type fakeEmailService struct {
	sent    []*domain.PaymentReminderEmailData
	failFor map[string]error // keyed by recipient email
}

func newFakeEmailService() *fakeEmailService {
	return &fakeEmailService{failFor: make(map[string]error)}
}

func (f *fakeEmailService) SendPaymentReminder(ctx context.Context, data *domain.PaymentReminderEmailData) error {
	if err, ok := f.failFor[data.Email]; ok {
		return err
	}
	f.sent = append(f.sent, data)
	return nil
}
