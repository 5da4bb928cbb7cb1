package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"clubledger/internal/domain"
)

type participationRepository struct {
	DB *sql.DB
}

func NewParticipationRepository(db *sql.DB) domain.ParticipationRepository {
	return &participationRepository{
		DB: db,
	}
}

func (r *participationRepository) Create(ctx context.Context, p *domain.Participation) error {
	query := `
		INSERT INTO participations (id, event_id, user_id, opted_in_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.DB.ExecContext(ctx, query, p.ID, p.EventID, p.UserID, p.OptedInAt)
	return err
}

func (r *participationRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Participation, error) {
	query := `
		SELECT id, event_id, user_id, opted_in_at
		FROM participations
		WHERE event_id = $1 AND user_id = $2
	`
	p := &domain.Participation{}
	err := r.DB.QueryRowContext(ctx, query, eventID, userID).Scan(&p.ID, &p.EventID, &p.UserID, &p.OptedInAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *participationRepository) ListByEventIDs(ctx context.Context, eventIDs []string) ([]*domain.Participation, error) {
	if len(eventIDs) == 0 {
		return []*domain.Participation{}, nil
	}
	query := `
		SELECT id, event_id, user_id, opted_in_at
		FROM participations
		WHERE event_id = ANY($1)
		ORDER BY opted_in_at ASC, id ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(eventIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parts := make([]*domain.Participation, 0)
	for rows.Next() {
		p := &domain.Participation{}
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &p.OptedInAt); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (r *participationRepository) ListByUserWithEvent(ctx context.Context, userID string) ([]*domain.ParticipationWithEvent, error) {
	query := `
		SELECT p.id, p.event_id, p.user_id, p.opted_in_at,
		       e.id, e.name, e.price, e.end_at, e.status, e.created_at, e.updated_at
		FROM participations p
		INNER JOIN events e ON e.id = p.event_id
		WHERE p.user_id = $1
		ORDER BY e.end_at ASC, p.opted_in_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*domain.ParticipationWithEvent, 0)
	for rows.Next() {
		p := &domain.Participation{}
		e := &domain.Event{}
		if err := rows.Scan(
			&p.ID, &p.EventID, &p.UserID, &p.OptedInAt,
			&e.ID, &e.Name, &e.Price, &e.EndAt, &e.Status, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &domain.ParticipationWithEvent{Participation: p, Event: e})
	}
	return result, rows.Err()
}

func (r *participationRepository) ListByEventWithUser(ctx context.Context, eventID string) ([]*domain.ParticipationWithUser, error) {
	query := `
		SELECT p.id, p.event_id, p.user_id, p.opted_in_at,
		       u.id, u.email, u.name, u.created_at, u.updated_at
		FROM participations p
		INNER JOIN users u ON u.id = p.user_id
		WHERE p.event_id = $1
		ORDER BY p.opted_in_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*domain.ParticipationWithUser, 0)
	for rows.Next() {
		p := &domain.Participation{}
		u := &domain.User{}
		if err := rows.Scan(
			&p.ID, &p.EventID, &p.UserID, &p.OptedInAt,
			&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &domain.ParticipationWithUser{Participation: p, User: u})
	}
	return result, rows.Err()
}

func (r *participationRepository) CountByEventIDs(ctx context.Context, eventIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(eventIDs) == 0 {
		return counts, nil
	}
	query := `
		SELECT event_id, COUNT(*)
		FROM participations
		WHERE event_id = ANY($1)
		GROUP BY event_id
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(eventIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var eventID string
		var count int
		if err := rows.Scan(&eventID, &count); err != nil {
			return nil, err
		}
		counts[eventID] = count
	}
	return counts, rows.Err()
}
