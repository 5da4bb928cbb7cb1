package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"clubledger/internal/domain"
)

type paymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(db *sql.DB) domain.PaymentRepository {
	return &paymentRepository{
		DB: db,
	}
}

// Upsert writes the (user, month) ledger row in a single statement so two
// racing status updates cannot lose each other's write. On conflict only the
// status and updated_at change; the stored total amount is retained.
func (r *paymentRepository) Upsert(ctx context.Context, rec *domain.PaymentRecord) error {
	query := `
		INSERT INTO payments (id, user_id, month, total_amount, payment_status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, month) DO UPDATE
		SET payment_status = EXCLUDED.payment_status, updated_at = EXCLUDED.updated_at
		RETURNING id, total_amount
	`
	return r.DB.QueryRowContext(ctx, query, rec.ID, rec.UserID, rec.Month, rec.TotalAmount, rec.Status, rec.UpdatedAt).
		Scan(&rec.ID, &rec.TotalAmount)
}

func (r *paymentRepository) GetByUserAndMonth(ctx context.Context, userID, month string) (*domain.PaymentRecord, error) {
	query := `
		SELECT id, user_id, month, total_amount, payment_status, updated_at
		FROM payments
		WHERE user_id = $1 AND month = $2
	`
	rec := &domain.PaymentRecord{}
	err := r.DB.QueryRowContext(ctx, query, userID, month).
		Scan(&rec.ID, &rec.UserID, &rec.Month, &rec.TotalAmount, &rec.Status, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *paymentRepository) ListByMonth(ctx context.Context, month string) ([]*domain.PaymentRecord, error) {
	query := `
		SELECT id, user_id, month, total_amount, payment_status, updated_at
		FROM payments
		WHERE month = $1
	`
	return r.queryRecords(ctx, query, month)
}

func (r *paymentRepository) ListByUserAndMonths(ctx context.Context, userID string, months []string) ([]*domain.PaymentRecord, error) {
	if len(months) == 0 {
		return []*domain.PaymentRecord{}, nil
	}
	query := `
		SELECT id, user_id, month, total_amount, payment_status, updated_at
		FROM payments
		WHERE user_id = $1 AND month = ANY($2)
	`
	return r.queryRecords(ctx, query, userID, pq.Array(months))
}

func (r *paymentRepository) queryRecords(ctx context.Context, query string, args ...any) ([]*domain.PaymentRecord, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*domain.PaymentRecord, 0)
	for rows.Next() {
		rec := &domain.PaymentRecord{}
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Month, &rec.TotalAmount, &rec.Status, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
