package domain

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// monthKeyPattern matches the wire format for a billing month, e.g. "2025-08".
var monthKeyPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// MonthKey is the calendar year-month that partitions all billing. It is
// derived from an event's end time, not from when a member opted in.
type MonthKey struct {
	Year  int
	Month time.Month
}

// ParseMonthKey parses a "YYYY-MM" string into a MonthKey. Anything that does
// not match the pattern or names an impossible month is rejected with
// ErrInvalidInput so malformed months never reach the aggregation queries.
func ParseMonthKey(s string) (MonthKey, error) {
	m := monthKeyPattern.FindStringSubmatch(s)
	if m == nil {
		return MonthKey{}, fmt.Errorf("%w: month must be in YYYY-MM format", ErrInvalidInput)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return MonthKey{}, fmt.Errorf("%w: month must be between 01 and 12", ErrInvalidInput)
	}
	if year == 0 {
		return MonthKey{}, fmt.Errorf("%w: year must not be zero", ErrInvalidInput)
	}
	return MonthKey{Year: year, Month: time.Month(month)}, nil
}

// MonthKeyOf returns the MonthKey of the given instant in local time.
func MonthKeyOf(t time.Time) MonthKey {
	local := t.Local()
	return MonthKey{Year: local.Year(), Month: local.Month()}
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Window returns the half-open interval [start of month, start of next month)
// in local time. Aggregation includes events whose end time falls in it.
func (k MonthKey) Window() (from, to time.Time) {
	from = time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.Local)
	to = from.AddDate(0, 1, 0)
	return from, to
}

// Contains reports whether t falls inside the month's window.
func (k MonthKey) Contains(t time.Time) bool {
	from, to := k.Window()
	return !t.Before(from) && t.Before(to)
}

// PaymentStatus is the manually maintained settled state of a user's month.
type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "Paid"
	PaymentStatusUnpaid PaymentStatus = "Unpaid"
)

// ParsePaymentStatus validates a status value from a request body.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentStatusPaid, PaymentStatusUnpaid:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("%w: paymentStatus must be %q or %q", ErrInvalidInput, PaymentStatusPaid, PaymentStatusUnpaid)
}

// PaymentRecord is a ledger row, unique per (user, month). The stored
// TotalAmount is informational only: summaries always show the freshly
// aggregated total, never the persisted one.
type PaymentRecord struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	Month       string        `json:"month"`
	TotalAmount float64       `json:"totalAmount"`
	Status      PaymentStatus `json:"paymentStatus"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// UserMonthlyCharge is one row of the admin monthly summary.
type UserMonthlyCharge struct {
	UserID      string        `json:"userId"`
	UserName    string        `json:"userName"`
	TotalAmount float64       `json:"totalAmount"`
	Status      PaymentStatus `json:"paymentStatus"`
}

// MonthlyCharge is one row of a member's payment history.
type MonthlyCharge struct {
	Month       string        `json:"month"`
	TotalAmount float64       `json:"totalAmount"`
	Status      PaymentStatus `json:"paymentStatus"`
}

// ChargedEvent is an event contributing to a monthly statement.
type ChargedEvent struct {
	Name  string    `json:"name"`
	Price float64   `json:"price"`
	EndAt time.Time `json:"endAt"`
}

// MonthlyStatement is a member's view of a single month: the computed total,
// the reconciled status, and the events that produced the total.
type MonthlyStatement struct {
	UserID      string         `json:"userId"`
	UserName    string         `json:"userName"`
	Month       string         `json:"month"`
	TotalAmount float64        `json:"totalAmount"`
	Status      PaymentStatus  `json:"paymentStatus"`
	Events      []ChargedEvent `json:"events"`
}

// PaymentRepository defines the interface for payment ledger storage.
// Upsert must be a single atomic store operation keyed on (user, month); the
// stored total amount is left untouched when a row already exists.
type PaymentRepository interface {
	Upsert(ctx context.Context, rec *PaymentRecord) error
	GetByUserAndMonth(ctx context.Context, userID, month string) (*PaymentRecord, error)
	ListByMonth(ctx context.Context, month string) ([]*PaymentRecord, error)
	ListByUserAndMonths(ctx context.Context, userID string, months []string) ([]*PaymentRecord, error)
}

// BillingService defines the monthly aggregation and reconciliation logic.
type BillingService interface {
	// MonthlySummary computes, for every user with at least one participation
	// in an event ending inside the month, the summed event prices merged
	// with the ledger status. Users without qualifying participations are
	// absent from the result.
	MonthlySummary(ctx context.Context, month MonthKey) ([]*UserMonthlyCharge, error)
	// PaymentHistory returns one reconciled charge per distinct month of the
	// user's participations, most recent month first. A user with no
	// participations gets an empty history.
	PaymentHistory(ctx context.Context, userID string) ([]*MonthlyCharge, error)
	// MonthlyStatement returns the user's statement for one month. A month
	// with no qualifying events yields a zero total, not an error.
	MonthlyStatement(ctx context.Context, userID string, month MonthKey) (*MonthlyStatement, error)
	// SetPaymentStatus upserts the ledger row for (user, month). Repeated
	// calls with the same arguments converge to the same stored state.
	SetPaymentStatus(ctx context.Context, userID string, month MonthKey, status PaymentStatus) (*PaymentRecord, error)
	// SendPaymentReminders emails every user left Unpaid in the month's
	// summary and returns the number of reminders sent.
	SendPaymentReminders(ctx context.Context, month MonthKey) (int, error)
}
