package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/Freeeeeet/tutorhub/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `
	id, booking_id, amount_minor, currency, status, intent_id, fail_reason,
	created_at, updated_at
`

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create создаёт новый платёж
func (r *PaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, amount_minor, currency, status, intent_id, fail_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(
		ctx, query,
		payment.ID,
		payment.BookingID,
		payment.AmountMinor,
		payment.Currency,
		payment.Status,
		payment.IntentID,
		payment.FailReason,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

// GetByID получает платёж по ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.get(ctx, query, id)
}

// GetByIntentID получает платёж по идентификатору intent'а шлюза
func (r *PaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE intent_id = $1`
	return r.get(ctx, query, intentID)
}

// GetActiveByBookingID получает активный (pending или succeeded) платёж брони
func (r *PaymentRepository) GetActiveByBookingID(ctx context.Context, bookingID uuid.UUID) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE booking_id = $1 AND status IN ('pending', 'succeeded')
		LIMIT 1`
	return r.get(ctx, query, bookingID)
}

// ListByBookingID получает все платежи брони, включая неудачные (аудит)
func (r *PaymentRepository) ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

// UpdateCAS коммитит платёж только из ожидаемого статуса, иначе ErrStaleState.
// Благодаря этому повторный callback шлюза не применяет исход дважды.
func (r *PaymentRepository) UpdateCAS(ctx context.Context, payment *model.Payment, expectedStatus model.PaymentStatus) error {
	query := `
		UPDATE payments
		SET status = $1, intent_id = $2, fail_reason = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`

	tag, err := r.pool.Exec(
		ctx, query,
		payment.Status,
		payment.IntentID,
		payment.FailReason,
		payment.UpdatedAt,
		payment.ID,
		expectedStatus,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment %s expected status %s", service.ErrStaleState, payment.ID, expectedStatus)
	}

	return nil
}

func (r *PaymentRepository) get(ctx context.Context, query string, arg any) (*model.Payment, error) {
	payment, err := scanPayment(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return payment, nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var payment model.Payment
	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.AmountMinor,
		&payment.Currency,
		&payment.Status,
		&payment.IntentID,
		&payment.FailReason,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
