package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/Freeeeeet/tutorhub/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const bookingColumns = `
	id, student_id, tutor_id, subject, level, scheduled_at, duration_min,
	price_minor, currency, status, payment_intent_id, is_paid, meeting_link,
	payment_attempts, payment_error, lesson_report, decline_reason,
	reschedule, accepted_at, version, created_at, updated_at
`

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// Create создаёт новую бронь
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (
			id, student_id, tutor_id, subject, level, scheduled_at, duration_min,
			price_minor, currency, status, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(
		ctx, query,
		booking.ID,
		booking.StudentID,
		booking.TutorID,
		booking.Subject,
		booking.Level,
		booking.ScheduledAt,
		booking.DurationMin,
		booking.PriceMinor,
		booking.Currency,
		booking.Status,
		booking.Version,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает бронь по ID
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// GetByStudentID получает все брони студента
func (r *BookingRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE student_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, studentID)
}

// GetByTutorID получает все брони репетитора
func (r *BookingRepository) GetByTutorID(ctx context.Context, tutorID uuid.UUID) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE tutor_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, tutorID)
}

// ListAcceptedBefore получает accepted-брони, принятые раньше отсечки (для hold window)
func (r *BookingRepository) ListAcceptedBefore(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = 'accepted' AND accepted_at < $1
		ORDER BY accepted_at ASC`
	return r.list(ctx, query, cutoff)
}

// UpdateCAS коммитит бронь только если версия в базе совпадает с ожидаемой.
// При несовпадении возвращает ErrStaleState — вызывающий перечитывает и повторяет.
func (r *BookingRepository) UpdateCAS(ctx context.Context, booking *model.Booking, expectedVersion int64) error {
	rescheduleJSON, err := marshalReschedule(booking.Reschedule)
	if err != nil {
		return err
	}

	query := `
		UPDATE bookings
		SET scheduled_at = $1, status = $2, payment_intent_id = $3, is_paid = $4,
			meeting_link = $5, payment_attempts = $6, payment_error = $7,
			lesson_report = $8, decline_reason = $9, reschedule = $10,
			accepted_at = $11, version = $12, updated_at = $13
		WHERE id = $14 AND version = $15
	`

	tag, err := r.pool.Exec(
		ctx, query,
		booking.ScheduledAt,
		booking.Status,
		booking.PaymentIntentID,
		booking.IsPaid,
		booking.MeetingLink,
		booking.PaymentAttempts,
		booking.PaymentError,
		booking.LessonReport,
		booking.DeclineReason,
		rescheduleJSON,
		booking.AcceptedAt,
		expectedVersion+1,
		booking.UpdatedAt,
		booking.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: booking %s version %d", service.ErrStaleState, booking.ID, expectedVersion)
	}

	booking.Version = expectedVersion + 1
	return nil
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var booking model.Booking
	var rescheduleJSON []byte

	err := row.Scan(
		&booking.ID,
		&booking.StudentID,
		&booking.TutorID,
		&booking.Subject,
		&booking.Level,
		&booking.ScheduledAt,
		&booking.DurationMin,
		&booking.PriceMinor,
		&booking.Currency,
		&booking.Status,
		&booking.PaymentIntentID,
		&booking.IsPaid,
		&booking.MeetingLink,
		&booking.PaymentAttempts,
		&booking.PaymentError,
		&booking.LessonReport,
		&booking.DeclineReason,
		&rescheduleJSON,
		&booking.AcceptedAt,
		&booking.Version,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(rescheduleJSON) > 0 {
		var request model.RescheduleRequest
		if err := json.Unmarshal(rescheduleJSON, &request); err != nil {
			return nil, fmt.Errorf("unmarshal reschedule: %w", err)
		}
		booking.Reschedule = &request
	}

	return &booking, nil
}

func marshalReschedule(request *model.RescheduleRequest) ([]byte, error) {
	if request == nil {
		return nil, nil
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal reschedule: %w", err)
	}
	return payload, nil
}
