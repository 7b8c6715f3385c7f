package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/google/uuid"
)

// BookingStore — durable-хранилище броней. Get* возвращают (nil, nil) если записи нет.
// UpdateCAS коммитит запись только при совпадении версии, иначе ErrStaleState.
type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*model.Booking, error)
	GetByTutorID(ctx context.Context, tutorID uuid.UUID) ([]*model.Booking, error)
	ListAcceptedBefore(ctx context.Context, cutoff time.Time) ([]*model.Booking, error)
	UpdateCAS(ctx context.Context, booking *model.Booking, expectedVersion int64) error
}

// PaymentStore — durable-хранилище платежей.
// UpdateCAS коммитит запись только из ожидаемого статуса, иначе ErrStaleState.
type PaymentStore interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	GetByIntentID(ctx context.Context, intentID string) (*model.Payment, error)
	GetActiveByBookingID(ctx context.Context, bookingID uuid.UUID) (*model.Payment, error)
	ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*model.Payment, error)
	UpdateCAS(ctx context.Context, payment *model.Payment, expectedStatus model.PaymentStatus) error
}

// UserStore — хранилище пользователей
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListChildIDs(ctx context.Context, parentID uuid.UUID) ([]uuid.UUID, error)
}
