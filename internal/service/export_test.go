package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/google/uuid"
)

// SetNow подменяет часы сервиса в тестах
func (s *BookingService) SetNow(now func() time.Time) { s.now = now }

// SetNow подменяет часы сервиса в тестах
func (s *PaymentService) SetNow(now func() time.Time) { s.now = now }

// CommitTransition открывает тестам прямой доступ к compare-and-commit,
// чтобы детерминированно воспроизводить проигранные гонки
func (s *BookingService) CommitTransition(
	ctx context.Context,
	booking *model.Booking,
	event Event,
	to model.BookingStatus,
	actorID uuid.UUID,
	mutate func(*model.Booking),
) error {
	return s.commit(ctx, booking, event, to, actorID, mutate)
}
