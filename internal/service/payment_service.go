package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/gateway"
	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService — координатор платежей: связывает бронь с intent'ом внешнего шлюза
// и превращает асинхронные callback'и шлюза в переходы брони. Callback'и могут
// приходить повторно и в любом порядке, поэтому Confirm — идемпотентный редьюсер
// по intent id, где succeeded — неподвижная точка.
type PaymentService struct {
	payments PaymentStore
	bookings *BookingService
	gw       gateway.Gateway
	currency string
	logger   *zap.Logger

	now func() time.Time
}

func NewPaymentService(
	payments PaymentStore,
	bookings *BookingService,
	gw gateway.Gateway,
	currency string,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		bookings: bookings,
		gw:       gw,
		currency: currency,
		logger:   logger,
		now:      time.Now,
	}
}

// Initiate создаёт платёж по принятой брони и запрашивает intent у шлюза.
// Возвращает хэндл intent'а для клиентской стороны. Таймаут задаёт вызывающий через ctx.
func (s *PaymentService) Initiate(ctx context.Context, actor Actor, bookingID uuid.UUID) (*gateway.Intent, error) {
	booking, err := s.bookings.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	// Платит заказчик: студент или его родитель
	if actor.Role != model.RoleAdmin && !actor.OwnsBooking(booking) {
		return nil, fmt.Errorf("%w: only the booking owner may pay", ErrUnauthorized)
	}

	if booking.Status != model.BookingStatusAccepted {
		return nil, fmt.Errorf("%w: payment allowed only for accepted bookings, got %s", ErrInvalidTransition, booking.Status)
	}

	active, err := s.payments.GetActiveByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get active payment: %w", err)
	}
	if active != nil {
		return nil, fmt.Errorf("%w: payment %s", ErrPaymentAlreadyActive, active.ID)
	}

	payment := &model.Payment{
		ID:          uuid.New(),
		BookingID:   booking.ID,
		AmountMinor: booking.PriceMinor,
		Currency:    s.currency,
		Status:      model.PaymentStatusPending,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	// id платежа служит ключом идемпотентности: повтор после сетевой ошибки не создаст второй intent
	intent, err := s.gw.CreateIntent(ctx, payment.AmountMinor, payment.Currency, payment.ID.String())
	if err != nil {
		s.failPayment(ctx, payment, "gateway unavailable")
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	payment.IntentID = intent.ID
	if err := s.payments.UpdateCAS(ctx, payment, model.PaymentStatusPending); err != nil {
		return nil, fmt.Errorf("attach intent: %w", err)
	}

	s.logger.Info("Payment initiated",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("intent_id", intent.ID),
		zap.Int64("amount_minor", payment.AmountMinor),
	)

	return intent, nil
}

// Confirm — callback сверки от шлюза. Безопасен при повторных вызовах:
// состояние платежа проверяется перед каждой мутацией, бронь не переводится дважды.
func (s *PaymentService) Confirm(ctx context.Context, intentID string, outcome gateway.Outcome) error {
	payment, err := s.payments.GetByIntentID(ctx, intentID)
	if err != nil {
		return fmt.Errorf("get payment by intent: %w", err)
	}
	if payment == nil {
		return fmt.Errorf("%w: intent %s", ErrNotFound, intentID)
	}

	switch outcome {
	case gateway.OutcomeSucceeded:
		return s.confirmSucceeded(ctx, payment, intentID)
	case gateway.OutcomeFailed:
		return s.confirmFailed(ctx, payment)
	}
	return fmt.Errorf("%w: unknown outcome %q", ErrValidation, outcome)
}

func (s *PaymentService) confirmSucceeded(ctx context.Context, payment *model.Payment, intentID string) error {
	switch payment.Status {
	case model.PaymentStatusPending:
		if err := s.payments.UpdateCAS(ctx, markSucceeded(payment, s.now()), model.PaymentStatusPending); err != nil {
			if errors.Is(err, ErrStaleState) {
				// Параллельный дубль callback'а уже применил исход — перечитываем и продолжаем
				refreshed, rerr := s.payments.GetByIntentID(ctx, intentID)
				if rerr != nil {
					return fmt.Errorf("refetch payment: %w", rerr)
				}
				if refreshed == nil || refreshed.Status != model.PaymentStatusSucceeded {
					return nil
				}
			} else {
				return fmt.Errorf("mark payment succeeded: %w", err)
			}
		}
	case model.PaymentStatusSucceeded:
		// Неподвижная точка: платёж уже успешен, осталось досогласовать бронь
	default:
		// Поздний success после зафиксированной неудачи: бронь могла уйти дальше,
		// автоматически не применяем, оставляем на ручную сверку
		s.logger.Warn("Late success callback for non-pending payment",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
		)
		return nil
	}

	// Окно частичного сбоя: платёж успешен, а бронь не переведена (прошлый вызов
	// упал между записями). Повторный Confirm долечивает состояние.
	booking, err := s.bookings.load(ctx, payment.BookingID)
	if err != nil {
		return err
	}

	switch booking.Status {
	case model.BookingStatusConfirmed:
		return nil
	case model.BookingStatusAccepted:
		if err := s.bookings.ApplyPaymentSucceeded(ctx, payment.BookingID, payment.IntentID); err != nil {
			return fmt.Errorf("apply payment success: %w", err)
		}
		return nil
	default:
		s.logger.Warn("Payment succeeded but booking left accepted state",
			zap.String("payment_id", payment.ID.String()),
			zap.String("booking_id", booking.ID.String()),
			zap.String("booking_status", string(booking.Status)),
		)
		return nil
	}
}

func (s *PaymentService) confirmFailed(ctx context.Context, payment *model.Payment) error {
	// Повторная доставка либо конфликт с терминальным succeeded — не применяем дважды
	if payment.Status != model.PaymentStatusPending {
		return nil
	}

	if err := s.payments.UpdateCAS(ctx, markFailed(payment, "gateway reported failure", s.now()), model.PaymentStatusPending); err != nil {
		if errors.Is(err, ErrStaleState) {
			return nil
		}
		return fmt.Errorf("mark payment failed: %w", err)
	}

	if err := s.bookings.ApplyPaymentFailed(ctx, payment.BookingID, "payment failed"); err != nil {
		return fmt.Errorf("apply payment failure: %w", err)
	}

	return nil
}

// Refund возвращает успешный платёж отменённой брони. Из completed возврат невозможен.
func (s *PaymentService) Refund(ctx context.Context, actor Actor, paymentID uuid.UUID) (*model.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment %s", ErrNotFound, paymentID)
	}

	booking, err := s.bookings.load(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}

	if actor.Role != model.RoleAdmin && !actor.OwnsBooking(booking) {
		return nil, fmt.Errorf("%w: only the booking owner or admin may refund", ErrUnauthorized)
	}
	if payment.Status != model.PaymentStatusSucceeded {
		return nil, fmt.Errorf("%w: only a succeeded payment can be refunded, got %s", ErrInvalidTransition, payment.Status)
	}
	if booking.Status != model.BookingStatusCancelled {
		return nil, fmt.Errorf("%w: refund allowed only for cancelled bookings, got %s", ErrInvalidTransition, booking.Status)
	}

	if err := s.gw.RefundIntent(ctx, payment.IntentID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	payment.Status = model.PaymentStatusRefunded
	payment.UpdatedAt = s.now()
	if err := s.payments.UpdateCAS(ctx, payment, model.PaymentStatusSucceeded); err != nil {
		return nil, fmt.Errorf("mark payment refunded: %w", err)
	}

	// Деньги вернулись — флаг оплаты на отменённой брони снимается (статус не меняется)
	updated := *booking
	updated.IsPaid = false
	updated.UpdatedAt = s.now()
	if err := s.bookings.bookings.UpdateCAS(ctx, &updated, booking.Version); err != nil {
		return nil, fmt.Errorf("clear paid flag: %w", err)
	}

	s.logger.Info("Payment refunded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", booking.ID.String()),
	)

	return payment, nil
}

// ListForBooking — аудит всех попыток оплаты по брони
func (s *PaymentService) ListForBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) ([]*model.Payment, error) {
	booking, err := s.bookings.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := Allow(actor, booking, EventView); err != nil {
		return nil, err
	}
	return s.payments.ListByBookingID(ctx, bookingID)
}

// failPayment фиксирует неудачу платежа и прогоняет политику неудачной оплаты по броне
func (s *PaymentService) failPayment(ctx context.Context, payment *model.Payment, reason string) {
	if err := s.payments.UpdateCAS(ctx, markFailed(payment, reason, s.now()), model.PaymentStatusPending); err != nil {
		s.logger.Error("Failed to mark payment failed",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
		return
	}
	if err := s.bookings.ApplyPaymentFailed(ctx, payment.BookingID, reason); err != nil {
		s.logger.Error("Failed to apply payment failure",
			zap.String("booking_id", payment.BookingID.String()),
			zap.Error(err),
		)
	}
}

func markSucceeded(payment *model.Payment, now time.Time) *model.Payment {
	updated := *payment
	updated.Status = model.PaymentStatusSucceeded
	updated.UpdatedAt = now
	return &updated
}

func markFailed(payment *model.Payment, reason string, now time.Time) *model.Payment {
	updated := *payment
	updated.Status = model.PaymentStatusFailed
	updated.FailReason = reason
	updated.UpdatedAt = now
	return &updated
}
