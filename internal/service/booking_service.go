package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/Freeeeeet/tutorhub/internal/notify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingService владеет жизненным циклом брони: валидирует и применяет переходы,
// коммитит их через compare-and-commit и эмитит события для уведомлений.
// Любой переход либо коммитится целиком, либо не меняет ничего.
type BookingService struct {
	bookings BookingStore
	users    UserStore
	sink     notify.Sink
	logger   *zap.Logger

	holdWindow         time.Duration // Сколько бронь может висеть в accepted без оплаты
	maxPaymentAttempts int           // Подряд идущих неудач оплаты до принудительной отмены

	now func() time.Time
}

func NewBookingService(
	bookings BookingStore,
	users UserStore,
	sink notify.Sink,
	logger *zap.Logger,
	holdWindow time.Duration,
	maxPaymentAttempts int,
) *BookingService {
	return &BookingService{
		bookings:           bookings,
		users:              users,
		sink:               sink,
		logger:             logger,
		holdWindow:         holdWindow,
		maxPaymentAttempts: maxPaymentAttempts,
		now:                time.Now,
	}
}

type CreateBookingInput struct {
	StudentID   uuid.UUID
	TutorID     uuid.UUID
	Subject     model.Subject
	Level       model.Level
	ScheduledAt time.Time
	DurationMin int
	PriceMinor  int64 // 0 — цена берётся из ставки репетитора по уровню
}

// Create создаёт бронь в статусе pending. Доступно студенту (для себя)
// и родителю (для своего ребёнка).
func (s *BookingService) Create(ctx context.Context, actor Actor, input CreateBookingInput) (*model.Booking, error) {
	switch actor.Role {
	case model.RoleStudent:
		if input.StudentID == uuid.Nil {
			input.StudentID = actor.ID
		}
		if input.StudentID != actor.ID {
			return nil, fmt.Errorf("%w: student may only book for themselves", ErrUnauthorized)
		}
	case model.RoleParent:
		if !slices.Contains(actor.Children, input.StudentID) {
			return nil, fmt.Errorf("%w: parent may only book for own child", ErrUnauthorized)
		}
	default:
		return nil, fmt.Errorf("%w: only a student or parent may create a booking", ErrUnauthorized)
	}

	if !model.ValidSubject(input.Subject) {
		return nil, fmt.Errorf("%w: unknown subject %q", ErrValidation, input.Subject)
	}
	if !model.ValidLevel(input.Level) {
		return nil, fmt.Errorf("%w: unknown level %q", ErrValidation, input.Level)
	}
	if input.DurationMin <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}
	if err := model.ValidateSchedule(input.ScheduledAt, s.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	tutor, err := s.users.GetByID(ctx, input.TutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil || !tutor.IsTutor() {
		return nil, fmt.Errorf("%w: tutor not found", ErrValidation)
	}

	price := input.PriceMinor
	if price == 0 {
		rate, ok := tutor.Rates[input.Level]
		if !ok {
			return nil, fmt.Errorf("%w: tutor has no rate for level %q", ErrValidation, input.Level)
		}
		price = rate
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}

	booking := &model.Booking{
		ID:          uuid.New(),
		StudentID:   input.StudentID,
		TutorID:     input.TutorID,
		Subject:     input.Subject,
		Level:       input.Level,
		ScheduledAt: input.ScheduledAt,
		DurationMin: input.DurationMin,
		PriceMinor:  price,
		Status:      model.BookingStatusPending,
		Version:     1,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("student_id", booking.StudentID.String()),
		zap.String("tutor_id", booking.TutorID.String()),
		zap.Int64("price_minor", booking.PriceMinor),
	)

	s.emit(ctx, booking, "", actor.ID)

	return booking, nil
}

// Get возвращает бронь, если актор — её участник или админ
func (s *BookingService) Get(ctx context.Context, actor Actor, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := Allow(actor, booking, EventView); err != nil {
		return nil, err
	}
	return booking, nil
}

// ListForActor возвращает брони актора: студенту/родителю — его занятия, репетитору — назначенные
func (s *BookingService) ListForActor(ctx context.Context, actor Actor) ([]*model.Booking, error) {
	switch actor.Role {
	case model.RoleStudent:
		return s.bookings.GetByStudentID(ctx, actor.ID)
	case model.RoleTutor:
		return s.bookings.GetByTutorID(ctx, actor.ID)
	case model.RoleParent:
		var result []*model.Booking
		for _, childID := range actor.Children {
			bookings, err := s.bookings.GetByStudentID(ctx, childID)
			if err != nil {
				return nil, fmt.Errorf("get bookings by student: %w", err)
			}
			result = append(result, bookings...)
		}
		return result, nil
	}
	return nil, fmt.Errorf("%w: role %q has no booking list", ErrUnauthorized, actor.Role)
}

// Accept — репетитор принимает заявку, стартует hold window на оплату
func (s *BookingService) Accept(ctx context.Context, actor Actor, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := Allow(actor, booking, EventAccept); err != nil {
		return nil, err
	}

	acceptedAt := s.now()
	err = s.commit(ctx, booking, EventAccept, model.BookingStatusAccepted, actor.ID, func(b *model.Booking) {
		b.AcceptedAt = &acceptedAt
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking accepted",
		zap.String("booking_id", booking.ID.String()),
		zap.String("tutor_id", actor.ID.String()),
	)

	return booking, nil
}

// Decline — репетитор отклоняет заявку с обязательной причиной
func (s *BookingService) Decline(ctx context.Context, actor Actor, bookingID uuid.UUID, reason string) (*model.Booking, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: decline reason is required", ErrValidation)
	}

	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := Allow(actor, booking, EventDecline); err != nil {
		return nil, err
	}

	err = s.commit(ctx, booking, EventDecline, model.BookingStatusDeclined, actor.ID, func(b *model.Booking) {
		b.DeclineReason = reason
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking declined",
		zap.String("booking_id", booking.ID.String()),
		zap.String("reason", reason),
	)

	return booking, nil
}

// Cancel отменяет бронь. Из pending — заказчик, из confirmed — любая сторона
// до начала занятия, админ — из любого нетерминального статуса.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := Allow(actor, booking, EventCancel); err != nil {
		return nil, err
	}

	// Подтверждённое занятие нельзя отменить после его начала (на админа правило не распространяется)
	if booking.Status == model.BookingStatusConfirmed && actor.Role != model.RoleAdmin {
		if !s.now().Before(booking.ScheduledAt) {
			return nil, fmt.Errorf("%w: cancellation window closed", ErrInvalidTransition)
		}
	}

	err = s.commit(ctx, booking, EventCancel, model.BookingStatusCancelled, actor.ID, func(b *model.Booking) {
		b.Reschedule = nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("actor_id", actor.ID.String()),
	)

	return booking, nil
}

// SubmitReport — репетитор сдаёт отчёт после окончания занятия, бронь завершается
func (s *BookingService) SubmitReport(ctx context.Context, actor Actor, bookingID uuid.UUID, report string) (*model.Booking, error) {
	if report == "" {
		return nil, fmt.Errorf("%w: lesson report is required", ErrValidation)
	}

	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := Allow(actor, booking, EventComplete); err != nil {
		return nil, err
	}

	if s.now().Before(booking.EndsAt()) {
		return nil, fmt.Errorf("%w: session has not finished yet", ErrInvalidTransition)
	}

	err = s.commit(ctx, booking, EventComplete, model.BookingStatusCompleted, actor.ID, func(b *model.Booking) {
		b.LessonReport = report
		b.Reschedule = nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking completed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("tutor_id", actor.ID.String()),
	)

	return booking, nil
}

// ApplyPaymentSucceeded — системный переход accepted -> confirmed, вызывается
// платёжным координатором. Повторный вызов с тем же intent'ом — no-op.
func (s *BookingService) ApplyPaymentSucceeded(ctx context.Context, bookingID uuid.UUID, intentID string) error {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return err
	}

	// Уже применено — идемпотентный повтор callback'а
	if booking.Status == model.BookingStatusConfirmed && booking.PaymentIntentID == intentID {
		return nil
	}

	meetingLink := "https://meet.tutorhub.app/" + uuid.NewString()
	err = s.commit(ctx, booking, EventPaymentSucceeded, model.BookingStatusConfirmed, uuid.Nil, func(b *model.Booking) {
		b.IsPaid = true
		b.PaymentIntentID = intentID
		b.MeetingLink = meetingLink
		b.PaymentError = ""
		b.PaymentAttempts = 0
	})
	if err != nil {
		return err
	}

	s.logger.Info("Booking confirmed after payment",
		zap.String("booking_id", booking.ID.String()),
		zap.String("intent_id", intentID),
	)

	return nil
}

// ApplyPaymentFailed — системный переход по неудачной оплате: первая неудача
// возвращает бронь в pending, исчерпание попыток отменяет её.
func (s *BookingService) ApplyPaymentFailed(ctx context.Context, bookingID uuid.UUID, reason string) error {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return err
	}

	attempts := booking.PaymentAttempts + 1
	target := model.BookingStatusPending
	if attempts >= s.maxPaymentAttempts {
		target = model.BookingStatusCancelled
	}

	err = s.commit(ctx, booking, EventPaymentFailed, target, uuid.Nil, func(b *model.Booking) {
		b.PaymentAttempts = attempts
		b.PaymentError = reason
		b.AcceptedAt = nil
	})
	if err != nil {
		return err
	}

	s.logger.Warn("Booking payment failed",
		zap.String("booking_id", booking.ID.String()),
		zap.Int("attempts", attempts),
		zap.String("status", string(booking.Status)),
		zap.String("reason", reason),
	)

	return nil
}

// ExpireHolds отменяет брони, провисевшие в accepted дольше hold window.
// Платёж при этом не трогается — им владеет платёжный координатор.
// Возвращает число отменённых броней.
func (s *BookingService) ExpireHolds(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.holdWindow)

	expired, err := s.bookings.ListAcceptedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list expired holds: %w", err)
	}

	cancelled := 0
	for _, booking := range expired {
		err := s.commit(ctx, booking, EventExpireHold, model.BookingStatusCancelled, uuid.Nil, func(b *model.Booking) {
			b.PaymentError = ErrExpiredHold.Error()
		})
		if err != nil {
			// Проигранный CAS значит бронь уже ушла из accepted — пропускаем
			s.logger.Warn("Skip hold expiry",
				zap.String("booking_id", booking.ID.String()),
				zap.Error(err),
			)
			continue
		}

		s.logger.Info("Booking hold expired",
			zap.String("booking_id", booking.ID.String()),
		)
		cancelled++
	}

	return cancelled, nil
}

// load достаёт бронь или возвращает ErrNotFound
func (s *BookingService) load(ctx context.Context, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}
	return booking, nil
}

// commit применяет переход атомарно: проверка по таблице переходов, мутация копии,
// compare-and-commit по версии, эмиссия события. При любой ошибке бронь не меняется.
func (s *BookingService) commit(
	ctx context.Context,
	booking *model.Booking,
	event Event,
	to model.BookingStatus,
	actorID uuid.UUID,
	mutate func(*model.Booking),
) error {
	if !CanTransition(booking.Status, event, to) {
		return fmt.Errorf("%w: %s -> %s on %s", ErrInvalidTransition, booking.Status, to, event)
	}

	from := booking.Status
	updated := *booking
	if mutate != nil {
		mutate(&updated)
	}
	updated.Status = to
	updated.UpdatedAt = s.now()

	if err := s.bookings.UpdateCAS(ctx, &updated, booking.Version); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}

	*booking = updated
	s.emit(ctx, booking, from, actorID)

	return nil
}

// emit шлёт событие в sink; ошибка доставки логируется, но переход уже закоммичен
func (s *BookingService) emit(ctx context.Context, booking *model.Booking, from model.BookingStatus, actorID uuid.UUID) {
	event := model.BookingEvent{
		BookingID:  booking.ID,
		StudentID:  booking.StudentID,
		TutorID:    booking.TutorID,
		FromStatus: from,
		ToStatus:   booking.Status,
		ActorID:    actorID,
		OccurredAt: s.now(),
	}

	if err := s.sink.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish booking event",
			zap.String("booking_id", booking.ID.String()),
			zap.Error(err),
		)
	}
}
