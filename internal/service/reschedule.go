package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RescheduleDecision — ответ контрагента на предложение о переносе
type RescheduleDecision string

const (
	RescheduleApprove RescheduleDecision = "approve"
	RescheduleDecline RescheduleDecision = "decline"
)

// ProposeReschedule открывает переговоры о переносе подтверждённого занятия.
// Одновременно может быть открыто не более одного предложения на бронь.
func (s *BookingService) ProposeReschedule(ctx context.Context, actor Actor, bookingID uuid.UUID, newTime time.Time) (*model.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := Allow(actor, booking, EventPropose); err != nil {
		return nil, err
	}

	if !EventAllowed(booking.Status, EventPropose) {
		return nil, fmt.Errorf("%w: reschedule allowed only for confirmed bookings, got %s", ErrInvalidTransition, booking.Status)
	}
	if booking.Reschedule != nil {
		return nil, fmt.Errorf("%w: booking %s", ErrReschedulePending, booking.ID)
	}
	if err := model.ValidateSchedule(newTime, s.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	request := &model.RescheduleRequest{
		RequestedBy: actor.ID,
		ProposedAt:  newTime,
		Status:      model.RescheduleStatusPending,
		CreatedAt:   s.now(),
	}

	err = s.commit(ctx, booking, EventPropose, model.BookingStatusConfirmed, actor.ID, func(b *model.Booking) {
		b.Reschedule = request
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reschedule proposed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("requested_by", actor.ID.String()),
		zap.Time("proposed_at", newTime),
	)

	return booking, nil
}

// RespondReschedule — контрагент инициатора отвечает на предложение.
// Approve коммитит новое время занятия, decline требует причину; в обоих
// случаях открытое предложение закрывается.
func (s *BookingService) RespondReschedule(ctx context.Context, actor Actor, bookingID uuid.UUID, decision RescheduleDecision, reason string) (*model.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Reschedule == nil {
		return nil, fmt.Errorf("%w: no open reschedule request", ErrInvalidTransition)
	}
	if err := Allow(actor, booking, EventRespond); err != nil {
		return nil, err
	}
	if !EventAllowed(booking.Status, EventRespond) {
		return nil, fmt.Errorf("%w: reschedule allowed only for confirmed bookings, got %s", ErrInvalidTransition, booking.Status)
	}

	switch decision {
	case RescheduleApprove:
		proposed := booking.Reschedule.ProposedAt
		err = s.commit(ctx, booking, EventRespond, model.BookingStatusConfirmed, actor.ID, func(b *model.Booking) {
			b.ScheduledAt = proposed
			b.Reschedule = nil
		})
		if err != nil {
			return nil, err
		}

		s.logger.Info("Reschedule approved",
			zap.String("booking_id", booking.ID.String()),
			zap.String("responded_by", actor.ID.String()),
			zap.Time("scheduled_at", proposed),
		)

	case RescheduleDecline:
		if reason == "" {
			return nil, fmt.Errorf("%w: decline reason is required", ErrValidation)
		}
		err = s.commit(ctx, booking, EventRespond, model.BookingStatusConfirmed, actor.ID, func(b *model.Booking) {
			b.Reschedule = nil
		})
		if err != nil {
			return nil, err
		}

		s.logger.Info("Reschedule declined",
			zap.String("booking_id", booking.ID.String()),
			zap.String("responded_by", actor.ID.String()),
			zap.String("reason", reason),
		)

	default:
		return nil, fmt.Errorf("%w: unknown decision %q", ErrValidation, decision)
	}

	return booking, nil
}
