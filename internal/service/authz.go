package service

import (
	"slices"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/google/uuid"
)

// Actor — аутентифицированный участник операции. Приходит из внешнего identity-слоя,
// ядро ему доверяет, но каждое действие проверяет через Allow.
type Actor struct {
	ID       uuid.UUID
	Role     model.Role
	Children []uuid.UUID // Заполнено только для родителей
}

// OwnsBooking — актор является студентом брони или его родителем
func (a Actor) OwnsBooking(b *model.Booking) bool {
	switch a.Role {
	case model.RoleStudent:
		return b.StudentID == a.ID
	case model.RoleParent:
		return slices.Contains(a.Children, b.StudentID)
	}
	return false
}

// IsAssignedTutor — актор является назначенным репетитором брони
func (a Actor) IsAssignedTutor(b *model.Booking) bool {
	return a.Role == model.RoleTutor && b.TutorID == a.ID
}

// Allow — чистая функция авторизации: решает, может ли актор инициировать событие
// над данной бронью. Неверный актор — ErrUnauthorized; допустимость самого перехода
// по статусу проверяется отдельно (ErrInvalidTransition).
func Allow(actor Actor, b *model.Booking, event Event) error {
	if actor.Role == model.RoleAdmin {
		return allowAdmin(b, event)
	}

	switch event {
	case EventAccept, EventDecline, EventComplete:
		if actor.IsAssignedTutor(b) {
			return nil
		}

	case EventCancel:
		// Кто может отменять, зависит от статуса: pending — только заказчик,
		// confirmed — любая из сторон. Из accepted обычных пользователей не выпускаем:
		// оттуда бронь уводят только система (hold window) и админ.
		switch b.Status {
		case model.BookingStatusPending:
			if actor.OwnsBooking(b) {
				return nil
			}
		case model.BookingStatusConfirmed:
			if actor.OwnsBooking(b) || actor.IsAssignedTutor(b) {
				return nil
			}
		}

	case EventPropose:
		if actor.OwnsBooking(b) || actor.IsAssignedTutor(b) {
			return nil
		}

	case EventRespond:
		// Отвечает контрагент инициатора; на собственное предложение отвечать нельзя
		if b.Reschedule == nil {
			return ErrUnauthorized
		}
		if actor.OwnsBooking(b) || actor.IsAssignedTutor(b) {
			if !isSameSide(actor, b, b.Reschedule.RequestedBy) {
				return nil
			}
		}

	case EventView:
		if actor.OwnsBooking(b) || actor.IsAssignedTutor(b) {
			return nil
		}
	}

	return ErrUnauthorized
}

// allowAdmin: админ может смотреть всё и force-cancel из любого нетерминального статуса
func allowAdmin(b *model.Booking, event Event) error {
	switch event {
	case EventView:
		return nil
	case EventCancel:
		if !b.Status.IsTerminal() {
			return nil
		}
	}
	return ErrUnauthorized
}

// isSameSide — актор на той же стороне переговоров, что и requester
// (студент и его родитель считаются одной стороной)
func isSameSide(actor Actor, b *model.Booking, requester uuid.UUID) bool {
	if actor.ID == requester {
		return true
	}
	requesterOnOwnerSide := requester != b.TutorID
	return requesterOnOwnerSide && actor.OwnsBooking(b)
}
