package service

import (
	"github.com/Freeeeeet/tutorhub/internal/model"
)

// Event — событие жизненного цикла брони
type Event string

const (
	EventAccept           Event = "accept"
	EventDecline          Event = "decline"
	EventCancel           Event = "cancel"
	EventPaymentSucceeded Event = "payment_succeeded"
	EventPaymentFailed    Event = "payment_failed"
	EventExpireHold       Event = "expire_hold"
	EventComplete         Event = "complete"
	EventPropose          Event = "propose_reschedule"
	EventRespond          Event = "respond_reschedule"
	EventView             Event = "view"
)

// transitions — единственный источник истины о допустимых переходах статусов.
// Ключ — текущий статус, значение — допустимые целевые статусы по событию.
// Статус брони меняется только через эту таблицу.
var transitions = map[model.BookingStatus]map[Event][]model.BookingStatus{
	model.BookingStatusPending: {
		EventAccept:  {model.BookingStatusAccepted},
		EventDecline: {model.BookingStatusDeclined},
		EventCancel:  {model.BookingStatusCancelled},
	},
	model.BookingStatusAccepted: {
		EventPaymentSucceeded: {model.BookingStatusConfirmed},
		// Первая неудача возвращает в pending, повторная — отменяет
		EventPaymentFailed: {model.BookingStatusPending, model.BookingStatusCancelled},
		EventExpireHold:    {model.BookingStatusCancelled},
		EventCancel:        {model.BookingStatusCancelled}, // Только admin force-cancel
	},
	model.BookingStatusConfirmed: {
		EventComplete: {model.BookingStatusCompleted},
		EventCancel:   {model.BookingStatusCancelled},
		// Перенос не меняет статус: confirmed -> confirmed через RescheduleWorkflow
		EventPropose: {model.BookingStatusConfirmed},
		EventRespond: {model.BookingStatusConfirmed},
	},
	// Терминальные статусы переходов не имеют
}

// CanTransition проверяет допустимость перехода from --event--> to
func CanTransition(from model.BookingStatus, event Event, to model.BookingStatus) bool {
	byEvent, ok := transitions[from]
	if !ok {
		return false
	}
	for _, target := range byEvent[event] {
		if target == to {
			return true
		}
	}
	return false
}

// EventAllowed проверяет что событие вообще определено для статуса
func EventAllowed(from model.BookingStatus, event Event) bool {
	byEvent, ok := transitions[from]
	if !ok {
		return false
	}
	return len(byEvent[event]) > 0
}
