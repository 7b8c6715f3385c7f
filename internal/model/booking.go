package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает решения репетитора
	BookingStatusAccepted  BookingStatus = "accepted"  // Принято, ждём оплату
	BookingStatusConfirmed BookingStatus = "confirmed" // Оплачено
	BookingStatusCompleted BookingStatus = "completed" // Занятие проведено, отчёт сдан
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено
	BookingStatusDeclined  BookingStatus = "declined"  // Отклонено репетитором
)

// IsTerminal — терминальные статусы не покидаются никогда
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled || s == BookingStatusDeclined
}

type Subject string

const (
	SubjectMath      Subject = "math"
	SubjectPhysics   Subject = "physics"
	SubjectChemistry Subject = "chemistry"
	SubjectEnglish   Subject = "english"
	SubjectBiology   Subject = "biology"
	SubjectHistory   Subject = "history"
)

func ValidSubject(s Subject) bool {
	switch s {
	case SubjectMath, SubjectPhysics, SubjectChemistry, SubjectEnglish, SubjectBiology, SubjectHistory:
		return true
	}
	return false
}

type Level string

const (
	LevelPrimary    Level = "primary"
	LevelSecondary  Level = "secondary"
	LevelExam       Level = "exam"
	LevelUniversity Level = "university"
)

func ValidLevel(l Level) bool {
	switch l {
	case LevelPrimary, LevelSecondary, LevelExam, LevelUniversity:
		return true
	}
	return false
}

// Границы времени занятия относительно момента создания брони
const (
	MinLeadTime = time.Hour
	MaxLeadTime = 365 * 24 * time.Hour
)

type Booking struct {
	ID              uuid.UUID          `json:"id"`
	StudentID       uuid.UUID          `json:"student_id"`
	TutorID         uuid.UUID          `json:"tutor_id"`
	Subject         Subject            `json:"subject"`
	Level           Level              `json:"level"`
	ScheduledAt     time.Time          `json:"scheduled_at"`
	DurationMin     int                `json:"duration_min"`
	PriceMinor      int64              `json:"price_minor"`
	Currency        string             `json:"currency"`
	Status          BookingStatus      `json:"status"`
	PaymentIntentID string             `json:"payment_intent_id,omitempty"`
	IsPaid          bool               `json:"is_paid"`
	MeetingLink     string             `json:"meeting_link,omitempty"`
	PaymentAttempts int                `json:"payment_attempts"` // Подряд идущие неудачные оплаты
	PaymentError    string             `json:"payment_error,omitempty"`
	LessonReport    string             `json:"lesson_report,omitempty"`  // Только в статусе completed
	DeclineReason   string             `json:"decline_reason,omitempty"` // Только в статусе declined
	Reschedule      *RescheduleRequest `json:"reschedule,omitempty"`     // Только пока открыты переговоры о переносе
	AcceptedAt      *time.Time         `json:"accepted_at,omitempty"`    // Начало hold window
	Version         int64              `json:"version"`                  // Для compare-and-commit
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// EndsAt возвращает момент окончания занятия
func (b *Booking) EndsAt() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMin) * time.Minute)
}

// ValidateSchedule проверяет границы времени занятия (от 1 часа до года вперёд)
func ValidateSchedule(scheduledAt, now time.Time) error {
	if scheduledAt.Before(now.Add(MinLeadTime)) {
		return ErrScheduleTooSoon
	}
	if scheduledAt.After(now.Add(MaxLeadTime)) {
		return ErrScheduleTooFar
	}
	return nil
}
