package model

import (
	"time"

	"github.com/google/uuid"
)

// BookingEvent эмитится после каждого закоммиченного перехода.
// Доставка at-least-once, потребители обязаны быть идемпотентными.
type BookingEvent struct {
	BookingID  uuid.UUID     `json:"booking_id"`
	StudentID  uuid.UUID     `json:"student_id"`
	TutorID    uuid.UUID     `json:"tutor_id"`
	FromStatus BookingStatus `json:"from_status"` // Пустой для только что созданной брони
	ToStatus   BookingStatus `json:"to_status"`
	ActorID    uuid.UUID     `json:"actor_id"` // uuid.Nil для системных переходов
	OccurredAt time.Time     `json:"occurred_at"`
}
