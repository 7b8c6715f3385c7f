package model

import (
	"time"

	"github.com/google/uuid"
)

type RescheduleStatus string

const (
	RescheduleStatusPending  RescheduleStatus = "pending"
	RescheduleStatusApproved RescheduleStatus = "approved"
	RescheduleStatusDeclined RescheduleStatus = "declined"
)

// RescheduleRequest — открытые переговоры о переносе занятия.
// Живёт внутри Booking и только пока бронь в статусе confirmed.
type RescheduleRequest struct {
	RequestedBy   uuid.UUID        `json:"requested_by"`
	ProposedAt    time.Time        `json:"proposed_at"` // Предлагаемое новое время занятия
	Status        RescheduleStatus `json:"status"`
	RespondedBy   *uuid.UUID       `json:"responded_by,omitempty"`
	RespondedAt   *time.Time       `json:"responded_at,omitempty"`
	DeclineReason string           `json:"decline_reason,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
