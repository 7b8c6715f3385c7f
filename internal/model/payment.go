package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded" // Терминальная неподвижная точка
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	ID          uuid.UUID     `json:"id"`
	BookingID   uuid.UUID     `json:"booking_id"`
	AmountMinor int64         `json:"amount_minor"` // Равна цене брони на момент создания
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	IntentID    string        `json:"intent_id,omitempty"` // Идентификатор intent во внешнем шлюзе
	FailReason  string        `json:"fail_reason,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsActive — активен pending или succeeded платёж; failed и refunded остаются только как аудит
func (p *Payment) IsActive() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusSucceeded
}
