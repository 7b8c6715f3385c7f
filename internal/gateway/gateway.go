package gateway

import (
	"context"
	"errors"
)

// Outcome — результат intent'а, который шлюз сообщает асинхронным callback'ом
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Intent — хэндл попытки списания во внешнем шлюзе.
// ClientSecret и CheckoutURL потребляются клиентской стороной, ядро их не интерпретирует.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret,omitempty"`
	CheckoutURL  string `json:"checkout_url,omitempty"`
}

// Gateway — контракт внешнего платёжного шлюза.
// Карточные данные ядро не обрабатывает, только intent'ы.
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (*Intent, error)
	RefundIntent(ctx context.Context, intentID string) error
}

// ErrUnavailable возвращается после исчерпания повторов к шлюзу
var ErrUnavailable = errors.New("payment gateway unavailable")
