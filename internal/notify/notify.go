package notify

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"go.uber.org/zap"
)

// Sink получает события жизненного цикла брони.
// Доставка at-least-once: отправитель может повторить событие, потребитель обязан быть идемпотентным.
type Sink interface {
	Publish(ctx context.Context, event model.BookingEvent) error
}

// LogSink пишет события в структурированный лог
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, event model.BookingEvent) error {
	s.logger.Info("Booking event",
		zap.String("booking_id", event.BookingID.String()),
		zap.String("from_status", string(event.FromStatus)),
		zap.String("to_status", string(event.ToStatus)),
		zap.String("actor_id", event.ActorID.String()),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

// Fanout рассылает событие во все sink'и, ошибки собираются но не прерывают рассылку
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, event model.BookingEvent) error {
	var firstErr error
	for _, sink := range f {
		if err := sink.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("publish booking event: %w", err)
		}
	}
	return firstErr
}
