package notify

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/go-telegram/bot"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatResolver отдаёт telegram chat id пользователя, если он привязан
type ChatResolver interface {
	ChatID(ctx context.Context, userID uuid.UUID) (int64, bool, error)
}

// TelegramSink шлёт уведомления о переходах обоим участникам брони
type TelegramSink struct {
	bot      *bot.Bot
	resolver ChatResolver
	logger   *zap.Logger
}

func NewTelegramSink(botInstance *bot.Bot, resolver ChatResolver, logger *zap.Logger) *TelegramSink {
	return &TelegramSink{
		bot:      botInstance,
		resolver: resolver,
		logger:   logger,
	}
}

func (s *TelegramSink) Publish(ctx context.Context, event model.BookingEvent) error {
	text := eventText(event)

	for _, userID := range []uuid.UUID{event.StudentID, event.TutorID} {
		chatID, ok, err := s.resolver.ChatID(ctx, userID)
		if err != nil {
			return fmt.Errorf("resolve chat id: %w", err)
		}
		if !ok {
			continue
		}

		_, err = s.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   text,
		})
		if err != nil {
			// Не роняем рассылку из-за одного недоступного чата
			s.logger.Warn("Failed to send telegram notification",
				zap.Int64("chat_id", chatID),
				zap.String("booking_id", event.BookingID.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}

func eventText(event model.BookingEvent) string {
	switch event.ToStatus {
	case model.BookingStatusPending:
		if event.FromStatus == "" {
			return fmt.Sprintf("📚 Новая заявка на занятие #%s", shortID(event.BookingID))
		}
		return fmt.Sprintf("⚠️ Оплата не прошла, заявка #%s снова ожидает оплаты", shortID(event.BookingID))
	case model.BookingStatusAccepted:
		return fmt.Sprintf("✅ Заявка #%s принята, ожидается оплата", shortID(event.BookingID))
	case model.BookingStatusConfirmed:
		return fmt.Sprintf("💳 Занятие #%s оплачено и подтверждено", shortID(event.BookingID))
	case model.BookingStatusCompleted:
		return fmt.Sprintf("🎓 Занятие #%s завершено, отчёт доступен", shortID(event.BookingID))
	case model.BookingStatusDeclined:
		return fmt.Sprintf("❌ Заявка #%s отклонена репетитором", shortID(event.BookingID))
	case model.BookingStatusCancelled:
		return fmt.Sprintf("🚫 Занятие #%s отменено", shortID(event.BookingID))
	}
	return fmt.Sprintf("Занятие #%s: статус %s", shortID(event.BookingID), event.ToStatus)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
