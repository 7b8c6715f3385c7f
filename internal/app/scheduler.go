package app

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/service"
	"go.uber.org/zap"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	bookingService *service.BookingService
	sweepInterval  time.Duration
	logger         *zap.Logger
	stopChan       chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(bookingService *service.BookingService, sweepInterval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		bookingService: bookingService,
		sweepInterval:  sweepInterval,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	go s.runHoldExpiryTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runHoldExpiryTask периодически отменяет брони с истёкшим hold window
func (s *Scheduler) runHoldExpiryTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.expireHolds(ctx)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expireHolds(ctx)
		case <-s.stopChan:
			s.logger.Info("Hold expiry task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Hold expiry task cancelled")
			return
		}
	}
}

func (s *Scheduler) expireHolds(ctx context.Context) {
	cancelled, err := s.bookingService.ExpireHolds(ctx)
	if err != nil {
		s.logger.Error("Failed to expire holds", zap.Error(err))
		return
	}

	if cancelled > 0 {
		s.logger.Info("Expired unpaid holds", zap.Int("cancelled", cancelled))
	}
}
