// Package memstore — in-memory реализация хранилищ для тестов и локального запуска.
// Семантика повторяет pgx-репозитории: Get* возвращают (nil, nil) если записи нет,
// UpdateCAS коммитит только из ожидаемого состояния.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/Freeeeeet/tutorhub/internal/service"
	"github.com/google/uuid"
)

type BookingStore struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*model.Booking
}

func NewBookingStore() *BookingStore {
	return &BookingStore{bookings: make(map[uuid.UUID]*model.Booking)}
}

func (s *BookingStore) Create(_ context.Context, booking *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[booking.ID]; ok {
		return fmt.Errorf("booking %s already exists", booking.ID)
	}
	s.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

func (s *BookingStore) GetByID(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	return cloneBooking(booking), nil
}

func (s *BookingStore) GetByStudentID(_ context.Context, studentID uuid.UUID) ([]*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Booking
	for _, booking := range s.bookings {
		if booking.StudentID == studentID {
			result = append(result, cloneBooking(booking))
		}
	}
	return result, nil
}

func (s *BookingStore) GetByTutorID(_ context.Context, tutorID uuid.UUID) ([]*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Booking
	for _, booking := range s.bookings {
		if booking.TutorID == tutorID {
			result = append(result, cloneBooking(booking))
		}
	}
	return result, nil
}

func (s *BookingStore) ListAcceptedBefore(_ context.Context, cutoff time.Time) ([]*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Booking
	for _, booking := range s.bookings {
		if booking.Status == model.BookingStatusAccepted && booking.AcceptedAt != nil && booking.AcceptedAt.Before(cutoff) {
			result = append(result, cloneBooking(booking))
		}
	}
	return result, nil
}

func (s *BookingStore) UpdateCAS(_ context.Context, booking *model.Booking, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.bookings[booking.ID]
	if !ok || current.Version != expectedVersion {
		return fmt.Errorf("%w: booking %s version %d", service.ErrStaleState, booking.ID, expectedVersion)
	}

	committed := cloneBooking(booking)
	committed.Version = expectedVersion + 1
	s.bookings[booking.ID] = committed
	booking.Version = committed.Version
	return nil
}

type PaymentStore struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*model.Payment
}

func NewPaymentStore() *PaymentStore {
	return &PaymentStore{payments: make(map[uuid.UUID]*model.Payment)}
}

func (s *PaymentStore) Create(_ context.Context, payment *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[payment.ID]; ok {
		return fmt.Errorf("payment %s already exists", payment.ID)
	}
	clone := *payment
	s.payments[payment.ID] = &clone
	return nil
}

func (s *PaymentStore) GetByID(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payment, ok := s.payments[id]
	if !ok {
		return nil, nil
	}
	clone := *payment
	return &clone, nil
}

func (s *PaymentStore) GetByIntentID(_ context.Context, intentID string) (*model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, payment := range s.payments {
		if payment.IntentID == intentID && intentID != "" {
			clone := *payment
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *PaymentStore) GetActiveByBookingID(_ context.Context, bookingID uuid.UUID) (*model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, payment := range s.payments {
		if payment.BookingID == bookingID && payment.IsActive() {
			clone := *payment
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *PaymentStore) ListByBookingID(_ context.Context, bookingID uuid.UUID) ([]*model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Payment
	for _, payment := range s.payments {
		if payment.BookingID == bookingID {
			clone := *payment
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (s *PaymentStore) UpdateCAS(_ context.Context, payment *model.Payment, expectedStatus model.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.payments[payment.ID]
	if !ok || current.Status != expectedStatus {
		return fmt.Errorf("%w: payment %s expected status %s", service.ErrStaleState, payment.ID, expectedStatus)
	}

	clone := *payment
	s.payments[payment.ID] = &clone
	return nil
}

type UserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*model.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]*model.User)}
}

func (s *UserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(user), nil
}

func (s *UserStore) ListChildIDs(_ context.Context, parentID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uuid.UUID
	for _, user := range s.users {
		if user.ParentID != nil && *user.ParentID == parentID {
			ids = append(ids, user.ID)
		}
	}
	return ids, nil
}

func cloneBooking(booking *model.Booking) *model.Booking {
	clone := *booking
	if booking.Reschedule != nil {
		request := *booking.Reschedule
		clone.Reschedule = &request
	}
	if booking.AcceptedAt != nil {
		at := *booking.AcceptedAt
		clone.AcceptedAt = &at
	}
	return &clone
}

func cloneUser(user *model.User) *model.User {
	clone := *user
	if user.ParentID != nil {
		id := *user.ParentID
		clone.ParentID = &id
	}
	if user.TelegramChatID != nil {
		chat := *user.TelegramChatID
		clone.TelegramChatID = &chat
	}
	if user.Rates != nil {
		clone.Rates = make(map[model.Level]int64, len(user.Rates))
		for level, rate := range user.Rates {
			clone.Rates[level] = rate
		}
	}
	return &clone
}
