package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/gateway"
	"github.com/Freeeeeet/tutorhub/internal/memstore"
	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/Freeeeeet/tutorhub/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testHoldWindow  = 24 * time.Hour
	testMaxAttempts = 2
	testCurrency    = "EUR"
)

// testClock — управляемые часы для детерминированных тестов времени
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordSink запоминает все опубликованные события
type recordSink struct {
	mu     sync.Mutex
	events []model.BookingEvent
}

func (s *recordSink) Publish(_ context.Context, event model.BookingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordSink) last() model.BookingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

func (s *recordSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// fakeGateway — шлюз, выдающий intent'ы локально
type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	created   []string
	refunded  []string
}

func (g *fakeGateway) CreateIntent(_ context.Context, _ int64, _, idempotencyKey string) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	intentID := "pi_" + idempotencyKey
	g.created = append(g.created, intentID)
	return &gateway.Intent{ID: intentID, CheckoutURL: "https://pay.example.com/" + intentID}, nil
}

func (g *fakeGateway) RefundIntent(_ context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunded = append(g.refunded, intentID)
	return nil
}

type fixture struct {
	clock    *testClock
	bookings *memstore.BookingStore
	payments *memstore.PaymentStore
	users    *memstore.UserStore
	sink     *recordSink
	gw       *fakeGateway

	userSvc    *service.UserService
	bookingSvc *service.BookingService
	paymentSvc *service.PaymentService

	tutor   service.Actor
	student service.Actor
	parent  service.Actor
	admin   service.Actor

	tutorID   uuid.UUID
	studentID uuid.UUID
	childID   uuid.UUID
	parentID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	f := &fixture{
		clock:    newTestClock(),
		bookings: memstore.NewBookingStore(),
		payments: memstore.NewPaymentStore(),
		users:    memstore.NewUserStore(),
		sink:     &recordSink{},
		gw:       &fakeGateway{},
	}

	f.userSvc = service.NewUserService(f.users, logger)
	f.bookingSvc = service.NewBookingService(f.bookings, f.users, f.sink, logger, testHoldWindow, testMaxAttempts)
	f.bookingSvc.SetNow(f.clock.Now)
	f.paymentSvc = service.NewPaymentService(f.payments, f.bookingSvc, f.gw, testCurrency, logger)
	f.paymentSvc.SetNow(f.clock.Now)

	tutor, err := f.userSvc.Register(ctx, service.RegisterUserInput{
		Name: "Anna",
		Role: model.RoleTutor,
		Rates: map[model.Level]int64{
			model.LevelSecondary: 4500,
			model.LevelExam:      6000,
		},
	})
	require.NoError(t, err)

	student, err := f.userSvc.Register(ctx, service.RegisterUserInput{
		Name: "Boris",
		Role: model.RoleStudent,
	})
	require.NoError(t, err)

	parent, err := f.userSvc.Register(ctx, service.RegisterUserInput{
		Name: "Vera",
		Role: model.RoleParent,
	})
	require.NoError(t, err)

	child, err := f.userSvc.Register(ctx, service.RegisterUserInput{
		Name:     "Dima",
		Role:     model.RoleStudent,
		ParentID: &parent.ID,
	})
	require.NoError(t, err)

	admin, err := f.userSvc.Register(ctx, service.RegisterUserInput{
		Name: "Olga",
		Role: model.RoleAdmin,
	})
	require.NoError(t, err)

	f.tutorID = tutor.ID
	f.studentID = student.ID
	f.parentID = parent.ID
	f.childID = child.ID

	f.tutor = service.Actor{ID: tutor.ID, Role: model.RoleTutor}
	f.student = service.Actor{ID: student.ID, Role: model.RoleStudent}
	f.admin = service.Actor{ID: admin.ID, Role: model.RoleAdmin}

	// Родителя собираем через сервис, чтобы проверить загрузку детей
	f.parent, err = f.userSvc.Actor(ctx, parent.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{child.ID}, f.parent.Children)

	return f
}

// createBooking создаёт бронь студента на завтра
func (f *fixture) createBooking(t *testing.T) *model.Booking {
	t.Helper()
	booking, err := f.bookingSvc.Create(context.Background(), f.student, service.CreateBookingInput{
		TutorID:     f.tutorID,
		Subject:     model.SubjectMath,
		Level:       model.LevelSecondary,
		ScheduledAt: f.clock.Now().Add(24 * time.Hour),
		DurationMin: 60,
	})
	require.NoError(t, err)
	return booking
}

// acceptedBooking доводит бронь до accepted
func (f *fixture) acceptedBooking(t *testing.T) *model.Booking {
	t.Helper()
	booking := f.createBooking(t)
	accepted, err := f.bookingSvc.Accept(context.Background(), f.tutor, booking.ID)
	require.NoError(t, err)
	return accepted
}

// confirmedBooking доводит бронь до confirmed через полный платёжный цикл
func (f *fixture) confirmedBooking(t *testing.T) *model.Booking {
	t.Helper()
	ctx := context.Background()
	booking := f.acceptedBooking(t)

	intent, err := f.paymentSvc.Initiate(ctx, f.student, booking.ID)
	require.NoError(t, err)
	require.NoError(t, f.paymentSvc.Confirm(ctx, intent.ID, gateway.OutcomeSucceeded))

	confirmed, err := f.bookingSvc.Get(ctx, f.student, booking.ID)
	require.NoError(t, err)
	require.Equal(t, model.BookingStatusConfirmed, confirmed.Status)
	return confirmed
}
