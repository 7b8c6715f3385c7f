package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/gateway"
	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/Freeeeeet/tutorhub/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.acceptedBooking(t)

	intent, err := f.paymentSvc.Initiate(ctx, f.student, booking.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, intent.ID)
	assert.NotEmpty(t, intent.CheckoutURL)

	require.NoError(t, f.paymentSvc.Confirm(ctx, intent.ID, gateway.OutcomeSucceeded))

	confirmed, err := f.bookingSvc.Get(ctx, f.student, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)
	assert.True(t, confirmed.IsPaid)
	assert.Equal(t, intent.ID, confirmed.PaymentIntentID)
	assert.NotEmpty(t, confirmed.MeetingLink)
	assert.Zero(t, confirmed.PaymentAttempts)

	payments, err := f.paymentSvc.ListForBooking(ctx, f.student, booking.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, model.PaymentStatusSucceeded, payments[0].Status)
	assert.Equal(t, booking.PriceMinor, payments[0].AmountMinor)
	assert.Equal(t, testCurrency, payments[0].Currency)
}

func TestConfirmSucceededIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.acceptedBooking(t)

	intent, err := f.paymentSvc.Initiate(ctx, f.student, booking.ID)
	require.NoError(t, err)

	require.NoError(t, f.paymentSvc.Confirm(ctx, intent.ID, gateway.OutcomeSucceeded))

	before, err := f.bookingSvc.Get(ctx, f.student, booking.ID)
	require.NoError(t, err)
	emitted := f.sink.count()

	// Дубль callback'а ничего не меняет и не эмитит
	require.NoError(t, f.paymentSvc.Confirm(ctx, intent.ID, gateway.OutcomeSucceeded))

	after, err := f.bookingSvc.Get(ctx, f.student, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.MeetingLink, after.MeetingLink)
	assert.Equal(t, emitted, f.sink.count())
}

func TestConfirmHealsPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.acceptedBooking(t)

	intent, err := f.paymentSvc.Initiate(ctx, f.student, booking.ID)
	require.NoError(t, err)

	// Прошлый Confirm упал между записями: платёж успешен, бронь осталась accepted
	payment, err := f.payments.GetByIntentID(ctx, intent.ID)
	require.NoError(t, err)
	payment.Status = model.PaymentStatusSucceeded
	require.NoError(t, f.payments.UpdateCAS(ctx, payment, model.PaymentStatusPending))

	require.NoError(t, f.paymentSvc.Confirm(ctx, intent.ID, gateway.OutcomeSucceeded))

	healed, err := f.bookingSvc.Get(ctx, f.student, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, healed.Status)
	assert.True(t, healed.IsPaid)
}

func TestConfirmFailedReturnsBookingToPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.acceptedBooking(t)

	intent, err := f.paymentSvc.Initiate(ctx, f.student, booking.ID)
	require.NoError(t, err)

	require.NoError(t, f.paymentSvc.Confirm(ctx, intent.ID, gateway.OutcomeFailed))

	got, err := f.bookingSvc.Get(ctx, f.student, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, got.Status)
	assert.Equal(t, 1, got.PaymentAttempts)
	assert.NotEmpty(t, got.PaymentError)
	assert.Nil(t, got.AcceptedAt)

	// Повторная доставка failed ничего не меняет
	require.NoError(t, f.paymentSvc.Confirm(ctx, intent.ID, gateway.OutcomeFailed))
	again, err := f.bookingSvc.Get(ctx, f.student, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.PaymentAttempts)
}

func TestSecondPaymentFailureCancelsBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.acceptedBooking(t)

	intent, err := f.paymentSvc.Initiate(ctx, f.student, booking.ID)
	require.NoError(t, err)
	require.NoError(t, f.paymentSvc.Confirm(ctx, intent.ID, gateway.OutcomeFailed))

	// Репетитор принимает заявку снова, оплата падает второй раз
	_, err = f.bookingSvc.Accept(ctx, f.tutor, booking.ID)
	require.NoError(t, err)

	intent, err = f.paymentSvc.Initiate(ctx, f.student, booking.ID)
	require.NoError(t, err)
	require.NoError(t, f.paymentSvc.Confirm(ctx, intent.ID, gateway.OutcomeFailed))

	got, err := f.bookingSvc.Get(ctx, f.student, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, got.Status)
	assert.Equal(t, 2, got.PaymentAttempts)
}

func TestConfirmFailedAfterSuccessIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.acceptedBooking(t)

	intent, err := f.paymentSvc.Initiate(ctx, f.student, booking.ID)
	require.NoError(t, err)
	require.NoError(t, f.paymentSvc.Confirm(ctx, intent.ID, gateway.OutcomeSucceeded))

	// Опоздавший failed после зафиксированного успеха игнорируется
	require.NoError(t, f.paymentSvc.Confirm(ctx, intent.ID, gateway.OutcomeFailed))

	got, err := f.bookingSvc.Get(ctx, f.student, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, got.Status)
	assert.True(t, got.IsPaid)
}

func TestConfirmUnknownIntent(t *testing.T) {
	f := newFixture(t)
	err := f.paymentSvc.Confirm(context.Background(), "pi_unknown", gateway.OutcomeSucceeded)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestInitiateRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.createBooking(t)
	_, err := f.paymentSvc.Initiate(ctx, f.student, pending.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	booking := f.acceptedBooking(t)

	_, err = f.paymentSvc.Initiate(ctx, f.tutor, booking.ID)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	stranger := service.Actor{ID: uuid.New(), Role: model.RoleStudent}
	_, err = f.paymentSvc.Initiate(ctx, stranger, booking.ID)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = f.paymentSvc.Initiate(ctx, f.student, booking.ID)
	require.NoError(t, err)

	// Пока платёж активен, второй не создаётся
	_, err = f.paymentSvc.Initiate(ctx, f.student, booking.ID)
	assert.ErrorIs(t, err, service.ErrPaymentAlreadyActive)

	_, err = f.paymentSvc.Initiate(ctx, f.student, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestInitiateGatewayUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.acceptedBooking(t)

	f.gw.createErr = errors.New("connection refused")

	_, err := f.paymentSvc.Initiate(ctx, f.student, booking.ID)
	assert.ErrorIs(t, err, service.ErrPaymentGateway)

	// Неудача шлюза считается как попытка оплаты, бронь возвращается в pending
	got, err := f.bookingSvc.Get(ctx, f.student, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, got.Status)
	assert.Equal(t, 1, got.PaymentAttempts)

	payments, err := f.paymentSvc.ListForBooking(ctx, f.student, booking.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, model.PaymentStatusFailed, payments[0].Status)
}

func TestRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.confirmedBooking(t)

	payments, err := f.paymentSvc.ListForBooking(ctx, f.student, booking.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	paymentID := payments[0].ID

	// Возврат возможен только по отменённой брони
	_, err = f.paymentSvc.Refund(ctx, f.student, paymentID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	_, err = f.bookingSvc.Cancel(ctx, f.student, booking.ID)
	require.NoError(t, err)

	_, err = f.paymentSvc.Refund(ctx, f.tutor, paymentID)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	refunded, err := f.paymentSvc.Refund(ctx, f.student, paymentID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, refunded.Status)
	assert.Contains(t, f.gw.refunded, refunded.IntentID)

	got, err := f.bookingSvc.Get(ctx, f.student, booking.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPaid)
	assert.Equal(t, model.BookingStatusCancelled, got.Status)

	// Повторный возврат невозможен: платёж уже не succeeded
	_, err = f.paymentSvc.Refund(ctx, f.student, paymentID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestRefundImpossibleFromCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.confirmedBooking(t)

	f.clock.Advance(26 * time.Hour)
	_, err := f.bookingSvc.SubmitReport(ctx, f.tutor, booking.ID, "done")
	require.NoError(t, err)

	payments, err := f.paymentSvc.ListForBooking(ctx, f.admin, booking.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)

	_, err = f.paymentSvc.Refund(ctx, f.admin, payments[0].ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestListForBookingAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.confirmedBooking(t)

	stranger := service.Actor{ID: uuid.New(), Role: model.RoleStudent}
	_, err := f.paymentSvc.ListForBooking(ctx, stranger, booking.ID)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	// Репетитор видит аудит платежей по своей броне
	payments, err := f.paymentSvc.ListForBooking(ctx, f.tutor, booking.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}
