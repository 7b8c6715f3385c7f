package model_test

import (
	"testing"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestValidateSchedule(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, model.ValidateSchedule(now.Add(time.Hour), now))
	assert.NoError(t, model.ValidateSchedule(now.Add(24*time.Hour), now))
	assert.NoError(t, model.ValidateSchedule(now.Add(model.MaxLeadTime), now))

	assert.ErrorIs(t, model.ValidateSchedule(now.Add(59*time.Minute), now), model.ErrScheduleTooSoon)
	assert.ErrorIs(t, model.ValidateSchedule(now, now), model.ErrScheduleTooSoon)
	assert.ErrorIs(t, model.ValidateSchedule(now.Add(-time.Hour), now), model.ErrScheduleTooSoon)
	assert.ErrorIs(t, model.ValidateSchedule(now.Add(model.MaxLeadTime+time.Minute), now), model.ErrScheduleTooFar)
}

func TestBookingEndsAt(t *testing.T) {
	start := time.Date(2025, 3, 11, 15, 0, 0, 0, time.UTC)
	booking := &model.Booking{ScheduledAt: start, DurationMin: 90}
	assert.Equal(t, start.Add(90*time.Minute), booking.EndsAt())
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, model.BookingStatusPending.IsTerminal())
	assert.False(t, model.BookingStatusAccepted.IsTerminal())
	assert.False(t, model.BookingStatusConfirmed.IsTerminal())
	assert.True(t, model.BookingStatusCompleted.IsTerminal())
	assert.True(t, model.BookingStatusCancelled.IsTerminal())
	assert.True(t, model.BookingStatusDeclined.IsTerminal())
}

func TestValidEnums(t *testing.T) {
	assert.True(t, model.ValidSubject(model.SubjectChemistry))
	assert.False(t, model.ValidSubject("astrology"))
	assert.True(t, model.ValidLevel(model.LevelUniversity))
	assert.False(t, model.ValidLevel("kindergarten"))
	assert.True(t, model.ValidRole(model.RoleParent))
	assert.False(t, model.ValidRole("moderator"))
}
