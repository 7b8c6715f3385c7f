package service_test

import (
	"context"
	"testing"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/Freeeeeet/tutorhub/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.userSvc.Register(ctx, service.RegisterUserInput{Role: model.RoleStudent})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.userSvc.Register(ctx, service.RegisterUserInput{Name: "X", Role: "moderator"})
	assert.ErrorIs(t, err, service.ErrValidation)

	// Родителя может указывать только студент
	_, err = f.userSvc.Register(ctx, service.RegisterUserInput{Name: "X", Role: model.RoleTutor, ParentID: &f.parentID})
	assert.ErrorIs(t, err, service.ErrValidation)

	missing := uuid.New()
	_, err = f.userSvc.Register(ctx, service.RegisterUserInput{Name: "X", Role: model.RoleStudent, ParentID: &missing})
	assert.ErrorIs(t, err, service.ErrValidation)

	// На месте родителя должен быть именно родитель
	_, err = f.userSvc.Register(ctx, service.RegisterUserInput{Name: "X", Role: model.RoleStudent, ParentID: &f.tutorID})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.userSvc.Register(ctx, service.RegisterUserInput{
		Name:  "X",
		Role:  model.RoleTutor,
		Rates: map[model.Level]int64{model.LevelExam: -1},
	})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestActorResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	actor, err := f.userSvc.Actor(ctx, f.studentID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, actor.Role)
	assert.Empty(t, actor.Children)

	parent, err := f.userSvc.Actor(ctx, f.parentID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.childID}, parent.Children)

	_, err = f.userSvc.Actor(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestChatIDResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chatID := int64(123456)
	user, err := f.userSvc.Register(ctx, service.RegisterUserInput{
		Name:           "With Telegram",
		Role:           model.RoleStudent,
		TelegramChatID: &chatID,
	})
	require.NoError(t, err)

	got, ok, err := f.userSvc.ChatID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, chatID, got)

	_, ok, err = f.userSvc.ChatID(ctx, f.studentID)
	require.NoError(t, err)
	assert.False(t, ok)
}
