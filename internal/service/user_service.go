package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService отвечает за регистрацию пользователей и сборку Actor'а
// для авторизации операций. Роль фиксируется при создании и не меняется.
type UserService struct {
	users  UserStore
	logger *zap.Logger

	now func() time.Time
}

func NewUserService(users UserStore, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

type RegisterUserInput struct {
	Name           string
	Role           model.Role
	ParentID       *uuid.UUID            // Только для студентов
	Rates          map[model.Level]int64 // Только для репетиторов
	TelegramChatID *int64
}

// Register создаёт пользователя. Студент может ссылаться на родителя,
// и тогда он автоматически попадает в список детей этого родителя.
func (s *UserService) Register(ctx context.Context, input RegisterUserInput) (*model.User, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !model.ValidRole(input.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, input.Role)
	}

	if input.ParentID != nil {
		if input.Role != model.RoleStudent {
			return nil, fmt.Errorf("%w: only a student may reference a parent", ErrValidation)
		}
		parent, err := s.users.GetByID(ctx, *input.ParentID)
		if err != nil {
			return nil, fmt.Errorf("get parent: %w", err)
		}
		if parent == nil || parent.Role != model.RoleParent {
			return nil, fmt.Errorf("%w: parent not found", ErrValidation)
		}
	}

	if input.Role == model.RoleTutor {
		for level, rate := range input.Rates {
			if !model.ValidLevel(level) {
				return nil, fmt.Errorf("%w: unknown level %q in rates", ErrValidation, level)
			}
			if rate <= 0 {
				return nil, fmt.Errorf("%w: rate must be positive", ErrValidation)
			}
		}
	}

	user := &model.User{
		ID:             uuid.New(),
		Name:           input.Name,
		Role:           input.Role,
		ParentID:       input.ParentID,
		Rates:          input.Rates,
		TelegramChatID: input.TelegramChatID,
		CreatedAt:      s.now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	return user, nil
}

// Actor собирает авторизационный контекст пользователя: роль и, для родителя,
// список его детей. Идентичность приходит из внешнего identity-слоя.
func (s *UserService) Actor(ctx context.Context, userID uuid.UUID) (Actor, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Actor{}, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return Actor{}, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	actor := Actor{
		ID:   user.ID,
		Role: user.Role,
	}

	if user.Role == model.RoleParent {
		children, err := s.users.ListChildIDs(ctx, user.ID)
		if err != nil {
			return Actor{}, fmt.Errorf("list children: %w", err)
		}
		actor.Children = children
	}

	return actor, nil
}

// Get возвращает пользователя по id
func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return user, nil
}

// ChatID реализует notify.ChatResolver поверх хранилища пользователей
func (s *UserService) ChatID(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, false, fmt.Errorf("get user: %w", err)
	}
	if user == nil || user.TelegramChatID == nil {
		return 0, false, nil
	}
	return *user.TelegramChatID, true, nil
}
