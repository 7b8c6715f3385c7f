package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ratesJSON, err := json.Marshal(user.Rates)
	if err != nil {
		return fmt.Errorf("marshal rates: %w", err)
	}

	query := `
		INSERT INTO users (id, name, role, parent_id, rates, telegram_chat_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.pool.Exec(
		ctx, query,
		user.ID,
		user.Name,
		user.Role,
		user.ParentID,
		ratesJSON,
		user.TelegramChatID,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, name, role, parent_id, rates, telegram_chat_id, created_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	var ratesJSON []byte

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Role,
		&user.ParentID,
		&ratesJSON,
		&user.TelegramChatID,
		&user.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	if len(ratesJSON) > 0 {
		if err := json.Unmarshal(ratesJSON, &user.Rates); err != nil {
			return nil, fmt.Errorf("unmarshal rates: %w", err)
		}
	}

	return &user, nil
}

// ListChildIDs получает идентификаторы детей родителя
func (r *UserRepository) ListChildIDs(ctx context.Context, parentID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT id FROM users WHERE parent_id = $1`

	rows, err := r.pool.Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan child id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
