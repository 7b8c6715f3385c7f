package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleParent  Role = "parent"
	RoleAdmin   Role = "admin"
)

// ValidRole проверяет что роль входит в закрытый список
func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleTutor, RoleParent, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Role           Role            `json:"role"` // Роль неизменяема после создания
	ParentID       *uuid.UUID      `json:"parent_id,omitempty"`        // Только для студентов
	Rates          map[Level]int64 `json:"rates,omitempty"`            // Ставки репетитора по уровням (минорные единицы за занятие)
	TelegramChatID *int64          `json:"telegram_chat_id,omitempty"` // Для уведомлений
	CreatedAt      time.Time       `json:"created_at"`
}

func (u *User) IsTutor() bool {
	return u.Role == RoleTutor
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
