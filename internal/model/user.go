package model

import "time"

// Role роль пользователя в системе
type Role string

const (
	RolePatient Role = "patient"
	RoleStaff   Role = "staff"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	TelegramID   *int64    `json:"telegram_id,omitempty"` // привязка к Telegram, может быть nil
	CreatedAt    time.Time `json:"created_at"`
}

// Principal аутентифицированный участник запроса.
// Передаётся явно в каждый вызов сервиса вместо глобальной сессии.
type Principal struct {
	UserID int64
	Role   Role
}

// IsStaff проверяет что участник - сотрудник
func (p Principal) IsStaff() bool {
	return p.Role == RoleStaff
}

// Owns проверяет что запись принадлежит участнику
func (p Principal) Owns(a *Appointment) bool {
	return a != nil && a.UserID == p.UserID
}
