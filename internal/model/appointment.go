package model

import (
	"fmt"
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"   // Ожидает подтверждения
	AppointmentStatusConfirmed AppointmentStatus = "confirmed" // Подтверждено сотрудником
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // Отменено
	AppointmentStatusCompleted AppointmentStatus = "completed" // Приём состоялся
)

// AppointmentStatuses все статусы в порядке жизненного цикла
var AppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusCancelled,
	AppointmentStatusCompleted,
}

// ActiveStatuses статусы, занимающие место в слоте
var ActiveStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
}

// ParseAppointmentStatus разбирает статус из строки
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	for _, st := range AppointmentStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// IsActive pending и confirmed занимают место в слоте
func (s AppointmentStatus) IsActive() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

// IsTerminal из cancelled и completed переходов нет
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCancelled || s == AppointmentStatusCompleted
}

// Action действие над записью
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

// transitions таблица переходов жизненного цикла записи
var transitions = map[AppointmentStatus]map[Action]AppointmentStatus{
	AppointmentStatusPending: {
		ActionConfirm: AppointmentStatusConfirmed,
		ActionCancel:  AppointmentStatusCancelled,
	},
	AppointmentStatusConfirmed: {
		ActionCancel:   AppointmentStatusCancelled,
		ActionComplete: AppointmentStatusCompleted,
	},
}

// Next возвращает статус после действия или false, если переход запрещён
func (s AppointmentStatus) Next(action Action) (AppointmentStatus, bool) {
	next, ok := transitions[s][action]
	return next, ok
}

type Appointment struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"user_id"`
	TimeSlotID  int64             `json:"time_slot_id"`
	Date        time.Time         `json:"appointment_date"` // копия даты слота
	Time        TimeOfDay         `json:"appointment_time"` // копия начала слота
	Reason      string            `json:"reason"`
	Status      AppointmentStatus `json:"status"`
	Notes       string            `json:"notes"`
	ConfirmedBy *int64            `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	// Дополнительные поля для отображения (не из таблицы appointments)
	Slot *TimeSlot `json:"slot,omitempty"`
	User *User     `json:"user,omitempty"`
}

// StartsAt момент начала приёма
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	return a.Time.On(a.Date, loc)
}

// StatusChange изменение статуса записи, применяется условно к статусу From
type StatusChange struct {
	AppointmentID int64
	From          AppointmentStatus
	To            AppointmentStatus
	Notes         string
	ConfirmedBy   *int64
	ConfirmedAt   *time.Time
	UpdatedAt     time.Time
}

// AppendNote дописывает строку к заметкам; заметки только дополняются
func AppendNote(notes, line string) string {
	if line == "" {
		return notes
	}
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
