package state

import "time"

// UserState текущий шаг диалога пользователя
type UserState string

const (
	StateNone UserState = "" // Нет активного диалога

	// Пациент выбрал слот и вводит причину визита
	StateBookingReason UserState = "booking_reason"

	// Пациент отменяет запись и вводит причину отмены
	StateCancelReason UserState = "cancel_reason"
)

// Ключи данных диалога
const (
	KeySlotID        = "slot_id"
	KeyDate          = "date"
	KeyAppointmentID = "appointment_id"
)

// UserData хранит временные данные пользователя во время диалога
type UserData struct {
	State     UserState
	Data      map[string]interface{}
	UpdatedAt time.Time
}
