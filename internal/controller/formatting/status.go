package formatting

import "github.com/Freeeeeet/clinic_booking/internal/model"

// StatusDisplay emoji и подпись статуса записи
type StatusDisplay struct {
	Emoji string
	Text  string
}

var statusDisplays = map[model.AppointmentStatus]StatusDisplay{
	model.AppointmentStatusPending:   {"⏳", "Ожидает подтверждения"},
	model.AppointmentStatusConfirmed: {"✅", "Подтверждена"},
	model.AppointmentStatusCompleted: {"✔️", "Приём состоялся"},
	model.AppointmentStatusCancelled: {"❌", "Отменена"},
}

// AppointmentStatusDisplay возвращает emoji и текст для статуса записи
func AppointmentStatusDisplay(status model.AppointmentStatus) StatusDisplay {
	if display, ok := statusDisplays[status]; ok {
		return display
	}
	return StatusDisplay{"❓", "Неизвестно"}
}
