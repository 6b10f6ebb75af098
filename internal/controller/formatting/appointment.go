package formatting

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/clinic_booking/internal/model"
)

// FormatAppointment карточка записи для сообщения в HTML разметке
func FormatAppointment(a *model.Appointment) string {
	display := AppointmentStatusDisplay(a.Status)

	when := a.Time.String()
	if a.Slot != nil {
		when = FormatTimeRange(a.Slot.StartTime, a.Slot.EndTime)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>Запись #%d</b>\n", display.Emoji, a.ID)
	fmt.Fprintf(&sb, "📅 %s, %s\n", FormatDateWithWeekday(a.Date), when)
	fmt.Fprintf(&sb, "📊 %s\n", display.Text)
	fmt.Fprintf(&sb, "📝 %s", Escape(a.Reason))

	return sb.String()
}

// FormatSlotLine строка слота со свободными местами
func FormatSlotLine(s model.SlotAvailability) string {
	return fmt.Sprintf("🕐 %s: свободно %d %s",
		FormatTimeRange(s.Slot.StartTime, s.Slot.EndTime),
		s.Available, PluralizeSeats(s.Available))
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape экранирует пользовательский текст для ParseModeHTML
func Escape(s string) string {
	return htmlEscaper.Replace(s)
}
