package formatting

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
)

var weekdayShort = []string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

// FormatDate форматирует только дату
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatDateWithWeekday дата с коротким днём недели: 12.03.2026 (Чт)
func FormatDateWithWeekday(t time.Time) string {
	return fmt.Sprintf("%s (%s)", FormatDate(t), WeekdayShortName(t.Weekday()))
}

// FormatDayButton подпись кнопки выбора дня: Чт 12.03
func FormatDayButton(t time.Time) string {
	return fmt.Sprintf("%s %s", WeekdayShortName(t.Weekday()), t.Format("02.01"))
}

// FormatTimeRange диапазон времени приёма
func FormatTimeRange(start, end model.TimeOfDay) string {
	return fmt.Sprintf("%s-%s", start, end)
}

// WeekdayShortName краткое название дня недели на русском
func WeekdayShortName(weekday time.Weekday) string {
	if weekday >= 0 && int(weekday) < len(weekdayShort) {
		return weekdayShort[weekday]
	}
	return "?"
}

// ParseUserDate принимает дату как YYYY-MM-DD или ДД.ММ.ГГГГ
func ParseUserDate(s string) (time.Time, error) {
	if t, err := time.Parse("02.01.2006", s); err == nil {
		return model.DateOf(t), nil
	}
	return model.ParseDate(s)
}
