package model

import (
	"fmt"
	"time"
)

// TimeOfDay время суток, смещение от полуночи
type TimeOfDay time.Duration

// ParseTimeOfDay разбирает время в формате 15:04 или 15:04:05
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// On возвращает момент времени в указанную дату
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(t))
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// TimeSlot бронируемый интервал в конкретную дату
type TimeSlot struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	StartTime   TimeOfDay `json:"start_time"`
	EndTime     TimeOfDay `json:"end_time"`
	Capacity    int       `json:"capacity"` // максимум одновременных записей, >= 1
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsBookable доступен ли слот для записи на дату today
func (s *TimeSlot) IsBookable(today time.Time) bool {
	return s.IsAvailable && !DateOf(s.Date).Before(DateOf(today))
}

// SlotAvailability слот с количеством свободных мест
type SlotAvailability struct {
	Slot      *TimeSlot `json:"slot"`
	Available int       `json:"available_count"`
}

// DateOf отбрасывает время и возвращает календарную дату в UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate разбирает дату в формате YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}
