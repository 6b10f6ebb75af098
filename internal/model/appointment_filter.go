package model

import (
	"math"
	"time"
)

// DateRange диапазон дат для фильтра записей
type DateRange string

const (
	DateRangeAll      DateRange = "all"
	DateRangeToday    DateRange = "today"
	DateRangeUpcoming DateRange = "upcoming"
	DateRangePast     DateRange = "past"
)

// ParseDateRange пустая строка трактуется как all
func ParseDateRange(s string) (DateRange, bool) {
	switch DateRange(s) {
	case "", DateRangeAll:
		return DateRangeAll, true
	case DateRangeToday, DateRangeUpcoming, DateRangePast:
		return DateRange(s), true
	}
	return "", false
}

// AppointmentFilter фильтр списка записей.
// Каждое поле отображается в отдельный параметризованный предикат.
type AppointmentFilter struct {
	UserID    *int64            // только записи пользователя
	Status    AppointmentStatus // пусто - все статусы
	DateRange DateRange
	Search    string    // имя, email или причина
	Today     time.Time // опорная дата для DateRange
}

// Page пагинация списков
type Page struct {
	Limit  int
	Offset int
}

// DefaultPageSize размер страницы списков
const DefaultPageSize = 15

// MaxPageNumber наибольший номер страницы, при котором смещение помещается в int4
const MaxPageNumber = math.MaxInt32 / DefaultPageSize

// PageNumber возвращает страницу по номеру, начиная с 1
func PageNumber(n int) Page {
	if n < 1 {
		n = 1
	}
	if n > MaxPageNumber {
		n = MaxPageNumber
	}
	return Page{Limit: DefaultPageSize, Offset: (n - 1) * DefaultPageSize}
}
