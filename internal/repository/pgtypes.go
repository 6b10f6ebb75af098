package repository

import (
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/jackc/pgx/v5/pgtype"
)

// timeOfDayToPG конвертирует время суток в TIME
func timeOfDayToPG(t model.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: time.Duration(t).Microseconds(), Valid: true}
}

// timeOfDayFromPG конвертирует TIME во время суток
func timeOfDayFromPG(t pgtype.Time) model.TimeOfDay {
	return model.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond)
}

// dateToPG конвертирует календарную дату в DATE
func dateToPG(t time.Time) pgtype.Date {
	return pgtype.Date{Time: model.DateOf(t), Valid: true}
}
