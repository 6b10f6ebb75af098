package repository

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/clinic_booking/internal/model"
)

// whereBuilder собирает WHERE из фиксированных предикатов с позиционными параметрами
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

// arg добавляет параметр и возвращает его плейсхолдер
func (b *whereBuilder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *whereBuilder) add(clause string) {
	b.clauses = append(b.clauses, clause)
}

func (b *whereBuilder) sql() string {
	if len(b.clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(b.clauses, " AND ")
}

// likeEscaper экранирует спецсимволы LIKE в поисковой строке
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildAppointmentWhere переводит фильтр в WHERE по алиасам a (appointments) и u (users).
// Каждому ключу фильтра соответствует ровно один предикат.
func buildAppointmentWhere(f model.AppointmentFilter, withStatus bool) *whereBuilder {
	b := &whereBuilder{}

	if f.UserID != nil {
		b.add("a.user_id = " + b.arg(*f.UserID))
	}

	if withStatus && f.Status != "" {
		b.add("a.status = " + b.arg(string(f.Status)))
	}

	switch f.DateRange {
	case model.DateRangeToday:
		b.add("a.appointment_date = " + b.arg(dateToPG(f.Today)))
	case model.DateRangeUpcoming:
		b.add("a.appointment_date >= " + b.arg(dateToPG(f.Today)))
	case model.DateRangePast:
		b.add("a.appointment_date < " + b.arg(dateToPG(f.Today)))
	}

	if search := strings.TrimSpace(f.Search); search != "" {
		p := b.arg("%" + likeEscaper.Replace(search) + "%")
		b.add(fmt.Sprintf("(u.name ILIKE %[1]s OR u.email ILIKE %[1]s OR a.reason ILIKE %[1]s)", p))
	}

	return b
}
