package repository

import (
	"testing"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
)

func TestBuildAppointmentWhere_Empty(t *testing.T) {
	b := buildAppointmentWhere(model.AppointmentFilter{}, true)
	if b.sql() != "TRUE" {
		t.Errorf("expected TRUE, got %q", b.sql())
	}
	if len(b.args) != 0 {
		t.Errorf("expected no args, got %d", len(b.args))
	}
}

func TestBuildAppointmentWhere_AllKeys(t *testing.T) {
	uid := int64(7)
	today := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	f := model.AppointmentFilter{
		UserID:    &uid,
		Status:    model.AppointmentStatusPending,
		DateRange: model.DateRangeUpcoming,
		Search:    "  smith ",
		Today:     today,
	}

	b := buildAppointmentWhere(f, true)

	want := "a.user_id = $1 AND a.status = $2 AND a.appointment_date >= $3 AND " +
		"(u.name ILIKE $4 OR u.email ILIKE $4 OR a.reason ILIKE $4)"
	if b.sql() != want {
		t.Errorf("unexpected sql:\n got %q\nwant %q", b.sql(), want)
	}
	if len(b.args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(b.args))
	}
	if b.args[1] != "pending" {
		t.Errorf("expected status arg pending, got %v", b.args[1])
	}
	if b.args[3] != "%smith%" {
		t.Errorf("expected search arg %%smith%%, got %v", b.args[3])
	}
}

func TestBuildAppointmentWhere_WithoutStatus(t *testing.T) {
	f := model.AppointmentFilter{Status: model.AppointmentStatusCancelled}
	b := buildAppointmentWhere(f, false)
	if b.sql() != "TRUE" {
		t.Errorf("status must be skipped, got %q", b.sql())
	}
}

func TestBuildAppointmentWhere_DateRanges(t *testing.T) {
	today := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		r    model.DateRange
		want string
	}{
		{model.DateRangeAll, "TRUE"},
		{model.DateRangeToday, "a.appointment_date = $1"},
		{model.DateRangeUpcoming, "a.appointment_date >= $1"},
		{model.DateRangePast, "a.appointment_date < $1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			b := buildAppointmentWhere(model.AppointmentFilter{DateRange: tt.r, Today: today}, true)
			if b.sql() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, b.sql())
			}
		})
	}
}

func TestBuildAppointmentWhere_EscapesLike(t *testing.T) {
	b := buildAppointmentWhere(model.AppointmentFilter{Search: `50%_off\`}, true)
	if b.args[0] != `%50\%\_off\\%` {
		t.Errorf("unexpected escaped search: %v", b.args[0])
	}
}
