package model

import (
	"testing"
	"time"
)

func TestAppointmentStatusNext(t *testing.T) {
	tests := []struct {
		from   AppointmentStatus
		action Action
		want   AppointmentStatus
		ok     bool
	}{
		{AppointmentStatusPending, ActionConfirm, AppointmentStatusConfirmed, true},
		{AppointmentStatusPending, ActionCancel, AppointmentStatusCancelled, true},
		{AppointmentStatusPending, ActionComplete, "", false},
		{AppointmentStatusConfirmed, ActionConfirm, "", false},
		{AppointmentStatusConfirmed, ActionCancel, AppointmentStatusCancelled, true},
		{AppointmentStatusConfirmed, ActionComplete, AppointmentStatusCompleted, true},
		{AppointmentStatusCancelled, ActionConfirm, "", false},
		{AppointmentStatusCancelled, ActionCancel, "", false},
		{AppointmentStatusCompleted, ActionCancel, "", false},
		{AppointmentStatusCompleted, ActionComplete, "", false},
	}

	for _, tt := range tests {
		got, ok := tt.from.Next(tt.action)
		if ok != tt.ok || got != tt.want {
			t.Errorf("%s.Next(%s) = %q, %v; want %q, %v", tt.from, tt.action, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	for _, st := range AppointmentStatuses {
		if st.IsActive() == st.IsTerminal() {
			t.Errorf("%s must be exactly one of active or terminal", st)
		}
		if !st.IsTerminal() {
			continue
		}
		for _, action := range []Action{ActionConfirm, ActionCancel, ActionComplete} {
			if _, ok := st.Next(action); ok {
				t.Errorf("%s allows %s", st, action)
			}
		}
	}
}

func TestParseAppointmentStatus(t *testing.T) {
	if st, err := ParseAppointmentStatus("confirmed"); err != nil || st != AppointmentStatusConfirmed {
		t.Errorf("got %q, %v", st, err)
	}
	if _, err := ParseAppointmentStatus("Confirmed"); err == nil {
		t.Error("status parsing is case sensitive")
	}
}

func TestAppendNote(t *testing.T) {
	notes := AppendNote("", "")
	if notes != "" {
		t.Errorf("empty line changed notes: %q", notes)
	}
	notes = AppendNote(notes, "first")
	notes = AppendNote(notes, "")
	notes = AppendNote(notes, "second")
	if notes != "first\nsecond" {
		t.Errorf("notes = %q", notes)
	}
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	if err != nil {
		t.Fatalf("ParseTimeOfDay: %v", err)
	}
	if tod.String() != "09:30" {
		t.Errorf("String = %q", tod.String())
	}

	withSeconds, err := ParseTimeOfDay("09:30:00")
	if err != nil || withSeconds != tod {
		t.Errorf("ParseTimeOfDay with seconds = %v, %v", withSeconds, err)
	}

	if _, err := ParseTimeOfDay("9.30"); err == nil {
		t.Error("expected error")
	}

	loc := time.FixedZone("clinic", 3*60*60)
	at := tod.On(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), loc)
	want := time.Date(2026, 3, 10, 9, 30, 0, 0, loc)
	if !at.Equal(want) {
		t.Errorf("On = %v, want %v", at, want)
	}
}

func TestTimeSlotIsBookable(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	slot := &TimeSlot{Date: today, IsAvailable: true}

	if !slot.IsBookable(today) {
		t.Error("slot today should be bookable")
	}
	if slot.IsBookable(today.AddDate(0, 0, 1)) {
		t.Error("slot in the past should not be bookable")
	}
	slot.IsAvailable = false
	if slot.IsBookable(today) {
		t.Error("disabled slot should not be bookable")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-10")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Location() != time.UTC || d.Hour() != 0 {
		t.Errorf("date = %v", d)
	}
	for _, bad := range []string{"", "2026-3-10", "10.03.2026", "2026-02-30"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) succeeded", bad)
		}
	}
}

func TestPrincipal(t *testing.T) {
	p := Principal{UserID: 7, Role: RolePatient}
	if p.IsStaff() {
		t.Error("patient is not staff")
	}
	if !p.Owns(&Appointment{UserID: 7}) || p.Owns(&Appointment{UserID: 8}) || p.Owns(nil) {
		t.Error("Owns mismatch")
	}
}
