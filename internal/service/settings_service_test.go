package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"go.uber.org/zap"
)

func TestSettingsRefresh(t *testing.T) {
	store := newMemStore()
	svc := NewSettingsService(memSettings{store}, model.DefaultSystemSettings(), nil, zap.NewNop())

	if got := svc.Current(); got != model.DefaultSystemSettings() {
		t.Fatalf("initial = %+v, want defaults", got)
	}

	store.settings[model.SettingBookingAdvanceDays] = "14"
	store.settings[model.SettingMaxAppointmentsPerUser] = "3"
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := svc.Current(); got.BookingAdvanceDays != 14 || got.MaxAppointmentsPerUser != 3 {
		t.Errorf("current = %+v", got)
	}

	// некорректное значение заменяется значением по умолчанию
	store.settings[model.SettingMaxAppointmentsPerUser] = "zero"
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := svc.Current(); got.MaxAppointmentsPerUser != 5 || got.BookingAdvanceDays != 14 {
		t.Errorf("current = %+v", got)
	}

	// при ошибке хранилища остаются прежние значения
	store.failWith = errors.New("db down")
	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := svc.Current(); got.BookingAdvanceDays != 14 {
		t.Errorf("settings lost after failed refresh: %+v", got)
	}
}

func TestBookingUsesCurrentSettings(t *testing.T) {
	store := newMemStore()
	settings := NewSettingsService(memSettings{store}, model.DefaultSystemSettings(), nil, zap.NewNop())
	booking := NewBookingService(&memTx{}, memUsers{store}, memSlots{store}, memLedger{store}, settings, testClock(), nil, zap.NewNop())
	user := store.addUser(model.RolePatient)
	slot := store.addSlot(10, "09:00", 1)
	req := BookingRequest{Date: dayStr(10), SlotID: slot.ID, Reason: "visit"}

	store.settings[model.SettingBookingAdvanceDays] = "7"
	if err := settings.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if _, err := booking.RequestBooking(context.Background(), patient(user), req); !errors.Is(err, ErrDateOutOfRange) {
		t.Fatalf("err = %v, want DateOutOfRange with 7 day window", err)
	}
}

func TestBookingWindow(t *testing.T) {
	store := newMemStore()
	svc := NewSettingsService(memSettings{store}, model.DefaultSystemSettings(), nil, zap.NewNop())
	w := NewBookingWindow(testClock(), svc)

	if !w.Today().Equal(day(0)) {
		t.Errorf("Today = %v", w.Today())
	}
	if w.AdvanceDays() != model.DefaultSystemSettings().BookingAdvanceDays {
		t.Errorf("AdvanceDays = %d", w.AdvanceDays())
	}

	store.settings[model.SettingBookingAdvanceDays] = "3"
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if w.AdvanceDays() != 3 {
		t.Errorf("AdvanceDays after refresh = %d", w.AdvanceDays())
	}
}
