package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
)

// TxManager выполняет fn атомарно: все изменения фиксируются или откатываются вместе
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SlotCatalog чтение каталога слотов
type SlotCatalog interface {
	GetByID(ctx context.Context, id int64) (*model.TimeSlot, error)
	LockByID(ctx context.Context, id int64) (*model.TimeSlot, error)
	GetByDate(ctx context.Context, date time.Time) ([]*model.TimeSlot, error)
}

// BookingLedger журнал записей
type BookingLedger interface {
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id int64) (*model.Appointment, error)
	LockByID(ctx context.Context, id int64) (*model.Appointment, error)
	CountActiveBySlot(ctx context.Context, slotID int64) (int, error)
	CountActiveBySlots(ctx context.Context, slotIDs []int64) (map[int64]int, error)
	CountActiveByUserFrom(ctx context.Context, userID int64, from time.Time) (int, error)
	ExistsActive(ctx context.Context, userID, slotID int64, date time.Time) (bool, error)
	ApplyStatusChange(ctx context.Context, ch *model.StatusChange) error
	List(ctx context.Context, f model.AppointmentFilter, page model.Page) ([]*model.Appointment, int, error)
	CountByStatus(ctx context.Context, f model.AppointmentFilter) (map[model.AppointmentStatus]int, error)
}

// UserStore хранилище пользователей
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	LockByID(ctx context.Context, id int64) (*model.User, error)
	SetTelegramID(ctx context.Context, userID, telegramID int64) error
}

// SettingsStore хранилище system_settings
type SettingsStore interface {
	GetAll(ctx context.Context) (map[string]string, error)
}

// SettingsProvider текущие настройки бронирования
type SettingsProvider interface {
	Current() model.SystemSettings
}

// Clock текущее время в часовом поясе клиники
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// NewClock часы на системном времени
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{Now: time.Now, Location: loc}
}

func (c Clock) now() time.Time {
	return c.Now().In(c.Location)
}

// Today текущая календарная дата
func (c Clock) Today() time.Time {
	return model.DateOf(c.now())
}

// Started приём в слоте уже начался
func (c Clock) Started(slot *model.TimeSlot) bool {
	return !slot.StartTime.On(slot.Date, c.Location).After(c.now())
}

// BookingWindow окно дат, открытых для записи: от сегодня на AdvanceDays вперёд
type BookingWindow struct {
	clock    Clock
	settings SettingsProvider
}

func NewBookingWindow(clock Clock, settings SettingsProvider) BookingWindow {
	return BookingWindow{clock: clock, settings: settings}
}

func (w BookingWindow) Today() time.Time {
	return w.clock.Today()
}

func (w BookingWindow) AdvanceDays() int {
	return w.settings.Current().BookingAdvanceDays
}
