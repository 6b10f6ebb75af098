package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/controller/state"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"go.uber.org/zap"
)

// Accounts привязка Telegram к учётной записи клиники
type Accounts interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	LinkTelegram(ctx context.Context, telegramID int64, email, password string) (*model.User, error)
}

type Booker interface {
	RequestBooking(ctx context.Context, p model.Principal, req service.BookingRequest) (*model.Appointment, error)
}

type Canceller interface {
	Cancel(ctx context.Context, p model.Principal, appointmentID int64, reason string) (*model.Appointment, error)
}

type SlotLister interface {
	ListAvailableSlots(ctx context.Context, date string) ([]model.SlotAvailability, error)
}

type AppointmentLister interface {
	ListForUser(ctx context.Context, p model.Principal, f model.AppointmentFilter, page int) (*service.AppointmentPage, error)
}

// Calendar окно дат, доступных для записи
type Calendar interface {
	Today() time.Time
	AdvanceDays() int
}

// Handlers содержит все зависимости для обработки команд и кнопок
type Handlers struct {
	accounts     Accounts
	booking      Booker
	canceller    Canceller
	slots        SlotLister
	appointments AppointmentLister
	calendar     Calendar
	stateManager *state.Manager
	logger       *zap.Logger
}

// Deps зависимости обработчиков бота
type Deps struct {
	Accounts     Accounts
	Booking      Booker
	Canceller    Canceller
	Slots        SlotLister
	Appointments AppointmentLister
	Calendar     Calendar
	StateManager *state.Manager
	Logger       *zap.Logger
}

func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		accounts:     d.Accounts,
		booking:      d.Booking,
		canceller:    d.Canceller,
		slots:        d.Slots,
		appointments: d.Appointments,
		calendar:     d.Calendar,
		stateManager: d.StateManager,
		logger:       d.Logger,
	}
}
