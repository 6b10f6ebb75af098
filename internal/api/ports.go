package api

import (
	"context"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/service"
)

// Зависимости обработчиков. Реализуются сервисами из internal/service.

type Booker interface {
	RequestBooking(ctx context.Context, p model.Principal, req service.BookingRequest) (*model.Appointment, error)
}

type Lifecycle interface {
	Confirm(ctx context.Context, p model.Principal, appointmentID int64, notes string) (*model.Appointment, error)
	Complete(ctx context.Context, p model.Principal, appointmentID int64, notes string) (*model.Appointment, error)
	Cancel(ctx context.Context, p model.Principal, appointmentID int64, reason string) (*model.Appointment, error)
}

type Availability interface {
	ListAvailableSlots(ctx context.Context, date string) ([]model.SlotAvailability, error)
}

type AppointmentQueries interface {
	Get(ctx context.Context, p model.Principal, appointmentID int64) (*model.Appointment, error)
	ListForUser(ctx context.Context, p model.Principal, f model.AppointmentFilter, page int) (*service.AppointmentPage, error)
	ListAll(ctx context.Context, p model.Principal, f model.AppointmentFilter, page int) (*service.AppointmentPage, error)
	StatusCounts(ctx context.Context, p model.Principal, f model.AppointmentFilter) (map[model.AppointmentStatus]int, error)
}

type Accounts interface {
	Register(ctx context.Context, r service.Registration) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
}

type Tokens interface {
	Issue(p model.Principal) (string, time.Time, error)
	Parse(raw string) (model.Principal, error)
}

// Pinger проверка доступности базы для /healthz
type Pinger interface {
	Ping(ctx context.Context) error
}
