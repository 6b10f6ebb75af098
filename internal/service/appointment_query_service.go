package service

import (
	"context"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"go.uber.org/zap"
)

// AppointmentQueryService чтение записей с учётом прав участника
type AppointmentQueryService struct {
	ledger BookingLedger
	slots  SlotCatalog
	clock  Clock
	logger *zap.Logger
}

func NewAppointmentQueryService(ledger BookingLedger, slots SlotCatalog, clock Clock, logger *zap.Logger) *AppointmentQueryService {
	return &AppointmentQueryService{
		ledger: ledger,
		slots:  slots,
		clock:  clock,
		logger: logger,
	}
}

// Get возвращает запись; пациент видит только свои записи
func (s *AppointmentQueryService) Get(ctx context.Context, p model.Principal, appointmentID int64) (*model.Appointment, error) {
	a, err := s.ledger.GetByID(ctx, appointmentID)
	if err != nil {
		s.logger.Error("Failed to get appointment", zap.Int64("appointment_id", appointmentID), zap.Error(err))
		return nil, storageFailure(err)
	}

	if a == nil {
		return nil, newError(KindNotFound, "Appointment not found.")
	}

	if !p.IsStaff() && !p.Owns(a) {
		return nil, newError(KindForbidden, "You do not have access to this appointment.")
	}

	slot, err := s.slots.GetByID(ctx, a.TimeSlotID)
	if err != nil {
		s.logger.Error("Failed to get appointment slot", zap.Int64("slot_id", a.TimeSlotID), zap.Error(err))
		return nil, storageFailure(err)
	}
	a.Slot = slot

	return a, nil
}

// AppointmentPage страница списка записей
type AppointmentPage struct {
	Items      []*model.Appointment `json:"items"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	TotalPages int                  `json:"total_pages"`
}

// ListForUser страница записей самого участника
func (s *AppointmentQueryService) ListForUser(ctx context.Context, p model.Principal, f model.AppointmentFilter, pageNumber int) (*AppointmentPage, error) {
	uid := p.UserID
	f.UserID = &uid
	return s.list(ctx, p, f, pageNumber)
}

// ListAll страница записей всех пациентов, только для сотрудников
func (s *AppointmentQueryService) ListAll(ctx context.Context, p model.Principal, f model.AppointmentFilter, pageNumber int) (*AppointmentPage, error) {
	if !p.IsStaff() {
		return nil, newError(KindForbidden, "Only staff can view all appointments.")
	}
	return s.list(ctx, p, f, pageNumber)
}

func (s *AppointmentQueryService) list(ctx context.Context, p model.Principal, f model.AppointmentFilter, pageNumber int) (*AppointmentPage, error) {
	f = s.scope(p, f)

	if pageNumber < 1 {
		pageNumber = 1
	}
	page := model.PageNumber(pageNumber)

	items, total, err := s.ledger.List(ctx, f, page)
	if err != nil {
		s.logger.Error("Failed to list appointments", zap.Int64("actor_id", p.UserID), zap.Error(err))
		return nil, storageFailure(err)
	}

	if items == nil {
		items = []*model.Appointment{}
	}

	return &AppointmentPage{
		Items:      items,
		Total:      total,
		Page:       pageNumber,
		TotalPages: (total + page.Limit - 1) / page.Limit,
	}, nil
}

// StatusCounts количество записей по статусам для бейджей фильтра.
// Пациент видит только свои записи.
func (s *AppointmentQueryService) StatusCounts(ctx context.Context, p model.Principal, f model.AppointmentFilter) (map[model.AppointmentStatus]int, error) {
	f = s.scope(p, f)

	counts, err := s.ledger.CountByStatus(ctx, f)
	if err != nil {
		s.logger.Error("Failed to count appointments by status", zap.Int64("actor_id", p.UserID), zap.Error(err))
		return nil, storageFailure(err)
	}

	for _, st := range model.AppointmentStatuses {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}

	return counts, nil
}

// scope пациент никогда не выходит за пределы своих записей
func (s *AppointmentQueryService) scope(p model.Principal, f model.AppointmentFilter) model.AppointmentFilter {
	if !p.IsStaff() {
		uid := p.UserID
		f.UserID = &uid
	}
	if f.DateRange == "" {
		f.DateRange = model.DateRangeAll
	}
	f.Today = s.clock.Today()
	return f
}
