package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/repository"
	"go.uber.org/zap"
)

// MaxReasonLength ограничение длины причины визита в символах
const MaxReasonLength = 1000

// BookingRequest запрос пациента на запись
type BookingRequest struct {
	Date   string // YYYY-MM-DD
	SlotID int64
	Reason string
}

type BookingService struct {
	tx       TxManager
	users    UserStore
	slots    SlotCatalog
	ledger   BookingLedger
	settings SettingsProvider
	clock    Clock
	metrics  *metrics.Collector
	logger   *zap.Logger
}

func NewBookingService(
	tx TxManager,
	users UserStore,
	slots SlotCatalog,
	ledger BookingLedger,
	settings SettingsProvider,
	clock Clock,
	m *metrics.Collector,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		tx:       tx,
		users:    users,
		slots:    slots,
		ledger:   ledger,
		settings: settings,
		clock:    clock,
		metrics:  m,
		logger:   logger,
	}
}

// RequestBooking создаёт запись в статусе pending или возвращает BookingError.
// Правила проверяются по порядку, побеждает первое нарушенное. Места в слоте
// и дубликат перепроверяются в одной транзакции с вставкой под блокировками
// пользователя и слота, поэтому параллельные запросы не переполнят слот.
func (s *BookingService) RequestBooking(ctx context.Context, p model.Principal, req BookingRequest) (*model.Appointment, error) {
	appointment, err := s.requestBooking(ctx, p, req)

	result := "ok"
	if err != nil {
		result = string(KindOf(err))
	}
	s.metrics.ObserveBooking(result)

	return appointment, err
}

func (s *BookingService) requestBooking(ctx context.Context, p model.Principal, req BookingRequest) (*model.Appointment, error) {
	if p.Role != model.RolePatient {
		return nil, newError(KindForbidden, "Only patients can book appointments.")
	}

	settings := s.settings.Current()
	today := s.clock.Today()

	// 1. Дата корректна и не в прошлом
	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return nil, newError(KindInvalidInput, "Please select an appointment date.")
	}
	if date.Before(today) {
		return nil, newError(KindDateOutOfRange, "Please select a valid future date.")
	}

	// 2. Дата в пределах окна предварительной записи (граница включительно)
	if date.After(today.AddDate(0, 0, settings.BookingAdvanceDays)) {
		return nil, newError(KindDateOutOfRange,
			"You can only book appointments up to %d days in advance.", settings.BookingAdvanceDays)
	}

	// 3. Лимит активных записей пользователя
	if err := s.checkUserQuota(ctx, p.UserID, today, settings.MaxAppointmentsPerUser); err != nil {
		return nil, err
	}

	// 4. Слот существует, совпадает с датой и включён
	if req.SlotID <= 0 {
		return nil, newError(KindInvalidInput, "Please select a time slot.")
	}
	slot, err := s.slots.GetByID(ctx, req.SlotID)
	if err != nil {
		s.logger.Error("Failed to get slot", zap.Int64("slot_id", req.SlotID), zap.Error(err))
		return nil, storageFailure(err)
	}
	if err := s.checkSlot(slot, date); err != nil {
		return nil, err
	}

	// 5. Причина визита
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, newError(KindInvalidInput, "Please provide a reason for your appointment.")
	}
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return nil, newError(KindInvalidInput, "Reason must be at most %d characters.", MaxReasonLength)
	}

	appointment := &model.Appointment{
		UserID:     p.UserID,
		TimeSlotID: slot.ID,
		Date:       date,
		Time:       slot.StartTime,
		Reason:     reason,
		Status:     model.AppointmentStatusPending,
	}

	// 6-7. Атомарная перепроверка и вставка
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.commitBooking(ctx, appointment, date, today, settings)
	})
	if err != nil {
		var be *BookingError
		if errors.As(err, &be) {
			if be.Kind == KindStorageFailure {
				s.logger.Error("Booking transaction failed",
					zap.Int64("user_id", p.UserID),
					zap.Int64("slot_id", req.SlotID),
					zap.Error(be.Err),
				)
			}
			return nil, be
		}
		s.logger.Error("Booking transaction failed",
			zap.Int64("user_id", p.UserID),
			zap.Int64("slot_id", req.SlotID),
			zap.Error(err),
		)
		return nil, storageFailure(err)
	}

	appointment.Slot = slot

	s.logger.Info("Appointment booked",
		zap.Int64("appointment_id", appointment.ID),
		zap.Int64("user_id", p.UserID),
		zap.Int64("slot_id", slot.ID),
		zap.String("date", date.Format("2006-01-02")),
		zap.String("time", slot.StartTime.String()),
	)

	return appointment, nil
}

// commitBooking выполняется внутри транзакции.
// Порядок блокировок всегда пользователь, затем слот.
func (s *BookingService) commitBooking(ctx context.Context, a *model.Appointment, date, today time.Time, settings model.SystemSettings) error {
	user, err := s.users.LockByID(ctx, a.UserID)
	if err != nil {
		return storageFailure(err)
	}
	if user == nil || !user.IsActive {
		return newError(KindNotFound, "User account not found.")
	}

	// Лимит перепроверяется под блокировкой пользователя
	if err := s.checkUserQuota(ctx, a.UserID, today, settings.MaxAppointmentsPerUser); err != nil {
		return err
	}

	slot, err := s.slots.LockByID(ctx, a.TimeSlotID)
	if err != nil {
		return storageFailure(err)
	}
	if err := s.checkSlot(slot, date); err != nil {
		return err
	}

	available, err := availableCount(ctx, s.ledger, slot)
	if err != nil {
		return storageFailure(err)
	}
	if available <= 0 {
		return newError(KindSlotFull, "Selected time slot is fully booked.")
	}

	exists, err := s.ledger.ExistsActive(ctx, a.UserID, slot.ID, date)
	if err != nil {
		return storageFailure(err)
	}
	if exists {
		return newError(KindDuplicateBooking, "You already have an appointment at this time.")
	}

	if err := s.ledger.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrActiveDuplicate) {
			return newError(KindDuplicateBooking, "You already have an appointment at this time.")
		}
		return storageFailure(err)
	}

	return nil
}

// checkUserQuota число активных записей с сегодняшнего дня должно быть меньше лимита
func (s *BookingService) checkUserQuota(ctx context.Context, userID int64, today time.Time, limit int) error {
	active, err := s.ledger.CountActiveByUserFrom(ctx, userID, today)
	if err != nil {
		s.logger.Error("Failed to count user appointments", zap.Int64("user_id", userID), zap.Error(err))
		return storageFailure(err)
	}

	if active >= limit {
		return newError(KindCapacityExceeded,
			"You have reached the maximum number of active appointments (%d). "+
				"Please cancel or wait for existing appointments to complete.", limit)
	}

	return nil
}

// checkSlot слот существует, на запрошенную дату, включён и ещё не начался
func (s *BookingService) checkSlot(slot *model.TimeSlot, date time.Time) error {
	if slot == nil || !slot.Date.Equal(date) || !slot.IsBookable(s.clock.Today()) {
		return newError(KindSlotNotFound, "Selected time slot is not available.")
	}

	if s.clock.Started(slot) {
		return newError(KindDateOutOfRange, "Selected time slot has already started.")
	}

	return nil
}
