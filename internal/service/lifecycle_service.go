package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/repository"
	"go.uber.org/zap"
)

// LifecycleService переводит записи по таблице переходов model.AppointmentStatus.Next.
// Права участника проверяются здесь, на границе, а не в самой машине состояний.
type LifecycleService struct {
	tx      TxManager
	ledger  BookingLedger
	clock   Clock
	metrics *metrics.Collector
	logger  *zap.Logger
}

func NewLifecycleService(tx TxManager, ledger BookingLedger, clock Clock, m *metrics.Collector, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		tx:      tx,
		ledger:  ledger,
		clock:   clock,
		metrics: m,
		logger:  logger,
	}
}

// Confirm pending -> confirmed, только сотрудник
func (s *LifecycleService) Confirm(ctx context.Context, p model.Principal, appointmentID int64, notes string) (*model.Appointment, error) {
	if !p.IsStaff() {
		return nil, newError(KindForbidden, "Only staff can confirm appointments.")
	}
	return s.transition(ctx, p, appointmentID, model.ActionConfirm, notes)
}

// Complete confirmed -> completed, только сотрудник и только после начала приёма
func (s *LifecycleService) Complete(ctx context.Context, p model.Principal, appointmentID int64, notes string) (*model.Appointment, error) {
	if !p.IsStaff() {
		return nil, newError(KindForbidden, "Only staff can complete appointments.")
	}
	return s.transition(ctx, p, appointmentID, model.ActionComplete, notes)
}

// Cancel pending|confirmed -> cancelled. Сотрудник отменяет любую запись,
// пациент только свою и только пока дата приёма не наступила.
func (s *LifecycleService) Cancel(ctx context.Context, p model.Principal, appointmentID int64, reason string) (*model.Appointment, error) {
	return s.transition(ctx, p, appointmentID, model.ActionCancel, reason)
}

func (s *LifecycleService) transition(ctx context.Context, p model.Principal, appointmentID int64, action model.Action, note string) (*model.Appointment, error) {
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > MaxReasonLength {
		return nil, newError(KindInvalidInput, "Notes must be at most %d characters.", MaxReasonLength)
	}

	var (
		updated *model.Appointment
		from    model.AppointmentStatus
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Блокировка строки: параллельные переходы видят зафиксированный статус
		a, err := s.ledger.LockByID(ctx, appointmentID)
		if err != nil {
			return storageFailure(err)
		}
		if a == nil {
			return newError(KindNotFound, "Appointment not found.")
		}

		if !p.IsStaff() && !p.Owns(a) {
			return newError(KindForbidden, "You do not have access to this appointment.")
		}

		next, ok := a.Status.Next(action)
		if !ok {
			return newError(KindInvalidTransition, "Cannot %s an appointment that is %s.", action, a.Status)
		}

		now := s.clock.now()

		switch {
		case action == model.ActionComplete && a.StartsAt(s.clock.Location).After(now):
			return newError(KindInvalidTransition, "Cannot complete an appointment that has not taken place yet.")
		case action == model.ActionCancel && !p.IsStaff() && !a.Date.After(s.clock.Today()):
			return newError(KindDateOutOfRange, "Cannot cancel appointments that have already passed.")
		}

		ch := &model.StatusChange{
			AppointmentID: a.ID,
			From:          a.Status,
			To:            next,
			Notes:         model.AppendNote(a.Notes, s.noteLine(p, action, note, now)),
			UpdatedAt:     now,
		}

		// Подтверждение и отмена сотрудником фиксируют кто и когда
		if p.IsStaff() && action != model.ActionComplete {
			staffID := p.UserID
			ch.ConfirmedBy = &staffID
			ch.ConfirmedAt = &now
		}

		if err := s.ledger.ApplyStatusChange(ctx, ch); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				return newError(KindInvalidTransition, "Appointment status has changed, please reload.")
			}
			return storageFailure(err)
		}

		from = a.Status
		a.Status = ch.To
		a.Notes = ch.Notes
		a.UpdatedAt = now
		if ch.ConfirmedBy != nil {
			a.ConfirmedBy = ch.ConfirmedBy
			a.ConfirmedAt = ch.ConfirmedAt
		}
		updated = a

		return nil
	})
	if err != nil {
		return nil, s.handleError(err, appointmentID, action)
	}

	s.metrics.ObserveTransition(string(from), string(updated.Status))

	s.logger.Info("Appointment status changed",
		zap.Int64("appointment_id", appointmentID),
		zap.Int64("actor_id", p.UserID),
		zap.String("actor_role", string(p.Role)),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
	)

	return updated, nil
}

// noteLine строка для журнала заметок записи
func (s *LifecycleService) noteLine(p model.Principal, action model.Action, note string, now time.Time) string {
	stamp := now.Format("2006-01-02 15:04")

	if !p.IsStaff() {
		// Отмена пациентом фиксируется всегда, даже без причины
		if note == "" {
			return fmt.Sprintf("[%s] Cancelled by patient.", stamp)
		}
		return fmt.Sprintf("[%s] Cancelled by patient. Reason: %s", stamp, note)
	}

	if note == "" {
		return ""
	}

	return fmt.Sprintf("[%s] %s by staff #%d: %s", stamp, actionPast(action), p.UserID, note)
}

func actionPast(action model.Action) string {
	switch action {
	case model.ActionConfirm:
		return "Confirmed"
	case model.ActionCancel:
		return "Cancelled"
	case model.ActionComplete:
		return "Completed"
	}
	return string(action)
}

func (s *LifecycleService) handleError(err error, appointmentID int64, action model.Action) error {
	var be *BookingError
	if !errors.As(err, &be) {
		be = storageFailure(err)
	}

	if be.Kind == KindStorageFailure {
		s.logger.Error("Appointment transition failed",
			zap.Int64("appointment_id", appointmentID),
			zap.String("action", string(action)),
			zap.Error(be.Err),
		)
	}

	return be
}
