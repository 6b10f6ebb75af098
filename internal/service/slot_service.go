package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"go.uber.org/zap"
)

// SlotWriter создание слотов, используется только инструментами администратора
type SlotWriter interface {
	Create(ctx context.Context, slot *model.TimeSlot) error
}

// SlotDefinition параметры нового слота
type SlotDefinition struct {
	Date     string // YYYY-MM-DD
	Start    string // HH:MM
	End      string // HH:MM
	Capacity int
}

type SlotService struct {
	slots  SlotWriter
	clock  Clock
	logger *zap.Logger
}

func NewSlotService(slots SlotWriter, clock Clock, logger *zap.Logger) *SlotService {
	return &SlotService{slots: slots, clock: clock, logger: logger}
}

// CreateSlot добавляет слот в каталог
func (s *SlotService) CreateSlot(ctx context.Context, def SlotDefinition) (*model.TimeSlot, error) {
	date, err := model.ParseDate(def.Date)
	if err != nil {
		return nil, newError(KindInvalidInput, "Invalid slot date %q.", def.Date)
	}
	if date.Before(s.clock.Today()) {
		return nil, newError(KindDateOutOfRange, "Slot date must not be in the past.")
	}

	start, err := model.ParseTimeOfDay(def.Start)
	if err != nil {
		return nil, newError(KindInvalidInput, "Invalid start time %q.", def.Start)
	}
	end, err := model.ParseTimeOfDay(def.End)
	if err != nil {
		return nil, newError(KindInvalidInput, "Invalid end time %q.", def.End)
	}
	if end <= start || time.Duration(end) > 24*time.Hour {
		return nil, newError(KindInvalidInput, "Slot must end after it starts.")
	}

	if def.Capacity < 1 {
		return nil, newError(KindInvalidInput, "Capacity must be at least 1.")
	}

	slot := &model.TimeSlot{
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Capacity:    def.Capacity,
		IsAvailable: true,
	}

	if err := s.slots.Create(ctx, slot); err != nil {
		s.logger.Error("Failed to create slot", zap.Error(err))
		return nil, storageFailure(err)
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.String("date", def.Date),
		zap.String("start", start.String()),
		zap.Int("capacity", slot.Capacity),
	)

	return slot, nil
}
