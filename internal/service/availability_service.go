package service

import (
	"context"
	"sort"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"go.uber.org/zap"
)

// AvailabilityService считает свободные места в слотах:
// available = capacity - count(pending, confirmed)
type AvailabilityService struct {
	slots  SlotCatalog
	ledger BookingLedger
	clock  Clock
	logger *zap.Logger
}

func NewAvailabilityService(slots SlotCatalog, ledger BookingLedger, clock Clock, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		slots:  slots,
		ledger: ledger,
		clock:  clock,
		logger: logger,
	}
}

// ListAvailableSlots возвращает открытые слоты на дату по возрастанию начала.
// Слоты без свободных мест, выключенные сотрудниками и уже начавшиеся
// не попадают в список.
// Результат носит справочный характер, при записи места проверяются заново.
func (s *AvailabilityService) ListAvailableSlots(ctx context.Context, dateStr string) ([]model.SlotAvailability, error) {
	date, err := model.ParseDate(dateStr)
	if err != nil {
		return nil, newError(KindInvalidInput, "Please select a valid date.")
	}

	if date.Before(s.clock.Today()) {
		return nil, newError(KindDateOutOfRange, "Please select a valid future date.")
	}

	slots, err := s.slots.GetByDate(ctx, date)
	if err != nil {
		s.logger.Error("Failed to get slots by date", zap.Time("date", date), zap.Error(err))
		return nil, storageFailure(err)
	}

	ids := make([]int64, 0, len(slots))
	for _, slot := range slots {
		ids = append(ids, slot.ID)
	}

	counts, err := s.ledger.CountActiveBySlots(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to count active appointments", zap.Time("date", date), zap.Error(err))
		return nil, storageFailure(err)
	}

	result := make([]model.SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		if !slot.IsAvailable || s.clock.Started(slot) {
			continue
		}
		available := slot.Capacity - counts[slot.ID]
		if available <= 0 {
			continue
		}
		result = append(result, model.SlotAvailability{Slot: slot, Available: available})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Slot.StartTime < result[j].Slot.StartTime
	})

	return result, nil
}

// AvailableCount свободные места слота на текущий момент.
// Внутри транзакции с заблокированным слотом значение точное.
func (s *AvailabilityService) AvailableCount(ctx context.Context, slot *model.TimeSlot) (int, error) {
	return availableCount(ctx, s.ledger, slot)
}

func availableCount(ctx context.Context, ledger BookingLedger, slot *model.TimeSlot) (int, error) {
	active, err := ledger.CountActiveBySlot(ctx, slot.ID)
	if err != nil {
		return 0, err
	}
	return slot.Capacity - active, nil
}
