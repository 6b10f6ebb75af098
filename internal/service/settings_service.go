package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"go.uber.org/zap"
)

// SettingsService кэширует system_settings. Настройками владеет админка,
// ядро их только читает.
type SettingsService struct {
	store    SettingsStore
	fallback model.SystemSettings
	metrics  *metrics.Collector
	logger   *zap.Logger

	mu      sync.RWMutex
	current model.SystemSettings
}

func NewSettingsService(store SettingsStore, fallback model.SystemSettings, m *metrics.Collector, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		store:    store,
		fallback: fallback,
		metrics:  m,
		logger:   logger,
		current:  fallback,
	}
}

// Current возвращает снимок настроек
func (s *SettingsService) Current() model.SystemSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refresh перечитывает настройки из хранилища.
// При ошибке остаются последние успешно прочитанные значения.
func (s *SettingsService) Refresh(ctx context.Context) error {
	raw, err := s.store.GetAll(ctx)
	if err != nil {
		s.metrics.ObserveSettingsReload(false)
		return fmt.Errorf("load settings: %w", err)
	}

	next := model.SystemSettings{
		BookingAdvanceDays:     s.positiveInt(raw, model.SettingBookingAdvanceDays, s.fallback.BookingAdvanceDays),
		MaxAppointmentsPerUser: s.positiveInt(raw, model.SettingMaxAppointmentsPerUser, s.fallback.MaxAppointmentsPerUser),
	}

	s.mu.Lock()
	changed := next != s.current
	s.current = next
	s.mu.Unlock()

	s.metrics.ObserveSettingsReload(true)

	if changed {
		s.logger.Info("System settings updated",
			zap.Int("booking_advance_days", next.BookingAdvanceDays),
			zap.Int("max_appointments_per_user", next.MaxAppointmentsPerUser),
		)
	}

	return nil
}

func (s *SettingsService) positiveInt(raw map[string]string, key string, def int) int {
	value, ok := raw[key]
	if !ok {
		return def
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		s.logger.Warn("Invalid system setting, using default",
			zap.String("key", key),
			zap.String("value", value),
			zap.Int("default", def),
		)
		return def
	}

	return n
}
