package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SettingsReloader источник настроек, который умеет перечитываться
type SettingsReloader interface {
	Refresh(ctx context.Context) error
}

// SettingsRefresher периодически перечитывает system_settings
type SettingsRefresher struct {
	settings SettingsReloader
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
}

func NewSettingsRefresher(settings SettingsReloader, interval time.Duration, logger *zap.Logger) *SettingsRefresher {
	return &SettingsRefresher{
		settings: settings,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start загружает настройки сразу и запускает фоновое обновление
func (r *SettingsRefresher) Start(ctx context.Context) {
	r.logger.Info("Starting settings refresher", zap.Duration("interval", r.interval))

	r.refresh(ctx)
	go r.run(ctx)
}

// Stop останавливает обновление и ждёт выхода горутины
func (r *SettingsRefresher) Stop() {
	r.logger.Info("Stopping settings refresher")
	close(r.stopChan)
	<-r.done
}

func (r *SettingsRefresher) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *SettingsRefresher) refresh(ctx context.Context) {
	if err := r.settings.Refresh(ctx); err != nil {
		// Остаются последние загруженные значения
		r.logger.Warn("Failed to refresh system settings", zap.Error(err))
	}
}
