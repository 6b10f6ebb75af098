package main

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/api"
	"github.com/Freeeeeet/clinic_booking/internal/app"
	"github.com/Freeeeeet/clinic_booking/internal/auth"
	"github.com/Freeeeeet/clinic_booking/internal/controller"
	"github.com/Freeeeeet/clinic_booking/internal/controller/handlers"
	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/repository"
	"github.com/Freeeeeet/clinic_booking/internal/repository/base"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on startup")

	return cmd
}

// services собранное ядро бронирования
type services struct {
	settings     *service.SettingsService
	booking      *service.BookingService
	lifecycle    *service.LifecycleService
	availability *service.AvailabilityService
	queries      *service.AppointmentQueryService
	users        *service.UserService
	slots        *service.SlotService
	clock        service.Clock
}

func buildServices(rt *runtimeEnv, m *metrics.Collector) (*services, error) {
	loc, err := rt.cfg.Location()
	if err != nil {
		return nil, err
	}

	tx := base.NewTxManager(rt.pool)
	userRepo := repository.NewUserRepository(rt.pool)
	slotRepo := repository.NewSlotRepository(rt.pool)
	appointmentRepo := repository.NewAppointmentRepository(rt.pool)
	settingRepo := repository.NewSettingRepository(rt.pool)

	clock := service.NewClock(loc)
	settings := service.NewSettingsService(settingRepo, model.SystemSettings{
		BookingAdvanceDays:     rt.cfg.BookingAdvanceDays,
		MaxAppointmentsPerUser: rt.cfg.MaxAppointmentsPerUser,
	}, m, rt.logger)

	return &services{
		settings:     settings,
		booking:      service.NewBookingService(tx, userRepo, slotRepo, appointmentRepo, settings, clock, m, rt.logger),
		lifecycle:    service.NewLifecycleService(tx, appointmentRepo, clock, m, rt.logger),
		availability: service.NewAvailabilityService(slotRepo, appointmentRepo, clock, rt.logger),
		queries:      service.NewAppointmentQueryService(appointmentRepo, slotRepo, clock, rt.logger),
		users:        service.NewUserService(tx, userRepo, rt.logger),
		slots:        service.NewSlotService(slotRepo, clock, rt.logger),
		clock:        clock,
	}, nil
}

func runServer(ctx context.Context, skipMigrations bool) error {
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	logger := rt.logger
	logger.Info("Starting clinic booking",
		zap.String("environment", rt.cfg.Environment),
		zap.String("http_addr", rt.cfg.HTTPAddr),
		zap.Bool("bot_enabled", rt.cfg.BotEnabled()))

	if !skipMigrations {
		migrator, err := app.NewMigrator(rt.pool, logger)
		if err != nil {
			return err
		}
		err = migrator.Up(ctx)
		migrator.Close()
		if err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewCollector(registry)

	svc, err := buildServices(rt, m)
	if err != nil {
		return err
	}

	refresher := app.NewSettingsRefresher(svc.settings, rt.cfg.SettingsRefresh, logger)
	refresher.Start(ctx)
	defer refresher.Stop()

	server := api.NewServer(rt.cfg.HTTPAddr, api.Deps{
		Booking:        svc.booking,
		Lifecycle:      svc.lifecycle,
		Availability:   svc.availability,
		Queries:        svc.queries,
		Accounts:       svc.users,
		Tokens:         auth.NewTokenIssuer(rt.cfg.JWTSecret, rt.cfg.TokenTTL),
		DB:             rt.pool,
		Gatherer:       registry,
		Metrics:        m,
		Logger:         logger,
		RateLimitRPS:   rt.cfg.RateLimitRPS,
		RateLimitBurst: rt.cfg.RateLimitBurst,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	botCtx, stopBot := context.WithCancel(ctx)
	defer stopBot()

	if rt.cfg.BotEnabled() {
		if err := startBot(botCtx, rt, svc); err != nil {
			logger.Error("Telegram bot disabled", zap.Error(err))
		}
	} else {
		logger.Info("TELEGRAM_TOKEN is empty, bot is disabled")
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server stopped", zap.Error(err))
			return err
		}
	}

	stopBot()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}

	logger.Info("Clinic booking stopped")
	return nil
}

func startBot(ctx context.Context, rt *runtimeEnv, svc *services) error {
	b, err := bot.New(rt.cfg.TelegramToken)
	if err != nil {
		return err
	}

	c := controller.NewBotController(b, handlers.Deps{
		Accounts:     svc.users,
		Booking:      svc.booking,
		Canceller:    svc.lifecycle,
		Slots:        svc.availability,
		Appointments: svc.queries,
		Calendar:     service.NewBookingWindow(svc.clock, svc.settings),
	}, rt.logger)

	if err := c.RegisterHandlers(ctx); err != nil {
		// Меню команд не критично, бот работает и без него
		rt.logger.Warn("Bot commands were not registered", zap.Error(err))
	}

	go func() {
		_ = c.Start(ctx)
	}()

	return nil
}
