package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/clinic_booking/internal/app"
	"github.com/Freeeeeet/clinic_booking/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinic",
		Short:         "Clinic appointment booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(slotsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// runtimeEnv общие зависимости всех команд
type runtimeEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func bootstrap(ctx context.Context) (*runtimeEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)

	pool, err := app.NewPool(ctx, cfg.DBDSN, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		_ = logger.Sync()
		return nil, err
	}

	return &runtimeEnv{cfg: cfg, logger: logger, pool: pool}, nil
}

func (rt *runtimeEnv) Close() {
	rt.pool.Close()
	_ = rt.logger.Sync()
}
