package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Environment string `mapstructure:"ENV"`
	// Пусто: debug в development, info в остальных окружениях
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DBDSN      string `mapstructure:"DB_DSN"`
	DBMaxConns int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns int32  `mapstructure:"DB_MIN_CONNS"`

	HTTPAddr  string        `mapstructure:"HTTP_ADDR"`
	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`

	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`
	Timezone      string `mapstructure:"TIMEZONE"`

	// Значения по умолчанию, если в system_settings нет строк или они некорректны
	BookingAdvanceDays     int           `mapstructure:"BOOKING_ADVANCE_DAYS"`
	MaxAppointmentsPerUser int           `mapstructure:"MAX_APPOINTMENTS_PER_USER"`
	SettingsRefresh        time.Duration `mapstructure:"SETTINGS_REFRESH"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

// devJWTSecret используется только при ENV=development
const devJWTSecret = "dev-secret-change-me"

var defaults = map[string]interface{}{
	"ENV":                       "development",
	"DB_MAX_CONNS":              10,
	"DB_MIN_CONNS":              2,
	"HTTP_ADDR":                 ":8080",
	"TOKEN_TTL":                 "24h",
	"TIMEZONE":                  "Local",
	"BOOKING_ADVANCE_DAYS":      30,
	"MAX_APPOINTMENTS_PER_USER": 5,
	"SETTINGS_REFRESH":          "1m",
	"RATE_LIMIT_RPS":            5,
	"RATE_LIMIT_BURST":          10,
}

var envKeys = []string{
	"ENV", "LOG_LEVEL", "DB_DSN", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"HTTP_ADDR", "JWT_SECRET", "TOKEN_TTL",
	"TELEGRAM_TOKEN", "TIMEZONE",
	"BOOKING_ADVANCE_DAYS", "MAX_APPOINTMENTS_PER_USER", "SETTINGS_REFRESH",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return fromViper(viper.New())
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// Unmarshal видит только явно привязанные переменные окружения
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет обязательные поля и диапазоны
func (c *Config) Validate() error {
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required but not set")
	}

	if c.JWTSecret == "" {
		if !c.IsDev() {
			return fmt.Errorf("JWT_SECRET is required when ENV=%s", c.Environment)
		}
		log.Println("⚠️  JWT_SECRET is not set, using development secret")
		c.JWTSecret = devJWTSecret
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.SettingsRefresh <= 0 {
		return fmt.Errorf("SETTINGS_REFRESH must be positive, got %s", c.SettingsRefresh)
	}
	if c.BookingAdvanceDays < 1 || c.MaxAppointmentsPerUser < 1 {
		return fmt.Errorf("BOOKING_ADVANCE_DAYS and MAX_APPOINTMENTS_PER_USER must be at least 1")
	}
	if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid pool size: min %d, max %d", c.DBMinConns, c.DBMaxConns)
	}

	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
		}
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

func (c *Config) IsDev() bool {
	return c.Environment == "development"
}

// Location часовой пояс клиники
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// BotEnabled бот запускается только при заданном токене
func (c *Config) BotEnabled() bool {
	return c.TelegramToken != ""
}
