// Package config loads the swingbot configuration surface from the
// environment (with an optional local .env for convenience), the same way
// the teacher module's services are configured.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/kis-trader/swingbot/internal/domain"
)

// BrokerMode selects which tr-id/endpoint family the adapter targets.
type BrokerMode string

const (
	ModeReal BrokerMode = "real"
	ModeMock BrokerMode = "mock"
)

// Config holds every option named in spec §6.
type Config struct {
	// Server
	Port    int
	DevMode bool

	// Database
	DatabasePath string
	ArchiveDir   string

	// Logging
	LogLevel string

	// broker.*
	BrokerBaseURLReal string
	BrokerBaseURLMock string
	BrokerAppKey      string
	BrokerAppSecret   string
	AccountNumber     string
	AccountProduct    string
	BrokerMode        BrokerMode

	// exchange.ref.*
	ExchangeRefKospiURL string
	ExchangeRefKosdaqURL string
	ExchangeRefKey       string

	// notify.*
	NotifyWebhookURL string

	// trading.*
	ContractRate float64
	LimitPrice   int64
	LimitCnt     int

	BuyUseYN      domain.YesNo
	TestForceBuy  domain.YesNo

	SellUpRate       float64
	SellDownRate     float64
	UseLossCut       domain.YesNo
	SellHoldRate     float64
	TestForceSell    domain.YesNo
}

// Load reads configuration from the environment, applying the documented
// defaults for optional fields.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnvAsInt("PORT", 8080),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		DatabasePath: getEnv("DATABASE_PATH", "./data/swingbot.db"),
		ArchiveDir:   getEnv("ARCHIVE_DIR", "./data/archive"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		BrokerBaseURLReal: getEnv("BROKER_BASE_URL_REAL", "https://openapi.koreainvestment.com:9443"),
		BrokerBaseURLMock: getEnv("BROKER_BASE_URL_MOCK", "https://openapivts.koreainvestment.com:29443"),
		BrokerAppKey:      getEnv("BROKER_APP_KEY", ""),
		BrokerAppSecret:   getEnv("BROKER_APP_SECRET", ""),
		AccountNumber:     getEnv("BROKER_ACCOUNT_NUMBER", ""),
		AccountProduct:    getEnv("BROKER_ACCOUNT_PRODUCT", "01"),
		BrokerMode:        BrokerMode(getEnv("BROKER_MODE", string(ModeMock))),

		ExchangeRefKospiURL:  getEnv("EXCHANGE_REF_KOSPI_URL", ""),
		ExchangeRefKosdaqURL: getEnv("EXCHANGE_REF_KOSDAQ_URL", ""),
		ExchangeRefKey:       getEnv("EXCHANGE_REF_KEY", ""),

		NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),

		ContractRate: getEnvAsFloat("TRADING_CONTRACT_RATE", 0.1),
		LimitPrice:   getEnvAsInt64("TRADING_LIMIT_PRICE", 1_000_000),
		LimitCnt:     getEnvAsInt("TRADING_LIMIT_CNT", 10),

		BuyUseYN:     domain.YesNo(getEnv("TRADING_BUY_USE_YN", "Y")),
		TestForceBuy: domain.YesNo(getEnv("TRADING_BUY_TEST_FORCE_BUY", "N")),

		SellUpRate:    getEnvAsFloat("TRADING_SELL_UP_RATE", 10),
		SellDownRate:  getEnvAsFloat("TRADING_SELL_DOWN_RATE", -10),
		UseLossCut:    domain.YesNo(getEnv("TRADING_SELL_USE_LOSS_CUT", "Y")),
		SellHoldRate:  getEnvAsFloat("TRADING_SELL_HOLD_RATE", 0.5),
		TestForceSell: domain.YesNo(getEnv("TRADING_SELL_TEST_FORCE_SELL", "N")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks invariants on the loaded configuration that would
// otherwise surface as confusing runtime failures.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.BrokerMode != ModeReal && c.BrokerMode != ModeMock {
		return fmt.Errorf("BROKER_MODE must be %q or %q, got %q", ModeReal, ModeMock, c.BrokerMode)
	}
	if c.ContractRate < 0 || c.ContractRate > 1 {
		return fmt.Errorf("TRADING_CONTRACT_RATE must be within [0,1], got %v", c.ContractRate)
	}
	if c.SellHoldRate < 0 || c.SellHoldRate > 1 {
		return fmt.Errorf("TRADING_SELL_HOLD_RATE must be within [0,1], got %v", c.SellHoldRate)
	}
	return nil
}

// BaseURL returns the active endpoint family for the configured mode.
func (c *Config) BaseURL() string {
	if c.BrokerMode == ModeReal {
		return c.BrokerBaseURLReal
	}
	return c.BrokerBaseURLMock
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
