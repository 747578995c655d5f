package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	HTTP         ServerConfig
	MySQL        MySQLConfig
	Redis        RedisConfig
	Log          LogConfig
	Rocketgate   RocketgateConfig
	Transactions TransactionsConfig
	Jobs         JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL    string
	CvvTTL time.Duration
}

type LogConfig struct {
	Level string
}

type RocketgateConfig struct {
	GatewayURL       string
	MerchantID       string
	MerchantPassword string
	HTTPTimeout      time.Duration
}

type TransactionsConfig struct {
	NSFEnabledSiteIDs []string
	PendingTimeout    time.Duration
	JobBatchSize      int32
}

type JobsConfig struct {
	ExpirePendingInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "transactions-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
			CvvTTL: getMinutesEnv("REDIS_CVV_TTL_MINUTES", 15*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Rocketgate: RocketgateConfig{
			GatewayURL:       getEnv("ROCKETGATE_GATEWAY_URL", ""),
			MerchantID:       getEnv("ROCKETGATE_MERCHANT_ID", ""),
			MerchantPassword: getEnv("ROCKETGATE_MERCHANT_PASSWORD", ""),
			HTTPTimeout:      getSecondsEnv("ROCKETGATE_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Transactions: TransactionsConfig{
			NSFEnabledSiteIDs: getListEnv("TRANSACTIONS_NSF_ENABLED_SITE_IDS"),
			PendingTimeout:    getMinutesEnv("TRANSACTIONS_PENDING_TIMEOUT_MINUTES", 60*time.Minute),
			JobBatchSize:      int32(getIntEnv("TRANSACTIONS_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ExpirePendingInterval: getMinutesEnv("TRANSACTIONS_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
