package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/transactions?parseTime=true")
	setEnv(t, "APP_SERVICE_NAME", "transactions-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "MYSQL_MAX_OPEN_CONNS", "20")
	setEnv(t, "MYSQL_MAX_IDLE_CONNS", "8")
	setEnv(t, "MYSQL_CONN_MAX_LIFETIME_MINUTES", "40")
	setEnv(t, "REDIS_CVV_TTL_MINUTES", "9")
	setEnv(t, "ROCKETGATE_HTTP_TIMEOUT_SECONDS", "4")
	setEnv(t, "TRANSACTIONS_NSF_ENABLED_SITE_IDS", "site-a, site-b,,site-c")
	setEnv(t, "TRANSACTIONS_PENDING_TIMEOUT_MINUTES", "11")
	setEnv(t, "TRANSACTIONS_JOB_BATCH_SIZE", "99")
	setEnv(t, "TRANSACTIONS_EXPIRE_PENDING_INTERVAL_MINUTES", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "transactions-test" {
		t.Fatalf("unexpected app service name: %s", cfg.App.ServiceName)
	}
	if cfg.HTTP.Port != "8181" {
		t.Fatalf("unexpected http port: %s", cfg.HTTP.Port)
	}
	if cfg.MySQL.MaxOpenConns != 20 || cfg.MySQL.MaxIdleConns != 8 {
		t.Fatalf("unexpected mysql pool config: %+v", cfg.MySQL)
	}
	if cfg.MySQL.ConnMaxLifetime != 40*time.Minute {
		t.Fatalf("unexpected mysql lifetime: %v", cfg.MySQL.ConnMaxLifetime)
	}
	if cfg.Redis.CvvTTL != 9*time.Minute {
		t.Fatalf("unexpected cvv ttl: %v", cfg.Redis.CvvTTL)
	}
	if cfg.Rocketgate.HTTPTimeout != 4*time.Second {
		t.Fatalf("unexpected rocketgate timeout: %v", cfg.Rocketgate.HTTPTimeout)
	}
	if len(cfg.Transactions.NSFEnabledSiteIDs) != 3 || cfg.Transactions.NSFEnabledSiteIDs[1] != "site-b" {
		t.Fatalf("unexpected nsf site ids: %v", cfg.Transactions.NSFEnabledSiteIDs)
	}
	if cfg.Transactions.PendingTimeout != 11*time.Minute {
		t.Fatalf("unexpected pending timeout: %v", cfg.Transactions.PendingTimeout)
	}
	if cfg.Transactions.JobBatchSize != 99 {
		t.Fatalf("unexpected job batch size: %d", cfg.Transactions.JobBatchSize)
	}
	if cfg.Jobs.ExpirePendingInterval != 7*time.Minute {
		t.Fatalf("unexpected expire pending interval: %v", cfg.Jobs.ExpirePendingInterval)
	}
}
