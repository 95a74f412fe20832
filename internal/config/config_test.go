package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "SERVER_PORT")
	unsetEnvWithCleanup(t, "PORT")
	unsetEnvWithCleanup(t, "PLATFORM_FEE_BPS")
	unsetEnvWithCleanup(t, "PLATFORM_FEE_PERCENT")
	unsetEnvWithCleanup(t, "BID_RATE_LIMIT_PER_MINUTE")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default server port 8080, got %q", cfg.ServerPort)
	}
	if cfg.PlatformFeeBps != 1000 {
		t.Fatalf("expected default platform fee 1000 bps, got %d", cfg.PlatformFeeBps)
	}
	if cfg.BidRateLimitPerMinute != 20 {
		t.Fatalf("expected default bid rate limit 20, got %d", cfg.BidRateLimitPerMinute)
	}
	if cfg.StrayBidSweepSchedule == "" || cfg.InvoiceOverdueSchedule == "" {
		t.Fatal("expected default job schedules to be set")
	}
}

func TestLoadConfig_PlatformFeePercentAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "PLATFORM_FEE_BPS")
	setEnvWithCleanup(t, "PLATFORM_FEE_PERCENT", "7.5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PlatformFeeBps != 750 {
		t.Fatalf("expected 7.5%% to map to 750 bps, got %d", cfg.PlatformFeeBps)
	}
}

func TestLoadConfig_CapsExcessivePlatformFee(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "PLATFORM_FEE_PERCENT")
	setEnvWithCleanup(t, "PLATFORM_FEE_BPS", "25000")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PlatformFeeBps != 10000 {
		t.Fatalf("expected fee capped at 10000 bps, got %d", cfg.PlatformFeeBps)
	}
}

func TestLoadConfig_PortOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9090")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected PORT to take precedence, got %q", cfg.ServerPort)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		}
	})
}
