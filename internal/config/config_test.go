package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StorageDriver != StoragePostgres {
		t.Fatalf("unexpected storage driver: %q", cfg.StorageDriver)
	}
	if cfg.JobStatusInterval != 2*time.Minute {
		t.Fatalf("unexpected status interval: %s", cfg.JobStatusInterval)
	}
	if cfg.JobLiveInterval != 30*time.Second {
		t.Fatalf("unexpected live interval: %s", cfg.JobLiveInterval)
	}
	if cfg.JobScheduleInterval != 15*time.Minute {
		t.Fatalf("unexpected schedule interval: %s", cfg.JobScheduleInterval)
	}
	if cfg.ScoringWorkerCount != 8 {
		t.Fatalf("unexpected scoring worker count: %d", cfg.ScoringWorkerCount)
	}
	if !cfg.ProviderCircuit.Enabled || cfg.ProviderCircuit.FailureThreshold != 5 {
		t.Fatalf("unexpected provider circuit: %+v", cfg.ProviderCircuit)
	}
	if cfg.FaceitEnabled || cfg.PandaScoreEnabled || cfg.SportDevsEnabled {
		t.Fatalf("expected providers disabled by default")
	}
}

func TestLoad_StorageDriverValidation(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	t.Setenv("STORAGE_DRIVER", "Memory")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StorageDriver != StorageMemory {
		t.Fatalf("unexpected storage driver: %q", cfg.StorageDriver)
	}

	t.Setenv("STORAGE_DRIVER", "sqlite")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unsupported STORAGE_DRIVER")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `x-foo=bar, uptrace-dsn="https://token@api.uptrace.dev?grpc=4317"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected uptrace dsn: %q", cfg.UptraceDSN)
	}
}

func TestLoad_ProviderRequirements(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cases := []struct {
		name string
		env  map[string]string
	}{
		{"faceit without key", map[string]string{"FACEIT_ENABLED": "true", "FACEIT_HUB_IDS": "hub-1"}},
		{"faceit without hubs", map[string]string{"FACEIT_ENABLED": "true", "FACEIT_API_KEY": "key"}},
		{"pandascore without token", map[string]string{"PANDASCORE_ENABLED": "true"}},
		{"sportdevs without token", map[string]string{"SPORTDEVS_ENABLED": "true"}},
		{"stripe without secret", map[string]string{"STRIPE_ENABLED": "true", "STRIPE_WEBHOOK_SECRET": "whsec", "CHECKOUT_SUCCESS_URL": "https://x"}},
		{"coinbase without webhook secret", map[string]string{"COINBASE_ENABLED": "true", "COINBASE_API_KEY": "key"}},
		{"resend without sender", map[string]string{"RESEND_ENABLED": "true", "RESEND_API_KEY": "key"}},
		{"telegram without chat", map[string]string{"TELEGRAM_BOT_TOKEN": "bot"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for key, value := range tc.env {
				t.Setenv(key, value)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoad_FaceitConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("FACEIT_ENABLED", "true")
	t.Setenv("FACEIT_API_KEY", "faceit-key")
	t.Setenv("FACEIT_HUB_IDS", " hub-a, ,hub-b ")
	t.Setenv("PROVIDER_MAX_RETRIES", "4")
	t.Setenv("PROVIDER_REQUEST_SPACING", "250ms")
	t.Setenv("PROVIDER_CIRCUIT_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.FaceitHubIDs) != 2 || cfg.FaceitHubIDs[0] != "hub-a" || cfg.FaceitHubIDs[1] != "hub-b" {
		t.Fatalf("unexpected hub ids: %+v", cfg.FaceitHubIDs)
	}
	if cfg.ProviderMaxRetries != 4 {
		t.Fatalf("unexpected max retries: %d", cfg.ProviderMaxRetries)
	}
	if cfg.ProviderRequestSpacing != 250*time.Millisecond {
		t.Fatalf("unexpected request spacing: %s", cfg.ProviderRequestSpacing)
	}
	if cfg.ProviderCircuit.Enabled {
		t.Fatalf("expected provider circuit disabled")
	}
}

func TestLoad_NumericValidation(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cases := map[string]string{
		"SCORING_WORKER_COUNT":           "0",
		"PROVIDER_MAX_RETRIES":           "-1",
		"JOB_LIVE_INTERVAL":              "0s",
		"PROVIDER_CIRCUIT_FAILURE_COUNT": "abc",
		"TELEGRAM_CHAT_ID":               "chat",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestLoad_TelegramChatIDParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001234567890")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.TelegramChatID != -1001234567890 {
		t.Fatalf("unexpected chat id: %d", cfg.TelegramChatID)
	}
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("APP_SERVICE_NAME", "esports-fantasy-api-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "esports-fantasy-api-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CORSOriginsDefaultAndParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	t.Run("default wildcard", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
			t.Fatalf("unexpected default CORS origins: %+v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("comma separated parsing", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, http://localhost:5173 ")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 2 {
			t.Fatalf("unexpected CORS origins length: %d", len(cfg.CORSAllowedOrigins))
		}
		if cfg.CORSAllowedOrigins[1] != "http://localhost:5173" {
			t.Fatalf("unexpected second CORS origin: %s", cfg.CORSAllowedOrigins[1])
		}
	})
}

func TestLoad_CacheConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("CACHE_ENABLED", "")
		t.Setenv("CACHE_TTL", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.CacheEnabled {
			t.Fatalf("expected cache enabled by default")
		}
		if cfg.CacheTTL != 60*time.Second {
			t.Fatalf("unexpected default cache ttl: %s", cfg.CacheTTL)
		}
	})

	t.Run("invalid ttl", func(t *testing.T) {
		t.Setenv("CACHE_TTL", "bad")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid CACHE_TTL")
		}
	})
}

func TestLoad_QStashConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	t.Run("enabled requires token and target and internal token", func(t *testing.T) {
		t.Setenv("QSTASH_ENABLED", "true")
		t.Setenv("QSTASH_TOKEN", "qstash-token")
		t.Setenv("QSTASH_TARGET_BASE_URL", "https://esports-fantasy.fly.dev")
		t.Setenv("INTERNAL_JOB_TOKEN", "")

		if _, err := Load(); err == nil {
			t.Fatalf("expected error when QSTASH_ENABLED=true without INTERNAL_JOB_TOKEN")
		}
	})

	t.Run("enabled with required values", func(t *testing.T) {
		t.Setenv("QSTASH_ENABLED", "true")
		t.Setenv("QSTASH_TOKEN", "qstash-token")
		t.Setenv("QSTASH_TARGET_BASE_URL", "https://esports-fantasy.fly.dev")
		t.Setenv("INTERNAL_JOB_TOKEN", "internal-job-token")
		t.Setenv("QSTASH_RETRIES", "2")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.QStashRetries != 2 {
			t.Fatalf("unexpected qstash retries: %d", cfg.QStashRetries)
		}
		if cfg.InternalJobToken != "internal-job-token" {
			t.Fatalf("unexpected internal job token: %q", cfg.InternalJobToken)
		}
	})
}
