package config

import (
	"testing"
	"time"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DB_PASSWORD", "test")
	t.Setenv("IDENTITY_PROVIDER", "")
	t.Setenv("SHARED_ACCOUNT_SECRET", "")
	t.Setenv("APP_PIN", "")
	for _, key := range []string{
		"GOTRUE_URL", "GOTRUE_ANON_KEY", "GOTRUE_SERVICE_ROLE_KEY",
		"PIN_MAX_ATTEMPTS", "PIN_INITIAL_LOCK_MINUTES", "PIN_ATTEMPT_RETENTION",
		"SERVER_READ_TIMEOUT", "ENV",
	} {
		t.Setenv(key, "")
	}
}

func TestServerConfig_Timeouts_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"ReadTimeout", cfg.Server.ReadTimeout, 15 * time.Second},
		{"WriteTimeout", cfg.Server.WriteTimeout, 15 * time.Second},
		{"IdleTimeout", cfg.Server.IdleTimeout, 60 * time.Second},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}
}

func TestServerConfig_Timeouts_InvalidDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	// Invalid duration should fall back to default
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout with invalid value: got %v, want %v", cfg.Server.ReadTimeout, 15*time.Second)
	}
}

func TestGateConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Gate.MaxAttempts != 3 {
		t.Errorf("MaxAttempts: got %d, want 3", cfg.Gate.MaxAttempts)
	}
	if cfg.Gate.InitialLockMinutes != 15 {
		t.Errorf("InitialLockMinutes: got %d, want 15", cfg.Gate.InitialLockMinutes)
	}
	if cfg.Gate.AttemptRetention != 30*24*time.Hour {
		t.Errorf("AttemptRetention: got %v, want 720h", cfg.Gate.AttemptRetention)
	}
	if cfg.Gate.Pin != "" {
		t.Errorf("Pin: got %q, want empty", cfg.Gate.Pin)
	}
}

func TestGateConfig_MissingPinIsNotALoadError(t *testing.T) {
	setRequiredEnv(t)

	if _, err := Load(); err != nil {
		t.Fatalf("Load() without APP_PIN = %v, want nil", err)
	}
}

func TestGateConfig_RejectsNonPositiveTuning(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero attempts", "PIN_MAX_ATTEMPTS", "0"},
		{"zero lock minutes", "PIN_INITIAL_LOCK_MINUTES", "0"},
		{"negative lock minutes", "PIN_INITIAL_LOCK_MINUTES", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%s = nil, want error", tt.key, tt.value)
			}
		})
	}
}

func TestIdentityConfig_LocalDefaultsSharedSecretToJWTSecret(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Identity.Provider != IdentityProviderLocal {
		t.Errorf("Provider: got %q, want %q", cfg.Identity.Provider, IdentityProviderLocal)
	}
	if cfg.Identity.SharedAccountSecret != testSecret {
		t.Errorf("SharedAccountSecret should default to JWT_SECRET")
	}
	if cfg.Identity.SharedAccountEmail != "app@internal.local" {
		t.Errorf("SharedAccountEmail: got %q", cfg.Identity.SharedAccountEmail)
	}
}

func TestIdentityConfig_GoTrueRequiresKeys(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("IDENTITY_PROVIDER", "gotrue")
	t.Setenv("GOTRUE_URL", "https://auth.example.test/")

	if _, err := Load(); err == nil {
		t.Fatal("Load() without gotrue keys = nil, want error")
	}

	t.Setenv("GOTRUE_ANON_KEY", "anon")
	t.Setenv("GOTRUE_SERVICE_ROLE_KEY", "service-role-key-with-plenty-of-entropy-0123456789")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if cfg.Identity.GoTrueURL != "https://auth.example.test" {
		t.Errorf("GoTrueURL should be trimmed of trailing slash, got %q", cfg.Identity.GoTrueURL)
	}
	if cfg.Identity.SharedAccountSecret != cfg.Identity.GoTrueServiceRoleKey {
		t.Errorf("SharedAccountSecret should default to the service role key")
	}
}

func TestIdentityConfig_ShortSharedSecretRejected(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SHARED_ACCOUNT_SECRET", "too-short")

	if _, err := Load(); err == nil {
		t.Fatal("Load() with short shared secret = nil, want error")
	}
}

func TestIdentityConfig_UnknownProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("IDENTITY_PROVIDER", "ldap")

	if _, err := Load(); err == nil {
		t.Fatal("Load() with unknown provider = nil, want error")
	}
}

func TestAlertConfig_Toggles(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALERT_EMAIL_FROM", "gate@example.test")
	t.Setenv("ALERT_EMAIL_TO", "owner@example.test")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("KAFKA_LOCKOUT_TOPIC", "pin-lockouts")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if !cfg.Alert.SESEnabled() {
		t.Error("SESEnabled() = false, want true")
	}
	if !cfg.Alert.KafkaEnabled() {
		t.Error("KafkaEnabled() = false, want true")
	}
	if len(cfg.Alert.KafkaBrokers) != 2 || cfg.Alert.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("KafkaBrokers: got %v", cfg.Alert.KafkaBrokers)
	}
}
