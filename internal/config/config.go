package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	IdentityProviderLocal  = "local"
	IdentityProviderGoTrue = "gotrue"

	// MinSecretLength is the minimum length of secrets the shared account password is derived from.
	MinSecretLength = 32
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Gate     GateConfig
	Identity IdentityConfig
	Alert    AlertConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	RunMigrations     bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string
}

type GateConfig struct {
	// Pin is the reference PIN. Empty means nobody can authenticate.
	Pin                string
	MaxAttempts        int
	InitialLockMinutes int
	AttemptRetention   time.Duration
	CleanupSchedule    string
	FailureDelayMs     int
	FailureJitterMs    int
	RequestsPerMinute  int
}

type IdentityConfig struct {
	Provider            string
	SharedAccountEmail  string
	SharedAccountSecret string

	// local provider
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration

	// gotrue provider
	GoTrueURL            string
	GoTrueAnonKey        string
	GoTrueServiceRoleKey string
	Timeout              time.Duration
	RetryAttempts        int
}

type AlertConfig struct {
	AWSRegion    string
	FromAddress  string
	ToAddress    string
	KafkaBrokers []string
	KafkaTopic   string
}

// SESEnabled reports whether lockout alert emails are configured.
func (c AlertConfig) SESEnabled() bool {
	return c.FromAddress != "" && c.ToAddress != ""
}

// KafkaEnabled reports whether lockout events are published to Kafka.
func (c AlertConfig) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "pingate"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			RunMigrations:     getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
		},
		Gate: GateConfig{
			Pin:                strings.TrimSpace(os.Getenv("APP_PIN")),
			MaxAttempts:        getEnvAsInt("PIN_MAX_ATTEMPTS", 3),
			InitialLockMinutes: getEnvAsInt("PIN_INITIAL_LOCK_MINUTES", 15),
			AttemptRetention:   getEnvAsDuration("PIN_ATTEMPT_RETENTION", 30*24*time.Hour),
			CleanupSchedule:    getEnv("PIN_CLEANUP_SCHEDULE", "0 3 * * *"),
			FailureDelayMs:     getEnvAsInt("PIN_FAILURE_DELAY_MS", 250),
			FailureJitterMs:    getEnvAsInt("PIN_FAILURE_DELAY_JITTER_MS", 250),
			RequestsPerMinute:  getEnvAsInt("PIN_REQUESTS_PER_MINUTE", 30),
		},
		Identity: IdentityConfig{
			Provider:             strings.ToLower(getEnv("IDENTITY_PROVIDER", IdentityProviderLocal)),
			SharedAccountEmail:   getEnv("SHARED_ACCOUNT_EMAIL", "app@internal.local"),
			SharedAccountSecret:  os.Getenv("SHARED_ACCOUNT_SECRET"),
			JWTSecret:            os.Getenv("JWT_SECRET"),
			AccessTokenExpiry:    getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour),
			RefreshTokenExpiry:   getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 30*24*time.Hour),
			GoTrueURL:            strings.TrimRight(os.Getenv("GOTRUE_URL"), "/"),
			GoTrueAnonKey:        os.Getenv("GOTRUE_ANON_KEY"),
			GoTrueServiceRoleKey: os.Getenv("GOTRUE_SERVICE_ROLE_KEY"),
			Timeout:              getEnvAsDuration("GOTRUE_TIMEOUT", 10*time.Second),
			RetryAttempts:        getEnvAsInt("GOTRUE_RETRY_ATTEMPTS", 2),
		},
		Alert: AlertConfig{
			AWSRegion:    getEnv("AWS_REGION", "eu-west-3"),
			FromAddress:  os.Getenv("ALERT_EMAIL_FROM"),
			ToAddress:    os.Getenv("ALERT_EMAIL_TO"),
			KafkaBrokers: getEnvAsList("KAFKA_BROKERS"),
			KafkaTopic:   os.Getenv("KAFKA_LOCKOUT_TOPIC"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if cfg.Gate.MaxAttempts < 1 {
		return nil, fmt.Errorf("PIN_MAX_ATTEMPTS must be at least 1 (got %d)", cfg.Gate.MaxAttempts)
	}
	if cfg.Gate.InitialLockMinutes < 1 {
		return nil, fmt.Errorf("PIN_INITIAL_LOCK_MINUTES must be at least 1 (got %d)", cfg.Gate.InitialLockMinutes)
	}

	if err := validateIdentity(&cfg.Identity, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateIdentity checks provider-specific settings and fills in the shared
// account secret from the provider's own secret when it is not set explicitly.
func validateIdentity(c *IdentityConfig, env string) error {
	switch c.Provider {
	case IdentityProviderLocal:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for the local identity provider")
		}
		if err := validateJWTSecret(c.JWTSecret, env); err != nil {
			return err
		}
		if c.SharedAccountSecret == "" {
			c.SharedAccountSecret = c.JWTSecret
		}
	case IdentityProviderGoTrue:
		if c.GoTrueURL == "" || c.GoTrueAnonKey == "" || c.GoTrueServiceRoleKey == "" {
			return fmt.Errorf("GOTRUE_URL, GOTRUE_ANON_KEY and GOTRUE_SERVICE_ROLE_KEY are required for the gotrue identity provider")
		}
		if c.SharedAccountSecret == "" {
			c.SharedAccountSecret = c.GoTrueServiceRoleKey
		}
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.Provider)
	}

	if len(c.SharedAccountSecret) < MinSecretLength {
		return fmt.Errorf("shared account secret must be at least %d characters (got %d)",
			MinSecretLength, len(c.SharedAccountSecret))
	}

	return nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = MinSecretLength
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

// getEnvAsList splits a comma-separated variable, dropping empty entries
func getEnvAsList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
