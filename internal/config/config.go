package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "MonitorMBG"
	defaultAppEnv        = "development"
	defaultPort          = "3000"
	defaultLogLevel      = "info"
	defaultRatePerSecond = 100
	defaultOTPTTL        = 300 * time.Second
	defaultOTPAttempts   = 5
	defaultPhonePrefix   = "62"
	defaultShutdownDelay = 10 * time.Second
)

// WhatsApp holds the delivery-channel settings for OTP messages. The channel
// is usable only when Enabled is true and all three credentials are present.
type WhatsApp struct {
	Enabled       bool
	APIURL        string
	APIToken      string
	PhoneNumberID string
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName            string
	AppEnv             string
	Port               string
	LogLevel           string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	RateLimitPerSecond int
	OTPTTL             time.Duration
	OTPMaxAttempts     int
	PhonePrefix        string
	WhatsApp           WhatsApp
	ShutdownPeriod     time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		PhonePrefix:    getEnv("OTP_PHONE_PREFIX", defaultPhonePrefix),
		ShutdownPeriod: defaultShutdownDelay,
		WhatsApp: WhatsApp{
			APIURL:        os.Getenv("WHATSAPP_API_URL"),
			APIToken:      os.Getenv("WHATSAPP_API_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	var err error
	if cfg.RateLimitPerSecond, err = getEnvInt("RATE_LIMIT_PER_SECOND", defaultRatePerSecond); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerSecond <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_PER_SECOND must be positive")
	}

	ttlSeconds, err := getEnvInt("OTP_TTL_SECONDS", int(defaultOTPTTL.Seconds()))
	if err != nil {
		return Config{}, err
	}
	if ttlSeconds <= 0 {
		return Config{}, fmt.Errorf("OTP_TTL_SECONDS must be positive")
	}
	cfg.OTPTTL = time.Duration(ttlSeconds) * time.Second

	if cfg.OTPMaxAttempts, err = getEnvInt("OTP_MAX_ATTEMPTS", defaultOTPAttempts); err != nil {
		return Config{}, err
	}
	if cfg.OTPMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("OTP_MAX_ATTEMPTS must be positive")
	}

	if cfg.WhatsApp.Enabled, err = getEnvBool("WHATSAPP_ENABLED", false); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the application runs in a development-like environment.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
