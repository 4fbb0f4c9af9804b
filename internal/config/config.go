package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL    string
	HTTPListenAddr string
	BaseURL        string
	LogLevel       string
	CORSOrigins    []string
	DevMode        bool

	// PasswordPepper is mixed into every argon2 hash so a leaked hash table
	// alone is not enough for an offline attack.
	PasswordPepper string

	SessionTTL time.Duration

	LoginMaxAttempts        int
	LoginWindow             time.Duration
	RegistrationMaxAttempts int
	RegistrationWindow      time.Duration

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	SessionReapInterval time.Duration

	OAuth OAuthProvider
}

// OAuthProvider holds the settings for the third-party identity provider.
type OAuthProvider struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

func Load() (*Config, error) {
	origins := getEnv("CORS_ORIGINS", "http://localhost:3000")
	var corsList []string
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			corsList = append(corsList, trimmed)
		}
	}

	baseURL := getEnv("BASE_URL", "http://localhost:3000")

	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8080"),
		BaseURL:        baseURL,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CORSOrigins:    corsList,
		DevMode:        getEnv("DEV_MODE", "") == "true",

		PasswordPepper: getEnv("PASSWORD_PEPPER", ""),

		SessionTTL: getEnvDuration("SESSION_TTL", 24*time.Hour),

		LoginMaxAttempts:        getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:             getEnvDuration("LOGIN_WINDOW", 15*time.Minute),
		RegistrationMaxAttempts: getEnvInt("REGISTRATION_MAX_ATTEMPTS", 5),
		RegistrationWindow:      getEnvDuration("REGISTRATION_WINDOW", time.Hour),

		RetryMaxAttempts: getEnvInt("DB_RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   getEnvDuration("DB_RETRY_BASE_DELAY", 100*time.Millisecond),
		RetryMaxDelay:    getEnvDuration("DB_RETRY_MAX_DELAY", 5*time.Second),

		SessionReapInterval: getEnvDuration("SESSION_REAP_INTERVAL", time.Hour),

		OAuth: OAuthProvider{
			Name:         "google",
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			AuthURL:      getEnv("GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth"),
			TokenURL:     getEnv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			UserInfoURL:  getEnv("GOOGLE_USERINFO_URL", "https://www.googleapis.com/oauth2/v3/userinfo"),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", baseURL+"/api/auth/google/callback"),
			Scopes:       []string{"openid", "profile", "email"},
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.PasswordPepper == "" {
		missing = append(missing, "PASSWORD_PEPPER")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if len(c.PasswordPepper) < 32 {
		return fmt.Errorf("PASSWORD_PEPPER must be at least 32 bytes")
	}
	if c.RetryMaxAttempts < 0 {
		return fmt.Errorf("DB_RETRY_MAX_ATTEMPTS must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
