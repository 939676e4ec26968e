package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET,required"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET,required"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	TOTPIssuer        string        `env:"TOTP_ISSUER" envDefault:"Lendstack Back Office"`
	PendingSessionTTL time.Duration `env:"PENDING_SESSION_TTL" envDefault:"10m"`
	ResetTokenTTL     time.Duration `env:"RESET_TOKEN_TTL" envDefault:"60m"`

	// MFAMaxAttempts caps failed code submissions per pending session.
	// Zero disables the cap and relies on the session TTL alone.
	MFAMaxAttempts int `env:"MFA_MAX_ATTEMPTS" envDefault:"0"`

	APIRateLimitPerMin int `env:"API_RATE_LIMIT_PER_MIN" envDefault:"60"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"no-reply@lendstack.io"`
	ResetBaseURL string `env:"RESET_BASE_URL" envDefault:""`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL must exceed ACCESS_TOKEN_TTL")
	}
	if c.PendingSessionTTL <= 0 || c.ResetTokenTTL <= 0 {
		return fmt.Errorf("session and reset token TTLs must be positive")
	}
	if c.MFAMaxAttempts < 0 {
		return fmt.Errorf("MFA_MAX_ATTEMPTS must not be negative")
	}

	if isProduction {
		if err := validateSecret("JWT_ACCESS_SECRET", c.JWTAccessSecret); err != nil {
			return err
		}
		if err := validateSecret("JWT_REFRESH_SECRET", c.JWTRefreshSecret); err != nil {
			return err
		}
		if c.JWTAccessSecret == c.JWTRefreshSecret {
			return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
