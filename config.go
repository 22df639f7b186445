package authkit

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is constructed once, validated during Build, and treated as
// immutable afterwards.
type Config struct {
	JWT       JWTConfig
	Token     TokenConfig
	Password  PasswordConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig

	// RequireVerifiedEmail blocks login for accounts whose address has
	// not been verified yet.
	RequireVerifiedEmail bool
}

// JWTConfig covers the signed access and refresh tokens. A single
// shared HS256 secret signs both; key rotation is out of scope.
type JWTConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

// TokenConfig covers the stored single-purpose tokens.
type TokenConfig struct {
	ResetPasswordTTL time.Duration
	VerifyEmailTTL   time.Duration
	TwoFactorTTL     time.Duration
	OTPDigits        int
	RedisPrefix      string
}

// PasswordConfig holds the argon2id cost parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// MailConfig holds SMTP delivery settings. An empty Host disables
// outbound mail; codes are still issued and returned to the caller.
type MailConfig struct {
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
}

// RateLimitConfig tunes the failed-login limiter.
type RateLimitConfig struct {
	Enabled          bool
	EnableIPThrottle bool
	MaxLoginAttempts int
	LoginCooldown    time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		Token: TokenConfig{
			ResetPasswordTTL: 10 * time.Minute,
			VerifyEmailTTL:   10 * time.Minute,
			TwoFactorTTL:     5 * time.Minute,
			OTPDigits:        8,
			RedisPrefix:      "ak",
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			EnableIPThrottle: true,
			MaxLoginAttempts: 5,
			LoginCooldown:    15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		RequireVerifiedEmail: true,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration before the engine is built.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT Secret must be at least 256 bits")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}

	if c.Token.ResetPasswordTTL <= 0 {
		return errors.New("Token ResetPasswordTTL must be > 0")
	}
	if c.Token.VerifyEmailTTL <= 0 {
		return errors.New("Token VerifyEmailTTL must be > 0")
	}
	if c.Token.TwoFactorTTL <= 0 {
		return errors.New("Token TwoFactorTTL must be > 0")
	}
	if c.Token.OTPDigits < 6 || c.Token.OTPDigits > 10 {
		return errors.New("Token OTPDigits must be between 6 and 10")
	}
	if c.Token.RedisPrefix == "" {
		return errors.New("Token RedisPrefix must not be empty")
	}

	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.MaxLoginAttempts <= 0 {
			return errors.New("RateLimit MaxLoginAttempts must be > 0")
		}
		if c.RateLimit.LoginCooldown <= 0 {
			return errors.New("RateLimit LoginCooldown must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

// LoadEnv builds a Config from environment variables, optionally
// loading a dotenv file first. Missing variables keep their defaults;
// a missing dotenv file is not an error so containerized deployments
// can rely on real environment variables alone.
func LoadEnv(dotenvPath string) (Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	cfg := defaultConfig()

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = []byte(secret)
	}
	if v, err := envInt("JWT_ACCESS_EXPIRATION_MINUTES"); err != nil {
		return Config{}, err
	} else if v > 0 {
		cfg.JWT.AccessTTL = time.Duration(v) * time.Minute
	}
	if v, err := envInt("JWT_REFRESH_EXPIRATION_DAYS"); err != nil {
		return Config{}, err
	} else if v > 0 {
		cfg.JWT.RefreshTTL = time.Duration(v) * 24 * time.Hour
	}
	if v, err := envInt("JWT_RESET_PASSWORD_EXPIRATION_MINUTES"); err != nil {
		return Config{}, err
	} else if v > 0 {
		cfg.Token.ResetPasswordTTL = time.Duration(v) * time.Minute
	}
	if v, err := envInt("JWT_VERIFY_EMAIL_EXPIRATION_MINUTES"); err != nil {
		return Config{}, err
	} else if v > 0 {
		cfg.Token.VerifyEmailTTL = time.Duration(v) * time.Minute
	}
	if v, err := envInt("OTP_EXPIRATION_SECONDS"); err != nil {
		return Config{}, err
	} else if v > 0 {
		cfg.Token.TwoFactorTTL = time.Duration(v) * time.Second
	}

	cfg.Mail.SMTPHost = os.Getenv("SMTP_HOST")
	if v, err := envInt("SMTP_PORT"); err != nil {
		return Config{}, err
	} else if v > 0 {
		cfg.Mail.SMTPPort = v
	}
	cfg.Mail.Username = os.Getenv("SMTP_USERNAME")
	cfg.Mail.Password = os.Getenv("SMTP_PASSWORD")
	cfg.Mail.From = os.Getenv("EMAIL_FROM")

	return cfg, nil
}

func envInt(name string) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}
