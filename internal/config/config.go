package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"

	minJWTSecretLength = 32
)

type Config struct {
	Server        ServerConfig        `env:",prefix=SERVER_"`
	Postgres      PostgresConfig      `env:",prefix=POSTGRES_"`
	DatabaseURL   string              `env:"DATABASE_URL"`
	Redis         RedisConfig         `env:",prefix=REDIS_"`
	JWT           JWTConfig           `env:",prefix=JWT_"`
	Security      SecurityConfig      `env:",prefix="`
	CORS          CORSConfig          `env:",prefix=CORS_"`
	SMTP          SMTPConfig          `env:",prefix=SMTP_"`
	Resend        ResendConfig        `env:",prefix=RESEND_"`
	PasswordReset PasswordResetConfig `env:",prefix=PASSWORD_RESET_"`
	YooKassa      YooKassaConfig      `env:",prefix=YOOKASSA_"`
	Telegram      TelegramConfig      `env:",prefix=TELEGRAM_"`
	Subscription  SubscriptionConfig  `env:",prefix=SUBSCRIPTION_"`
	Migrations    MigrationsConfig    `env:",prefix=MIGRATIONS_"`
	Env           string              `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

// PostgresConfig is ignored when DATABASE_URL is set. Credentials have no
// defaults; one of DATABASE_URL or POSTGRES_PASSWORD must be provided.
type PostgresConfig struct {
	Host            string   `env:"HOST,default=localhost"`
	Port            string   `env:"PORT,default=5432"`
	User            string   `env:"USER"`
	Password        string   `env:"PASSWORD"`
	DBName          string   `env:"DB"`
	SSLMode         string   `env:"SSLMODE,default=disable"`
	MaxOpenConns    int      `env:"MAX_OPEN_CONNS,default=25"`
	MaxIdleConns    int      `env:"MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime Duration `env:"CONN_MAX_LIFETIME,default=30m"`
}

// RedisConfig is used only by the redis rate limit backend. URL overrides the other fields.
type RedisConfig struct {
	URL         string   `env:"URL"`
	Host        string   `env:"HOST,default=localhost"`
	Port        string   `env:"PORT,default=6379"`
	Password    string   `env:"PASSWORD,default="`
	DB          int      `env:"DB,default=0"`
	PoolSize    int      `env:"POOL_SIZE,default=10"`
	DialTimeout Duration `env:"DIAL_TIMEOUT,default=5s"`
}

// JWTConfig holds token settings. An empty secret is accepted at startup;
// token issuance then fails with a configuration error.
type JWTConfig struct {
	Secret      string   `env:"SECRET"`
	TokenExpiry Duration `env:"TOKEN_EXPIRY,default=30d"`
}

type SecurityConfig struct {
	BCryptCost             int      `env:"BCRYPT_COST,default=12"`
	RateLimitBackend       string   `env:"RATE_LIMIT_BACKEND,default=memory"`
	AuthRateLimitRequests  int      `env:"AUTH_RATE_LIMIT_REQUESTS,default=5"`
	AuthRateLimitWindow    Duration `env:"AUTH_RATE_LIMIT_WINDOW,default=60s"`
	ResetRateLimitRequests int      `env:"RESET_RATE_LIMIT_REQUESTS,default=3"`
	ResetRateLimitWindow   Duration `env:"RESET_RATE_LIMIT_WINDOW,default=15m"`
	ReferralCodeAttempts   int      `env:"REFERRAL_CODE_ATTEMPTS,default=10"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=*"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization,X-Auth-Token"`
}

type SMTPConfig struct {
	Host     string   `env:"HOST"`
	Port     int      `env:"PORT,default=465"`
	User     string   `env:"USER"`
	Password string   `env:"PASSWORD"`
	From     string   `env:"FROM"`
	Timeout  Duration `env:"TIMEOUT,default=10s"`
}

// ResendConfig selects the Resend API over SMTP when APIKey is set
type ResendConfig struct {
	APIKey string `env:"API_KEY"`
	From   string `env:"FROM"`
}

type PasswordResetConfig struct {
	LinkBaseURL   string   `env:"LINK_BASE_URL,default=https://visitka.site/reset-password"`
	TokenTTL      Duration `env:"TOKEN_TTL,default=1h"`
	AsyncDelivery bool     `env:"ASYNC_DELIVERY,default=false"`
}

type YooKassaConfig struct {
	ShopID        string   `env:"SHOP_ID"`
	SecretKey     string   `env:"SECRET_KEY"`
	APIURL        string   `env:"API_URL,default=https://api.yookassa.ru/v3"`
	Timeout       Duration `env:"TIMEOUT,default=10s"`
	ReturnURL     string   `env:"RETURN_URL,default=https://visitka.site/dashboard"`
	WebhookSecret string   `env:"WEBHOOK_SECRET"`
}

type TelegramConfig struct {
	BotToken   string   `env:"BOT_TOKEN"`
	AuthMaxAge Duration `env:"AUTH_MAX_AGE,default=24h"`
}

type SubscriptionConfig struct {
	// DefaultPlanID is granted on registration; 0 disables it
	DefaultPlanID int64 `env:"DEFAULT_PLAN_ID,default=1"`
}

type MigrationsConfig struct {
	Enabled bool   `env:"ENABLED,default=true"`
	Path    string `env:"PATH,default=migrations"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// PostgresDSN prefers DATABASE_URL over the individual POSTGRES_ settings
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.Postgres.DSN()
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		if c.Postgres.Password == "" {
			return fmt.Errorf("DATABASE_URL or POSTGRES_PASSWORD must be set")
		}
		if c.Postgres.User == "" || c.Postgres.DBName == "" {
			return fmt.Errorf("POSTGRES_USER and POSTGRES_DB must be set when DATABASE_URL is not")
		}
	}

	// A weak secret is worse than none: it signs tokens that can be forged
	if c.JWT.Secret != "" && len(c.JWT.Secret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters long", minJWTSecretLength)
	}

	switch c.Security.RateLimitBackend {
	case RateLimitBackendMemory, RateLimitBackendRedis:
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be %q or %q", RateLimitBackendMemory, RateLimitBackendRedis)
	}

	if c.Security.AuthRateLimitRequests <= 0 || c.Security.ResetRateLimitRequests <= 0 {
		return fmt.Errorf("rate limit request counts must be positive")
	}

	return nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
