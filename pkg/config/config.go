package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	RateLimit  RateLimitConfig
	Revocation RevocationConfig
	Google     GoogleConfig
	SMTP       SMTPConfig
	Blob       BlobConfig
	Payments   PaymentsConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	// MigrateOnStart applies pending migrations when the server boots.
	MigrateOnStart bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

// JWTConfig expiries accept Go durations or a day count such as "1d".
type JWTConfig struct {
	Secret       string
	Issuer       string
	SigninExpiry string
}

type EncryptionConfig struct {
	Key        string
	Randomizer string
	// CodeKey is the age identity used to seal uploaded project code.
	CodeKey string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
	OTPPerMinute  int
}

type RevocationConfig struct {
	Backend string // memory or redis
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type BlobConfig struct {
	Provider        string // s3, gcs, minio or memory
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

type PaymentsConfig struct {
	Provider          string // paypal or stripe
	PaypalClientID    string
	PaypalSecret      string
	PaypalBaseURL     string
	StripeSecretKey   string
	Currency          string
	PremiumPrice      int64
	ProfessionalPrice int64
}

type WorkerConfig struct {
	Concurrency int
	SweepCron   string
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL returns the connection string in the form golang-migrate expects.
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Name, d.SSLMode)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (s *ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

func (r *RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "canicloud")
	v.SetDefault("DATABASE_PASSWORD", "canicloud_secret")
	v.SetDefault("DATABASE_NAME", "canicloud")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET_KEY", "change-me-in-production")
	v.SetDefault("JWT_ISSUER", "canicloud")
	v.SetDefault("SIGNIN_TOKEN_EXPIRY", "1d")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("OTP_PER_MINUTE", 3)
	v.SetDefault("REVOCATION_BACKEND", "memory")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "no-reply@canicloud.local")
	v.SetDefault("BLOB_PROVIDER", "minio")
	v.SetDefault("BLOB_BUCKET", "canicloud-code")
	v.SetDefault("BLOB_REGION", "us-east-1")
	v.SetDefault("PAYMENT_PROVIDER", "paypal")
	v.SetDefault("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com")
	v.SetDefault("PAYMENT_CURRENCY", "USD")
	v.SetDefault("PREMIUM_PRICE", 10)
	v.SetDefault("PROFESSIONAL_PRICE", 25)
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("SWEEP_CRON", "0 * * * *")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),

			MigrateOnStart: v.GetBool("DATABASE_MIGRATE_ON_START"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:       v.GetString("JWT_SECRET_KEY"),
			Issuer:       v.GetString("JWT_ISSUER"),
			SigninExpiry: v.GetString("SIGNIN_TOKEN_EXPIRY"),
		},
		Encryption: EncryptionConfig{
			Key:        v.GetString("ENCRYPTION_KEY"),
			Randomizer: v.GetString("ENCRYPTION_RANDOMIZER"),
			CodeKey:    v.GetString("CODE_ENCRYPTION_KEY"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			OTPPerMinute:  v.GetInt("OTP_PER_MINUTE"),
		},
		Revocation: RevocationConfig{
			Backend: v.GetString("REVOCATION_BACKEND"),
		},
		Google: GoogleConfig{
			ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURI:  v.GetString("GOOGLE_REDIRECT_URI"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		Blob: BlobConfig{
			Provider:        v.GetString("BLOB_PROVIDER"),
			Bucket:          v.GetString("BLOB_BUCKET"),
			Region:          v.GetString("BLOB_REGION"),
			Endpoint:        v.GetString("BLOB_ENDPOINT"),
			AccessKeyID:     v.GetString("BLOB_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("BLOB_SECRET_ACCESS_KEY"),
			UseSSL:          v.GetBool("BLOB_USE_SSL"),
		},
		Payments: PaymentsConfig{
			Provider:          v.GetString("PAYMENT_PROVIDER"),
			PaypalClientID:    v.GetString("PAYPAL_CLIENT_ID"),
			PaypalSecret:      v.GetString("PAYPAL_CLIENT_SECRET"),
			PaypalBaseURL:     v.GetString("PAYPAL_BASE_URL"),
			StripeSecretKey:   v.GetString("STRIPE_SECRET_KEY"),
			Currency:          v.GetString("PAYMENT_CURRENCY"),
			PremiumPrice:      v.GetInt64("PREMIUM_PRICE"),
			ProfessionalPrice: v.GetInt64("PROFESSIONAL_PRICE"),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("WORKER_CONCURRENCY"),
			SweepCron:   v.GetString("SWEEP_CRON"),
		},
	}

	if cfg.Server.IsProduction() {
		if cfg.Encryption.Key == "" || cfg.Encryption.Randomizer == "" {
			return nil, fmt.Errorf("ENCRYPTION_KEY and ENCRYPTION_RANDOMIZER are required in production")
		}
		if cfg.JWT.Secret == "change-me-in-production" {
			return nil, fmt.Errorf("JWT_SECRET_KEY must be set in production")
		}
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
