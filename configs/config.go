package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StorageCloudinary = "cloudinary"
	StorageMinio      = "minio"
)

type Config struct {
	Debug       bool   `env:"DEBUG" envDefault:"false"`
	Port        int    `env:"PORT" envDefault:"8080"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	TimeZone    string `env:"TIME_ZONE" envDefault:"UTC"`
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	JWT struct {
		Secret string        `env:"JWT_SECRET,notEmpty"`
		TTL    time.Duration `env:"JWT_TTL" envDefault:"72h"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Storage struct {
		Driver        string        `env:"STORAGE_DRIVER" envDefault:"cloudinary"`
		Bucket        string        `env:"STORAGE_BUCKET" envDefault:"payout-portal"`
		Timeout       time.Duration `env:"STORAGE_TIMEOUT" envDefault:"15s"`
		MaxProofBytes int64         `env:"MAX_PROOF_BYTES" envDefault:"10485760"`
		CloudinaryURL string        `env:"CLOUDINARY_URL"`
	}

	Minio struct {
		Endpoint      string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
		AccessKey     string `env:"MINIO_ACCESS_KEY"`
		SecretKey     string `env:"MINIO_SECRET_KEY"`
		Secure        bool   `env:"MINIO_SECURE" envDefault:"false"`
		PublicBaseURL string `env:"MINIO_PUBLIC_BASE_URL"`
	}

	Email struct {
		BrevoAPIKey string `env:"BREVO_API_KEY"`
		Sender      string `env:"EMAIL_SENDER"`
		SenderName  string `env:"EMAIL_SENDER_NAME" envDefault:"SuperFunded"`
	}

	Admin struct {
		Email       string `env:"ADMIN_EMAIL"`
		Password    string `env:"ADMIN_PASSWORD"`
		DisplayName string `env:"ADMIN_DISPLAY_NAME" envDefault:"SuperFunded Admin"`
	}

	Jobs struct {
		PendingDigestCron string `env:"PENDING_DIGEST_CRON" envDefault:"0 * * * *"`
	}

	FeedCacheTTL        time.Duration `env:"FEED_CACHE_TTL" envDefault:"5s"`
	CertificatesEnabled bool          `env:"CERTIFICATES_ENABLED" envDefault:"false"`
	ExchangeRateAPIKey  string        `env:"EXCHANGE_RATE_API_KEY"`
}

// Load reads .env when present and parses the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageCloudinary:
		if c.Storage.CloudinaryURL == "" {
			return fmt.Errorf("STORAGE_DRIVER=cloudinary requires CLOUDINARY_URL")
		}
	case StorageMinio:
		if c.Minio.AccessKey == "" || c.Minio.SecretKey == "" {
			return fmt.Errorf("STORAGE_DRIVER=minio requires MINIO_ACCESS_KEY and MINIO_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Storage.MaxProofBytes <= 0 {
		return fmt.Errorf("MAX_PROOF_BYTES must be positive")
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
