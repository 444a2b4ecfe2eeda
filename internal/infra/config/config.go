// internal/infra/config/config.go
package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Backend selectors. The cart core is adapter-agnostic; deployment picks the
// concrete stores here.
const (
	GuestBackendFile  = "file"
	GuestBackendRedis = "redis"

	RemoteBackendFirestore = "firestore"
	RemoteBackendPostgres  = "postgres"
)

// Config holds the whole runtime configuration, parsed from environment
// variables.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AllowOrigin string `env:"CORS_ALLOW_ORIGIN"`

	GCPProjectID             string `env:"GCP_PROJECT_ID"`
	FirestoreProjectID       string `env:"FIRESTORE_PROJECT_ID"`
	FirestoreCredentialsFile string `env:"FIRESTORE_CREDENTIALS_FILE"`
	FirebaseProjectID        string `env:"FIREBASE_PROJECT_ID"`

	GuestBackend string        `env:"GUEST_CART_BACKEND" envDefault:"file"`
	GuestCartDir string        `env:"GUEST_CART_DIR" envDefault:"/var/lib/atelier/guest-carts"`
	GuestCartTTL time.Duration `env:"GUEST_CART_TTL" envDefault:"168h"`
	RedisAddr    string        `env:"REDIS_ADDR"`
	RedisPass    string        `env:"REDIS_PASSWORD"`

	RemoteBackend string `env:"REMOTE_CART_BACKEND" envDefault:"firestore"`
	DBHost        string `env:"DB_HOST"`
	DBPort        string `env:"DB_PORT" envDefault:"5432"`
	DBUser        string `env:"DB_USER"`
	DBPassword    string `env:"DB_PASSWORD"`
	DBName        string `env:"DB_NAME"`

	GCSBucket      string        `env:"GCS_BUCKET"`
	GCSSignerEmail string        `env:"GCS_SIGNER_EMAIL"`
	GCSSignedTTL   time.Duration `env:"GCS_SIGNED_URL_TTL" envDefault:"15m"`

	SendGridFrom     string `env:"SENDGRID_FROM"`
	SendGridSecretID string `env:"SENDGRID_SECRET_ID" envDefault:"sendgrid-api-key"`
}

// Load parses the environment. Project IDs fall back to GCP_PROJECT_ID so a
// single variable is enough on Cloud Run.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse failed")
	}

	base := strings.TrimSpace(cfg.GCPProjectID)
	if strings.TrimSpace(cfg.FirestoreProjectID) == "" {
		cfg.FirestoreProjectID = base
	}
	if strings.TrimSpace(cfg.FirebaseProjectID) == "" {
		cfg.FirebaseProjectID = base
	}

	switch cfg.GuestBackend {
	case GuestBackendFile, GuestBackendRedis:
	default:
		return nil, errors.Errorf("config: unknown GUEST_CART_BACKEND %q", cfg.GuestBackend)
	}
	switch cfg.RemoteBackend {
	case RemoteBackendFirestore, RemoteBackendPostgres:
	default:
		return nil, errors.Errorf("config: unknown REMOTE_CART_BACKEND %q", cfg.RemoteBackend)
	}

	return cfg, nil
}
