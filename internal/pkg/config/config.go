package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const EnvDevelopment = "development"

type Config struct {
	Port       string `env:"PORT,        default=3000"`
	Env        string `env:"ENV,         default=development"`
	LogLevel   string `env:"LOG_LEVEL,   default=info"`
	TrustProxy bool   `env:"TRUST_PROXY, default=false"`

	Auth      AuthConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Admission AdmissionConfig
	Audit     AuditConfig
}

type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET, required"`
	TokenTTL       time.Duration `env:"JWT_TTL,         default=15m"`
	CookieName     string        `env:"COOKIE_NAME,     default=token"`
	CookieSameSite string        `env:"COOKIE_SAMESITE, default=strict"`
	BcryptCost     int           `env:"BCRYPT_COST,     default=10"`
	// AllowAdminSignUp lets public sign-up request the admin role.
	AllowAdminSignUp bool `env:"ALLOW_ADMIN_SIGNUP, default=false"`
}

type MongoConfig struct {
	// UserStore selects the user repository: "mongo" or "memory".
	UserStore string `env:"USER_STORE, default=mongo"`
	URI       string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database  string `env:"MONGO_DB,  default=acquisitions"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// AdmissionConfig controls the admission control engine.
type AdmissionConfig struct {
	// Mode is "live" (enforce) or "dry_run" (log and meter only).
	Mode string `env:"ADMISSION_MODE,    default=live"`
	// Backend selects the window counter: "memory" or "redis".
	Backend    string        `env:"ADMISSION_BACKEND, default=memory"`
	Window     time.Duration `env:"ADMISSION_WINDOW,  default=1m"`
	AdminLimit int           `env:"ADMISSION_ADMIN_LIMIT, default=20"`
	UserLimit  int           `env:"ADMISSION_USER_LIMIT,  default=10"`
	GuestLimit int           `env:"ADMISSION_GUEST_LIMIT, default=5"`
	PolicyFile string        `env:"ADMISSION_POLICY_FILE"`

	ClassifierURL     string        `env:"CLASSIFIER_URL"`
	ClassifierTimeout time.Duration `env:"CLASSIFIER_TIMEOUT, default=2s"`

	// PreAuthenticate resolves an optional actor before admission so
	// signed-in callers are metered under their own role class.
	PreAuthenticate bool `env:"ADMISSION_PRE_AUTHENTICATE, default=false"`
}

type AuditConfig struct {
	// Sink is "none", "mongo" or "nats".
	Sink    string `env:"AUDIT_SINK,    default=none"`
	Workers int    `env:"AUDIT_WORKERS, default=4"`
	// Retention expires mongo audit records; zero keeps them.
	Retention   time.Duration `env:"AUDIT_RETENTION, default=720h"`
	NATSURL     string        `env:"NATS_URL,      default=nats://localhost:4222"`
	NATSSubject string        `env:"NATS_SUBJECT,  default=acquisitions.admission.denied"`
}

// LoadFrom processes configuration from l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters outside development")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	switch strings.ToLower(c.Auth.CookieSameSite) {
	case "strict", "lax":
	default:
		return fmt.Errorf("COOKIE_SAMESITE must be strict or lax, got %q", c.Auth.CookieSameSite)
	}
	switch c.Mongo.UserStore {
	case "mongo", "memory":
	default:
		return fmt.Errorf("USER_STORE must be mongo or memory, got %q", c.Mongo.UserStore)
	}
	switch c.Admission.Mode {
	case "live", "dry_run":
	default:
		return fmt.Errorf("ADMISSION_MODE must be live or dry_run, got %q", c.Admission.Mode)
	}
	switch c.Admission.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("ADMISSION_BACKEND must be memory or redis, got %q", c.Admission.Backend)
	}
	if c.Admission.ClassifierTimeout <= 0 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must be positive")
	}
	switch c.Audit.Sink {
	case "none", "mongo", "nats":
	default:
		return fmt.Errorf("AUDIT_SINK must be none, mongo or nats, got %q", c.Audit.Sink)
	}
	return nil
}
