package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config is everything the server reads from the environment
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	LogMode string `env:"LOG_MODE" envDefault:"development"`

	LogRedaction bool   `env:"LOG_REDACTION_ENABLED" envDefault:"true"`
	LogHashSalt  string `env:"LOG_HASH_SALT"`

	// persistence
	StoreDriver    string `env:"STORE_DRIVER" envDefault:"sqlite"`
	StoreNamespace string `env:"STORE_NAMESPACE" envDefault:"2gether"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"onboarding.db"`
	DBURL          string `env:"DB_URL"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`

	// generation gateway
	APIKey            string        `env:"API_KEY"`
	GeminiBaseURL     string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	TextModel         string        `env:"GEMINI_TEXT_MODEL" envDefault:"gemini-3-flash-preview"`
	DocModel          string        `env:"GEMINI_DOC_MODEL" envDefault:"gemini-3-pro-preview"`
	ImageModel        string        `env:"GEMINI_IMAGE_MODEL" envDefault:"gemini-2.5-flash-image"`
	VideoModel        string        `env:"GEMINI_VIDEO_MODEL" envDefault:"veo-3.1-fast-generate-preview"`
	VideoPollInterval time.Duration `env:"GEMINI_VIDEO_POLL_INTERVAL" envDefault:"5s"`

	// player behaviour
	TransitionDelay         time.Duration `env:"PLAYER_TRANSITION_DELAY" envDefault:"400ms"`
	HardGates               []string      `env:"PLAYER_HARD_GATES" envSeparator:","`
	ResumeAtFirstIncomplete bool          `env:"PLAYER_RESUME_AT_FIRST_INCOMPLETE" envDefault:"false"`

	CoursesImportDir string        `env:"COURSES_IMPORT_DIR"`
	PublicBaseURL    string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:5173"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	TaskRetention    time.Duration `env:"TASK_RETENTION" envDefault:"24h"`
}

// Load reads an optional .env file and parses the environment into a Config.
// A missing .env file is not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the combinations env parsing cannot
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite, DriverRedis:
	case DriverPostgres:
		if strings.TrimSpace(c.DBURL) == "" {
			return fmt.Errorf("DB_URL is required for the postgres store driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if strings.TrimSpace(c.StoreNamespace) == "" {
		return fmt.Errorf("STORE_NAMESPACE cannot be empty")
	}
	if c.TransitionDelay < 0 {
		return fmt.Errorf("PLAYER_TRANSITION_DELAY cannot be negative")
	}
	return nil
}
