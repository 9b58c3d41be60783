package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Backends accepted by TRAVELCRM_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Env holds the process settings read from the environment.
type Env struct {
	Backend string `env:"TRAVELCRM_BACKEND" env-default:"sqlite"`

	SQLitePath string `env:"SQLITE_PATH"`

	MongoURI      string        `env:"MONGODB_DSN"    env-default:"mongodb://localhost:27017"`
	MongoDB       string        `env:"MONGO_DB"       env-default:"travelcrm"`
	MongoUser     string        `env:"MONGO_USER"`
	MongoPassword string        `env:"MONGO_PASSWORD"`
	PollInterval  time.Duration `env:"POLL_INTERVAL"  env-default:"5s"`

	SubscribeDelay time.Duration `env:"SUBSCRIBE_DELAY" env-default:"1500ms"`

	MetricsAddr string `env:"METRICS_ADDR"`
	LogFile     string `env:"LOG_FILE"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
}

// LoadEnv reads the given dotenv files (".env" when none are named) and then the
// environment. Missing dotenv files are ignored; variables already set win.
func LoadEnv(files ...string) (*Env, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load dotenv: %w", err)
	}

	var env Env
	if err := cleanenv.ReadEnv(&env); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &env, nil
}

// Validate checks value ranges cleanenv cannot express.
func (e *Env) Validate() error {
	switch e.Backend {
	case BackendSQLite, BackendMongo:
	default:
		return fmt.Errorf("TRAVELCRM_BACKEND must be %q or %q, got %q", BackendSQLite, BackendMongo, e.Backend)
	}
	if e.SubscribeDelay < 0 {
		return fmt.Errorf("SUBSCRIBE_DELAY must not be negative")
	}
	if e.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if e.Backend == BackendMongo && e.MongoURI == "" {
		return fmt.Errorf("MONGODB_DSN is required for the mongo backend")
	}
	return nil
}

// LogPath returns LOG_FILE, or travelcrm.log in the config directory.
func (e *Env) LogPath() (string, error) {
	if e.LogFile != "" {
		return e.LogFile, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "travelcrm.log"), nil
}
