package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

type App struct {
	Port        string `env:"APP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	// DBDriver picks the storage backend: memory, postgres, sqlite or mongo.
	DBDriver  string        `env:"DB_DRIVER" envDefault:"memory"`
	MongoDB   string        `env:"MONGO_DB" envDefault:"vidly"`
	JWTSecret string        `env:"JWT_SECRET" envDefault:"local_dev_secret"`
	JWTTTL    int           `env:"JWT_TTL_HOURS" envDefault:"24"`
	TxTimeout time.Duration `env:"RENTAL_TX_TIMEOUT" envDefault:"5s"`
	Env       string        `env:"APP_ENV" envDefault:"dev"`
}

func (a App) TokenTTL() time.Duration { return time.Duration(a.JWTTTL) * time.Hour }

// Load reads App from the environment.
func Load() (App, error) {
	cfg, err := env.ParseAs[App]()
	if err != nil {
		return App{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return App{}, err
	}
	return cfg, nil
}

func (a App) validate() error {
	switch a.DBDriver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite, DriverMongo:
		if a.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for DB_DRIVER=%s", a.DBDriver)
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", a.DBDriver)
	}
	if a.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be positive, got %d", a.JWTTTL)
	}
	if a.TxTimeout <= 0 {
		return fmt.Errorf("RENTAL_TX_TIMEOUT must be positive, got %s", a.TxTimeout)
	}
	if a.JWTSecret == "" || (a.Env == "prod" && a.JWTSecret == "local_dev_secret") {
		return errors.New("JWT_SECRET must be set")
	}
	return nil
}
