package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "DATABASE_URL", "DB_DRIVER", "MONGO_DB", "JWT_SECRET", "JWT_TTL_HOURS", "RENTAL_TX_TIMEOUT", "APP_ENV"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, DriverMemory, cfg.DBDriver)
	require.Equal(t, 5*time.Second, cfg.TxTimeout)
	require.Equal(t, 24*time.Hour, cfg.TokenTTL())
	require.Equal(t, "dev", cfg.Env)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "/tmp/vidly.db")
	t.Setenv("JWT_TTL_HOURS", "2")
	t.Setenv("RENTAL_TX_TIMEOUT", "750ms")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, DriverSQLite, cfg.DBDriver)
	require.Equal(t, 2*time.Hour, cfg.TokenTTL())
	require.Equal(t, 750*time.Millisecond, cfg.TxTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":   {"DB_DRIVER": "oracle"},
		"missing url":      {"DB_DRIVER": "postgres", "DATABASE_URL": ""},
		"bad ttl":          {"DB_DRIVER": "memory", "JWT_TTL_HOURS": "0"},
		"bad timeout":      {"DB_DRIVER": "memory", "RENTAL_TX_TIMEOUT": "nope"},
		"prod default jwt": {"DB_DRIVER": "memory", "APP_ENV": "prod", "JWT_SECRET": ""},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
