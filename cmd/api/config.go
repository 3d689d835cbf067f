package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/seamlesswallet/internal/config"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	StoreDriver     string        `env:"STORE_DRIVER" envDefault:"postgres"`
	AdminToken      string        `env:"ADMIN_TOKEN" envDefault:""`

	Postgres config.PostgresConfig
	Redis    config.RedisConfig
	Kafka    config.KafkaConfig
}

func (c *apiConfig) validate() error {
	switch c.StoreDriver {
	case storePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("STORE_DRIVER=%s requires PG_DSN", storePostgres)
		}
	case storeMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want %s or %s)", c.StoreDriver, storePostgres, storeMemory)
	}

	return nil
}
