package config

import "time"

// PostgresConfig configures the pgx connection pool. DSN is only required by
// binaries that actually open Postgres.
type PostgresConfig struct {
	DSN             string        `env:"PG_DSN" envDefault:""`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig configures the idempotency cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" envDefault:""`
	Password string        `env:"REDIS_PASSWORD" envDefault:""`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	SeenTTL  time.Duration `env:"REDIS_SEEN_TTL" envDefault:"24h"`
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// KafkaConfig configures the ledger entry feed. No brokers disables it.
type KafkaConfig struct {
	Brokers      []string      `env:"KAFKA_BROKERS" envDefault:""`
	EntriesTopic string        `env:"KAFKA_ENTRIES_TOPIC" envDefault:"wallet.ledger-entries"`
	WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT" envDefault:"5s"`
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }
