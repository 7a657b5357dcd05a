package config

import "time"

type Config struct {
	Service     *ServiceConfig
	Redis       *RedisConfig
	Postgres    *PostgresConfig
	Tracer      *TracerConfig
	Coordinator *CoordinatorConfig
	Worker      *WorkerConfig
	Logger      *LoggerConfig
	SecretToken string
}

type ServiceConfig struct {
	Name string
	Env  string
	Addr string
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	Migrate         bool
}

type TracerConfig struct {
	Address string
}

// CoordinatorConfig tunes the real-time state core: the call state
// machine timer, the caller cooldown, the offline delivery sweep cap,
// and the pending receipt buffer bounds.
type CoordinatorConfig struct {
	RingTimeout       time.Duration
	CallCooldown      time.Duration
	SweepLimit        int
	ReceiptBufferMax  int
	ReceiptsPerBuffer int
	ReceiptBufferTTL  time.Duration
}

type WorkerConfig struct {
	MessageGroup string
}

type LoggerConfig struct {
	Level  string
	Format string
}
