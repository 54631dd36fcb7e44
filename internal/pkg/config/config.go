package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/shopspring/decimal"
)

// ServerConfig configures cartd.
type ServerConfig struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	// CartWorkers is the number of workers that serialize per-user cart writes.
	CartWorkers int `env:"CART_WORKERS, default=8"`

	Mongo MongoConfig
	Redis RedisConfig
}

// ClientConfig configures the cartsync client.
type ClientConfig struct {
	APIURL       string          `env:"CARTSYNC_API_URL,    default=http://localhost:8080"`
	TabID        string          `env:"CARTSYNC_TAB_ID"`
	Debounce     time.Duration   `env:"SYNC_DEBOUNCE,       default=1s"`
	Heartbeat    time.Duration   `env:"SYNC_HEARTBEAT,      default=30s"`
	PollInterval time.Duration   `env:"AUTH_POLL_INTERVAL,  default=5s"`
	Tolerance    decimal.Decimal `env:"RECONCILE_TOLERANCE, default=1.00"`
	HTTPTimeout  time.Duration   `env:"HTTP_TIMEOUT,        default=10s"`
	LogLevel     string          `env:"LOG_LEVEL,           default=warn"`
	MetricsAddr  string          `env:"METRICS_ADDR"`

	Redis RedisConfig
}

type MongoConfig struct {
	URI            string        `env:"MONGO_URI,             default=mongodb://localhost:27017"`
	Database       string        `env:"MONGO_DB,              default=storefront"`
	MaxPoolSize    uint64        `env:"MONGO_MAX_POOL_SIZE,   default=50"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr        string        `env:"REDIS_ADDR,         default=localhost:6379"`
	DB          int           `env:"REDIS_DB,           default=0"`
	Password    string        `env:"REDIS_PASSWORD"`
	PoolSize    int           `env:"REDIS_POOL_SIZE,    default=10"`
	DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT, default=5s"`
}

// LoadServer reads cartd configuration from environment variables.
func LoadServer(ctx context.Context) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := process(ctx, &cfg, nil); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadClient reads cartsync configuration from environment variables.
func LoadClient(ctx context.Context) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := process(ctx, &cfg, nil); err != nil {
		return nil, err
	}
	if cfg.Tolerance.IsNegative() {
		return nil, fmt.Errorf("config: RECONCILE_TOLERANCE must not be negative")
	}
	return &cfg, nil
}

func process(ctx context.Context, target any, lookuper envconfig.Lookuper) error {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: target, Lookuper: lookuper}); err != nil {
		return fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return nil
}
