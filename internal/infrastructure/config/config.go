package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=habit_tracker"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// RateLimitConfig drives the two token-bucket limiters: a general one keyed
// by client for the whole API, and a stricter one shared by the credential
// endpoints where brute force is the concern.
type RateLimitConfig struct {
	Capacity     float64 `env:"RATE_LIMIT_CAPACITY,      default=60"`
	RefillPerSec float64 `env:"RATE_LIMIT_REFILL,        default=10"`
	AuthCapacity float64 `env:"RATE_LIMIT_AUTH_CAPACITY, default=5"`
	AuthRefill   float64 `env:"RATE_LIMIT_AUTH_REFILL,   default=1"`
}

type AuditConfig struct {
	// Output is the audit trail destination: a file path, "stdout" or "stderr".
	Output string `env:"AUDIT_LOG, default=audit.log"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
