// Package config loads server settings. Sources, lowest precedence first:
// built-in defaults, the environment (a .env file is read if present), an
// optional YAML file and explicitly set command-line flags.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	SessionMemory   = "memory"
	SessionRedis    = "redis"
	SessionPostgres = "postgres"
)

const defaultSessionSecret = "secret_key_change_me"

type Config struct {
	Addr      string `koanf:"addr"`
	LogFormat string `koanf:"log-format"`
	LogLevel  string `koanf:"log-level"`

	Storage      string        `koanf:"storage"`
	DatabaseURL  string        `koanf:"database-url"`
	ConnectTries uint64        `koanf:"db-connect-tries"`
	SlowQuery    time.Duration `koanf:"db-slow-query"`

	SessionBackend  string        `koanf:"session-backend"`
	SessionSecret   string        `koanf:"session-secret"`
	SessionTTL      time.Duration `koanf:"session-ttl"`
	CookieSecure    bool          `koanf:"cookie-secure"`
	CookieSameSite  string        `koanf:"cookie-samesite"`
	SessionSweepInt time.Duration `koanf:"session-sweep-interval"`

	RedisAddr     string `koanf:"redis-addr"`
	RedisPassword string `koanf:"redis-password"`
	RedisDB       int    `koanf:"redis-db"`

	AMQPURL   string `koanf:"amqp-url"`
	AMQPQueue string `koanf:"amqp-queue"`

	AdminUsername string `koanf:"admin-username"`
	AdminPassword string `koanf:"admin-password"`
	AdminEmail    string `koanf:"admin-email"`

	GithubStars int           `koanf:"github-stars"`
	TopCacheTTL time.Duration `koanf:"top-cache-ttl"`

	ReconcileInterval time.Duration `koanf:"reconcile-interval"`

	RateLimit RateLimit `koanf:",squash"`
}

// RateLimit configures the token bucket on the upvote routes. It only takes
// effect when a Redis client is available.
type RateLimit struct {
	Enabled        bool          `koanf:"ratelimit-enabled"`
	Capacity       int           `koanf:"ratelimit-capacity"`
	RefillTokens   int           `koanf:"ratelimit-refill-tokens"`
	RefillInterval time.Duration `koanf:"ratelimit-refill-interval"`
	TTL            time.Duration `koanf:"ratelimit-ttl"`
	Prefix         string        `koanf:"ratelimit-prefix"`
}

// LoadDotEnv reads .env into the process environment if the file exists.
// Call it before RegisterFlags so the values become flag defaults.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// RegisterFlags defines every setting on fs, with the current environment as
// the default value.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("addr", ":"+envStr("PORT", "8080"), "HTTP listen address")
	fs.String("log-format", envStr("LOG_FORMAT", "json"), "log format (json or text)")
	fs.String("log-level", envStr("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")

	fs.String("storage", envStr("STORAGE", StoragePostgres), "storage backend (postgres or memory)")
	fs.String("database-url", envStr("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=titanhub port=5432 sslmode=disable"), "postgres DSN")
	fs.Uint64("db-connect-tries", uint64(envInt("DB_CONNECT_TRIES", 8)), "database connect attempts before giving up")
	fs.Duration("db-slow-query", envDur("DB_SLOW_QUERY", 200*time.Millisecond), "log queries slower than this")

	fs.String("session-backend", envStr("SESSION_BACKEND", SessionMemory), "session store (memory, redis or postgres)")
	fs.String("session-secret", envStr("SESSION_SECRET", defaultSessionSecret), "cookie signing secret")
	fs.Duration("session-ttl", envDur("SESSION_TTL", 30*24*time.Hour), "session lifetime")
	fs.Bool("cookie-secure", envBool("COOKIE_SECURE", false), "mark the session cookie Secure")
	fs.String("cookie-samesite", envStr("COOKIE_SAMESITE", "lax"), "SameSite mode (lax, strict or none)")
	fs.Duration("session-sweep-interval", envDur("SESSION_SWEEP_INTERVAL", 10*time.Minute), "expired session cleanup interval")

	fs.String("redis-addr", envStr("REDIS_ADDR", ""), "redis host:port (empty disables redis)")
	fs.String("redis-password", envStr("REDIS_PASSWORD", ""), "redis password")
	fs.Int("redis-db", envInt("REDIS_DB", 0), "redis database number")

	fs.String("amqp-url", envStr("RABBITMQ_URL", ""), "RabbitMQ URL (empty disables event publishing)")
	fs.String("amqp-queue", envStr("RABBITMQ_QUEUE", "titanhub.events"), "queue receiving domain events")

	fs.String("admin-username", envStr("ADMIN_USERNAME", "admin21"), "bootstrap admin username")
	fs.String("admin-password", envStr("ADMIN_PASSWORD", "admin123"), "bootstrap admin password")
	fs.String("admin-email", envStr("ADMIN_EMAIL", "admin@titanhub.dev"), "bootstrap admin email")

	fs.Int("github-stars", envInt("GITHUB_STARS", 7823), "seed value of the github stars counter")
	fs.Duration("top-cache-ttl", envDur("TOP_CACHE_TTL", 30*time.Second), "lifetime of cached top lists")
	fs.Duration("reconcile-interval", envDur("RECONCILE_INTERVAL", 500*time.Millisecond), "comment count reconcile batch interval")

	fs.Bool("ratelimit-enabled", envBool("RATE_LIMIT_ENABLED", true), "rate limit upvotes (needs redis)")
	fs.Int("ratelimit-capacity", envInt("RATE_LIMIT_CAPACITY", 30), "token bucket size")
	fs.Int("ratelimit-refill-tokens", envInt("RATE_LIMIT_REFILL_TOKENS", 1), "tokens added per interval")
	fs.Duration("ratelimit-refill-interval", envDur("RATE_LIMIT_REFILL_INTERVAL", 2*time.Second), "refill interval")
	fs.Duration("ratelimit-ttl", envDur("RATE_LIMIT_TTL", 10*time.Minute), "idle bucket expiry")
	fs.String("ratelimit-prefix", envStr("RATE_LIMIT_PREFIX", "titanhub:rl"), "redis key prefix")
}

// Load merges configFile (optional) and the flags in fs into a Config.
// Flags override the file only when set explicitly.
func Load(fs *pflag.FlagSet, configFile string) (*Config, error) {
	k := koanf.New(".")

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("file", configFile).Wrap(err)
		}
	}
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	c.SessionBackend = strings.ToLower(strings.TrimSpace(c.SessionBackend))
	c.CookieSameSite = strings.ToLower(strings.TrimSpace(c.CookieSameSite))

	rl := &c.RateLimit
	if rl.Capacity < 1 {
		rl.Capacity = 1
	}
	if rl.RefillTokens < 1 {
		rl.RefillTokens = 1
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
		rl.TTL = minTTL
	}
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	invalid := oops.Code("CONFIG_INVALID")
	if c.Addr == "" {
		return invalid.Errorf("addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid.Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return invalid.Errorf("database-url is required for postgres storage")
		}
	default:
		return invalid.Errorf("unknown storage %q", c.Storage)
	}
	switch c.SessionBackend {
	case SessionMemory:
	case SessionRedis:
		if c.RedisAddr == "" {
			return invalid.Errorf("redis-addr is required for the redis session backend")
		}
	case SessionPostgres:
		if c.Storage != StoragePostgres {
			return invalid.Errorf("the postgres session backend needs postgres storage")
		}
	default:
		return invalid.Errorf("unknown session backend %q", c.SessionBackend)
	}
	switch c.CookieSameSite {
	case "lax", "strict", "none":
	default:
		return invalid.Errorf("cookie-samesite must be lax, strict or none")
	}
	if c.SessionSecret == "" {
		return invalid.Errorf("session-secret is required")
	}
	if c.SessionTTL <= 0 {
		return invalid.Errorf("session-ttl must be positive")
	}
	if c.AdminUsername == "" || c.AdminPassword == "" {
		return invalid.Errorf("admin credentials are required")
	}
	return nil
}

// InsecureSecret reports whether the cookie secret is still the shipped default.
func (c *Config) InsecureSecret() bool {
	return c.SessionSecret == defaultSessionSecret
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	switch strings.ToLower(v) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return v
	}
	return d
}
