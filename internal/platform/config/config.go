package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
	strutil "github.com/rpsinghcodes/pg-db-crud/pkg/platform/strings"
)

// Config captures process level configuration. Database credentials are not
// part of it: they are resolved per operation by the credentials package so
// they never outlive the operation that needed them.
type Config struct {
	Server    Server
	Migration Migration
	Audit     Audit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	APIKey          string
	Environment     string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// Migration configures the dump/restore pipeline.
type Migration struct {
	Timeout     time.Duration
	PgDumpPath  string
	PsqlPath    string
	StderrLimit int
}

// Audit configures the append-only audit sink.
type Audit struct {
	LogPath      string
	KafkaBrokers []string
	KafkaTopic   string
	RedisStream  string
	AsyncBuffer  int
	Redis        Redis
}

// Redis configures the optional Redis stream audit sink. An empty URL
// disables it.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// IsProduction reports whether error detail must be suppressed.
func (s Server) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

// fileConfig is the optional YAML overlay. Secrets are intentionally absent.
type fileConfig struct {
	Port        string   `yaml:"port"`
	Environment string   `yaml:"environment"`
	CORSOrigins []string `yaml:"cors_origins"`
	Migration   struct {
		Timeout     string `yaml:"timeout"`
		PgDumpPath  string `yaml:"pg_dump_path"`
		PsqlPath    string `yaml:"psql_path"`
		StderrLimit int    `yaml:"stderr_limit"`
	} `yaml:"migration"`
	Audit struct {
		LogPath      string   `yaml:"log_path"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaTopic   string   `yaml:"kafka_topic"`
		RedisStream  string   `yaml:"redis_stream"`
		AsyncBuffer  int      `yaml:"async_buffer"`
	} `yaml:"audit"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:            ":4000",
			Environment:     "development",
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Migration: Migration{
			Timeout:     30 * time.Minute,
			PgDumpPath:  "pg_dump",
			PsqlPath:    "psql",
			StderrLimit: 16 * 1024,
		},
		Audit: Audit{
			LogPath:     "logs/activity.log",
			KafkaTopic:  "database-audit",
			RedisStream: "database-audit",
			Redis: Redis{
				PoolSize:     10,
				MinIdleConns: 1,
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
			},
		},
	}
}

// Load builds a Config from defaults, the optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (Config, error) {
	return load(os.LookupEnv, os.ReadFile)
}

type lookupFunc func(string) (string, bool)

func load(lookup lookupFunc, readFile func(string) ([]byte, error)) (Config, error) {
	cfg := Defaults()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		raw, err := readFile(path)
		if err != nil {
			return Config{}, dErrors.Wrap(err, dErrors.CodeConfig, "failed to read config file")
		}
		if err := applyFile(&cfg, raw); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c Config) Validate() error {
	if c.Server.APIKey == "" {
		return dErrors.New(dErrors.CodeConfig, "API_KEY is required")
	}
	if c.Migration.Timeout <= 0 {
		return dErrors.New(dErrors.CodeConfig, "migration timeout must be positive")
	}
	if c.Migration.StderrLimit <= 0 {
		return dErrors.New(dErrors.CodeConfig, "migration stderr limit must be positive")
	}
	return nil
}

func applyFile(cfg *Config, raw []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return dErrors.Wrap(err, dErrors.CodeConfig, "failed to parse config file")
	}
	if fc.Port != "" {
		cfg.Server.Addr = ":" + fc.Port
	}
	if fc.Environment != "" {
		cfg.Server.Environment = fc.Environment
	}
	if len(fc.CORSOrigins) > 0 {
		cfg.Server.CORSOrigins = strutil.DedupeAndTrim(fc.CORSOrigins)
	}
	if fc.Migration.Timeout != "" {
		d, err := time.ParseDuration(fc.Migration.Timeout)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeConfig, "invalid migration.timeout")
		}
		cfg.Migration.Timeout = d
	}
	setString(&cfg.Migration.PgDumpPath, fc.Migration.PgDumpPath)
	setString(&cfg.Migration.PsqlPath, fc.Migration.PsqlPath)
	if fc.Migration.StderrLimit > 0 {
		cfg.Migration.StderrLimit = fc.Migration.StderrLimit
	}
	setString(&cfg.Audit.LogPath, fc.Audit.LogPath)
	if len(fc.Audit.KafkaBrokers) > 0 {
		cfg.Audit.KafkaBrokers = strutil.DedupeAndTrim(fc.Audit.KafkaBrokers)
	}
	setString(&cfg.Audit.KafkaTopic, fc.Audit.KafkaTopic)
	setString(&cfg.Audit.RedisStream, fc.Audit.RedisStream)
	if fc.Audit.AsyncBuffer > 0 {
		cfg.Audit.AsyncBuffer = fc.Audit.AsyncBuffer
	}
	return nil
}

func applyEnv(cfg *Config, lookup lookupFunc) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if port := get("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if addr := get("SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	cfg.Server.APIKey = get("API_KEY")
	setString(&cfg.Server.Environment, get("APP_ENV"))
	if origins := get("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}

	if raw := get("SHUTDOWN_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return dErrors.New(dErrors.CodeConfig, fmt.Sprintf("SHUTDOWN_TIMEOUT must be a positive duration, got %q", raw))
		}
		cfg.Server.ShutdownTimeout = d
	}

	if raw := get("MIGRATION_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeConfig, "MIGRATION_TIMEOUT must be a duration such as 30m")
		}
		cfg.Migration.Timeout = d
	}
	setString(&cfg.Migration.PgDumpPath, get("PG_DUMP_PATH"))
	setString(&cfg.Migration.PsqlPath, get("PSQL_PATH"))

	setString(&cfg.Audit.LogPath, get("AUDIT_LOG_PATH"))
	if brokers := get("AUDIT_KAFKA_BROKERS"); brokers != "" {
		cfg.Audit.KafkaBrokers = splitList(brokers)
	}
	setString(&cfg.Audit.KafkaTopic, get("AUDIT_KAFKA_TOPIC"))
	setString(&cfg.Audit.Redis.URL, get("AUDIT_REDIS_URL"))
	setString(&cfg.Audit.RedisStream, get("AUDIT_REDIS_STREAM"))
	if raw := get("AUDIT_ASYNC_BUFFER"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return dErrors.New(dErrors.CodeConfig, fmt.Sprintf("AUDIT_ASYNC_BUFFER must be a non-negative integer, got %q", raw))
		}
		cfg.Audit.AsyncBuffer = n
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(raw string) []string {
	return strutil.SplitList(raw, ",")
}
