// Package credentials resolves PostgreSQL connection parameters from the
// environment. A Descriptor lives only for the operation that needed it and
// is never logged, serialised or included in an error message in clear text.
package credentials

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
)

// Environment keys recognised by Resolve.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvHost        = "DB_HOST"
	EnvPort        = "DB_PORT"
	EnvUser        = "DB_USER"
	EnvPassword    = "DB_PASSWORD"
	EnvSSLMode     = "DB_SSLMODE"
)

const (
	defaultPort     = 5432
	defaultDatabase = "postgres"
	redacted        = "[REDACTED]"
)

// EnvironmentView is a read-only view over configuration values.
type EnvironmentView interface {
	Lookup(key string) (string, bool)
}

// OSEnvironment reads from the process environment.
type OSEnvironment struct{}

func (OSEnvironment) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnvironment is a fixed set of values, mainly for tests and the CLI.
type MapEnvironment map[string]string

func (m MapEnvironment) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Descriptor holds connection parameters for one operation.
// Fields are unexported so the password cannot leak through reflection-based
// encoders; every formatting path redacts it.
type Descriptor struct {
	host     string
	port     int
	user     string
	password string
	database string
	sslMode  string
}

func (d Descriptor) Host() string { return d.host }
func (d Descriptor) Port() int    { return d.port }
func (d Descriptor) User() string { return d.user }

// Database is the maintenance database used for catalog queries.
func (d Descriptor) Database() string { return d.database }

// HasPassword reports whether a password was resolved, without revealing it.
func (d Descriptor) HasPassword() bool { return d.password != "" }

// Environ returns the libpq environment for a child process connecting with
// these credentials. Passing the password this way keeps it out of argument
// vectors, and therefore out of process listings and error text.
func (d Descriptor) Environ() []string {
	env := []string{
		"PGHOST=" + d.host,
		"PGPORT=" + strconv.Itoa(d.port),
		"PGUSER=" + d.user,
		"PGPASSWORD=" + d.password,
	}
	if d.sslMode != "" {
		env = append(env, "PGSSLMODE="+d.sslMode)
	}
	return env
}

// ConnString returns a DSN for the given database with these credentials.
// The result contains the password and must only be handed to a driver.
func (d Descriptor) ConnString(db string) string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.host, strconv.Itoa(d.port)),
		Path:   "/" + db,
	}
	if d.password != "" {
		u.User = url.UserPassword(d.user, d.password)
	} else {
		u.User = url.User(d.user)
	}
	if d.sslMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(d.sslMode)
	}
	return u.String()
}

// MaintenanceConnString is ConnString for the maintenance database.
func (d Descriptor) MaintenanceConnString() string {
	return d.ConnString(d.database)
}

func (d Descriptor) String() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s", d.user, redacted, net.JoinHostPort(d.host, strconv.Itoa(d.port)), d.database)
}

func (d Descriptor) GoString() string {
	return "credentials.Descriptor{" + d.String() + "}"
}

// LogValue implements slog.LogValuer.
func (d Descriptor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("host", d.host),
		slog.Int("port", d.port),
		slog.String("user", d.user),
		slog.String("password", redacted),
	)
}

// MarshalJSON never emits the password.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"host":     d.host,
		"port":     d.port,
		"user":     d.user,
		"password": redacted,
	})
}

// Resolve derives a Descriptor from env. A connection descriptor in
// DATABASE_URL takes precedence over the discrete DB_* settings.
//
// Errors: returns CodeConfig when neither strategy yields a complete
// descriptor. A malformed DATABASE_URL is reported only as "malformed
// connection descriptor"; its contents never reach the error.
func Resolve(env EnvironmentView) (Descriptor, error) {
	if raw, ok := env.Lookup(EnvDatabaseURL); ok && strings.TrimSpace(raw) != "" {
		d, err := fromConnString(strings.TrimSpace(raw))
		if err != nil {
			return Descriptor{}, err
		}
		if mode, ok := env.Lookup(EnvSSLMode); ok && mode != "" {
			d.sslMode = mode
		}
		return d, nil
	}
	return fromDiscrete(env)
}

func fromConnString(raw string) (Descriptor, error) {
	cfg, err := pgconn.ParseConfig(raw)
	if err != nil {
		return Descriptor{}, dErrors.New(dErrors.CodeConfig, "malformed connection descriptor")
	}
	d := Descriptor{
		host:     cfg.Host,
		port:     int(cfg.Port),
		user:     cfg.User,
		password: cfg.Password,
		database: cfg.Database,
		sslMode:  sslModeOf(raw),
	}
	if d.port == 0 {
		d.port = defaultPort
	}
	if d.database == "" {
		d.database = defaultDatabase
	}
	if d.host == "" || d.user == "" {
		return Descriptor{}, dErrors.New(dErrors.CodeConfig, "connection descriptor must include host and user")
	}
	return d, nil
}

func fromDiscrete(env EnvironmentView) (Descriptor, error) {
	host := lookupTrimmed(env, EnvHost)
	user := lookupTrimmed(env, EnvUser)
	password, _ := env.Lookup(EnvPassword)
	if host == "" || user == "" || password == "" {
		return Descriptor{}, dErrors.New(dErrors.CodeConfig,
			"database configuration missing: provide DATABASE_URL or DB_HOST, DB_USER and DB_PASSWORD")
	}

	port := defaultPort
	if raw := lookupTrimmed(env, EnvPort); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p <= 0 || p > 65535 {
			return Descriptor{}, dErrors.New(dErrors.CodeConfig, "DB_PORT must be a valid port number")
		}
		port = p
	}

	return Descriptor{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		database: defaultDatabase,
		sslMode:  lookupTrimmed(env, EnvSSLMode),
	}, nil
}

func lookupTrimmed(env EnvironmentView, key string) string {
	v, _ := env.Lookup(key)
	return strings.TrimSpace(v)
}

func sslModeOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return ""
	}
	return u.Query().Get("sslmode")
}
