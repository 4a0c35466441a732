package migrate

import (
	"context"
	"os"
	"os/exec"
	"sort"

	"github.com/rpsinghcodes/pg-db-crud/internal/database/credentials"
	"github.com/rpsinghcodes/pg-db-crud/pkg/domain"
)

// ProcessSpec describes a child process as an argument vector plus a private
// environment. There is no shell and no command string: arguments are passed
// to the program verbatim, and credentials only ever travel in Env.
type ProcessSpec struct {
	Path string
	Args []string
	Env  map[string]string
}

// Environ flattens Env into the KEY=VALUE form exec expects.
func (p ProcessSpec) Environ() []string {
	keys := make([]string, 0, len(p.Env))
	for k := range p.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+p.Env[k])
	}
	return env
}

func (p ProcessSpec) command(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Env = p.Environ()
	return cmd
}

// Commands builds the producer and consumer of a migration pipeline.
type Commands interface {
	// Producer writes the full logical content of source to stdout.
	Producer(desc credentials.Descriptor, source domain.DatabaseName) ProcessSpec
	// Consumer applies the stream read from stdin to target.
	Consumer(desc credentials.Descriptor, target domain.DatabaseName) ProcessSpec
}

// PostgresCommands pipes pg_dump into psql.
type PostgresCommands struct {
	PgDumpPath string
	PsqlPath   string
}

func (c PostgresCommands) Producer(desc credentials.Descriptor, source domain.DatabaseName) ProcessSpec {
	return ProcessSpec{
		Path: orDefault(c.PgDumpPath, "pg_dump"),
		Args: []string{
			"--no-owner",
			"--no-privileges",
			"--format=plain",
			"--dbname=" + source.String(),
		},
		Env: childEnv(desc),
	}
}

func (c PostgresCommands) Consumer(desc credentials.Descriptor, target domain.DatabaseName) ProcessSpec {
	return ProcessSpec{
		Path: orDefault(c.PsqlPath, "psql"),
		Args: []string{
			"--no-psqlrc",
			"--quiet",
			"--set=ON_ERROR_STOP=1",
			"--dbname=" + target.String(),
		},
		Env: childEnv(desc),
	}
}

// passthroughEnv are the only parent variables a child inherits. The full
// parent environment is never forwarded: it holds DATABASE_URL and API_KEY.
var passthroughEnv = []string{"PATH", "HOME", "LANG", "LC_ALL", "LC_CTYPE", "TZ", "TMPDIR", "SYSTEMROOT"}

func childEnv(desc credentials.Descriptor) map[string]string {
	env := make(map[string]string, len(passthroughEnv)+5)
	for _, key := range passthroughEnv {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	for _, kv := range desc.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				env[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return env
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
