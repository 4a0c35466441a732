package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpsinghcodes/pg-db-crud/internal/database/credentials"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/migrate"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/service"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/store"
	"github.com/rpsinghcodes/pg-db-crud/internal/platform/logger"
	"github.com/rpsinghcodes/pg-db-crud/internal/platform/postgres"
	audit "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit/publisher"
	filestore "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit/store/file"
)

type options struct {
	timeout     time.Duration
	pgDumpPath  string
	psqlPath    string
	stderrLimit int
	auditLog    string
	verbose     bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:           "dbctl [command]",
	Short:         "Create, inspect and migrate PostgreSQL databases",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.DurationVar(&opts.timeout, "timeout", migrate.DefaultTimeout, "Upper bound for a migration")
	flags.StringVar(&opts.pgDumpPath, "pg-dump", "pg_dump", "Path to the pg_dump binary")
	flags.StringVar(&opts.psqlPath, "psql", "psql", "Path to the psql binary")
	flags.IntVar(&opts.stderrLimit, "stderr-limit", migrate.DefaultStderrLimit, "Bytes of child stderr kept for diagnostics")
	flags.StringVar(&opts.auditLog, "audit-log", "", "Append audit events to this file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress to stderr")

	rootCmd.AddCommand(listCmd, createCmd, verifyCmd, migrateCmd)
}

// session owns everything a command needs and releases it on close.
type session struct {
	service *service.Service
	closers []func()
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openSession(ctx context.Context) (*session, error) {
	log := slog.New(slog.DiscardHandler)
	if opts.verbose {
		log = logger.NewWithWriter(os.Stderr, false)
	}

	desc, err := credentials.Resolve(credentials.OSEnvironment{})
	if err != nil {
		return nil, err
	}
	pg, err := postgres.Open(ctx, desc, postgres.DefaultPoolConfig())
	if err != nil {
		return nil, err
	}
	s := &session{closers: []func(){func() { _ = pg.Close() }}}

	svcOpts := []service.Option{service.WithLogger(log)}
	if opts.auditLog != "" {
		file, err := filestore.New(opts.auditLog)
		if err != nil {
			s.close()
			return nil, err
		}
		pub := publisher.NewPublisher(audit.Fanout{file}, publisher.WithLogger(log))
		s.closers = append(s.closers, func() { _ = file.Close() }, pub.Close)
		svcOpts = append(svcOpts, service.WithAuditPublisher(pub))
	}

	catalog := store.NewPostgres(pg.DB)
	orchestrator := migrate.New(catalog,
		migrate.PostgresCommands{PgDumpPath: opts.pgDumpPath, PsqlPath: opts.psqlPath},
		migrate.WithTimeout(opts.timeout),
		migrate.WithStderrLimit(opts.stderrLimit),
		migrate.WithLogger(log),
	)
	s.service = service.New(catalog, orchestrator, svcOpts...)
	return s, nil
}
