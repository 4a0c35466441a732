// Package migrate streams the full content of one database into another by
// piping a dump process into a restore process.
//
// The orchestrator never holds the payload: the producer's stdout is the
// consumer's stdin at the OS level. It only owns the two stderr streams, which
// are drained concurrently with waiting for both exits so a chatty child can
// never fill its pipe buffer and stall the pipeline.
//
// Concurrent migrations into the same target are not serialised here; callers
// that need that guarantee must coordinate before calling Migrate.
package migrate

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rpsinghcodes/pg-db-crud/internal/database/classify"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/credentials"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/models"
	"github.com/rpsinghcodes/pg-db-crud/internal/platform/metrics"
	"github.com/rpsinghcodes/pg-db-crud/pkg/domain"
	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
)

const (
	// DefaultTimeout bounds a migration when no timeout is configured.
	DefaultTimeout = 30 * time.Minute
	// DefaultStderrLimit is the number of diagnostic bytes kept per process.
	DefaultStderrLimit = 16 * 1024

	defaultDrainGrace = 2 * time.Second
	tracerName        = "github.com/rpsinghcodes/pg-db-crud/internal/database/migrate"
)

// Catalog is the existence check run before anything is spawned.
type Catalog interface {
	Missing(ctx context.Context, names ...domain.DatabaseName) ([]domain.DatabaseName, error)
}

// Orchestrator runs migrations. It is safe for concurrent use; every call
// resolves its own credentials and owns its own processes.
type Orchestrator struct {
	catalog     Catalog
	commands    Commands
	env         credentials.EnvironmentView
	timeout     time.Duration
	stderrLimit int
	drainGrace  time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

type Option func(*Orchestrator)

// WithTimeout bounds the wall-clock duration of the pipeline.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithStderrLimit sets how many diagnostic bytes are kept per process.
func WithStderrLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.stderrLimit = n
		}
	}
}

// WithEnvironment sets where credentials are resolved from.
func WithEnvironment(env credentials.EnvironmentView) Option {
	return func(o *Orchestrator) {
		if env != nil {
			o.env = env
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// New constructs an Orchestrator.
func New(catalog Catalog, commands Commands, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:     catalog,
		commands:    commands,
		env:         credentials.OSEnvironment{},
		timeout:     DefaultTimeout,
		stderrLimit: DefaultStderrLimit,
		drainGrace:  defaultDrainGrace,
		logger:      slog.New(slog.DiscardHandler),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Migrate copies source into target.
//
// The returned error is non-nil only when the request was rejected before any
// process was spawned: an invalid request (CodeValidation), a missing database
// (CodeNotFound), unresolvable credentials (CodeConfig) or a failed catalog
// query. Once the pipeline runs, the result is always reported through the
// outcome. A failed outcome leaves the target in an undefined state; nothing
// is rolled back or retried.
func (o *Orchestrator) Migrate(ctx context.Context, req models.MigrationRequest) (models.MigrationOutcome, error) {
	if err := req.Validate(); err != nil {
		return models.MigrationOutcome{}, err
	}

	missing, err := o.catalog.Missing(ctx, req.Source, req.Target)
	if err != nil {
		return models.MigrationOutcome{}, classify.Error(err, "failed to check database existence")
	}
	if len(missing) > 0 {
		return models.MigrationOutcome{}, dErrors.New(dErrors.CodeNotFound, "one or both databases do not exist")
	}

	desc, err := credentials.Resolve(o.env)
	if err != nil {
		return models.MigrationOutcome{}, err
	}
	producer := o.commands.Producer(desc, req.Source)
	consumer := o.commands.Consumer(desc, req.Target)

	ctx, span := o.tracer.Start(ctx, "migrate", trace.WithAttributes(
		attribute.String("db.migration.source", req.Source.String()),
		attribute.String("db.migration.target", req.Target.String()),
	))
	defer span.End()

	if o.metrics != nil {
		o.metrics.IncrementMigrationsStarted()
	}
	o.logger.InfoContext(ctx, "migration started",
		"source", req.Source,
		"target", req.Target,
		"timeout", o.timeout,
	)

	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	outcome := o.run(runCtx, producer, consumer)
	outcome.Duration = time.Since(start)

	o.record(ctx, span, req, outcome)
	return outcome, nil
}

// child is one side of the pipeline.
type child struct {
	stage models.Stage
	cmd   *exec.Cmd
	errR  *os.File // read end of the child's stderr
	diag  *boundedBuffer
	exit  models.ExitInfo

	exitedAt   time.Time
	brokenPipe bool // killed by SIGPIPE, or a shell reporting it as 141
}

func (ch *child) drain() error {
	_, err := io.Copy(ch.diag, ch.errR)
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

func (ch *child) wait() {
	_ = ch.cmd.Wait()
	ch.exitedAt = time.Now()
	ch.exit = exitInfo(ch.cmd.ProcessState)
	ch.brokenPipe = brokenPipe(ch.cmd.ProcessState)
}

func exitInfo(state *os.ProcessState) models.ExitInfo {
	if state == nil {
		return models.ExitInfo{Started: true, Code: -1, Abnormal: true, Status: "unknown"}
	}
	return models.ExitInfo{
		Started:  true,
		Code:     state.ExitCode(),
		Abnormal: !state.Exited(),
		Status:   state.String(),
	}
}

func (o *Orchestrator) run(ctx context.Context, producerSpec, consumerSpec ProcessSpec) models.MigrationOutcome {
	p := &child{stage: models.StageSource, cmd: producerSpec.command(ctx), diag: newBoundedBuffer(o.stderrLimit)}
	c := &child{stage: models.StageTarget, cmd: consumerSpec.command(ctx), diag: newBoundedBuffer(o.stderrLimit)}
	isolate(p.cmd)
	isolate(c.cmd)

	pipes, err := openPipes(3)
	if err != nil {
		return models.Failed(models.StagePipe, classify.Classify(err), p.exit, c.exit, "could not create pipes")
	}
	data, pErr, cErr := pipes[0], pipes[1], pipes[2]

	p.cmd.Stdout = data.w
	c.cmd.Stdin = data.r
	p.cmd.Stderr, p.errR = pErr.w, pErr.r
	c.cmd.Stderr, c.errR = cErr.w, cErr.r

	if err := p.cmd.Start(); err != nil {
		closeAll(pipes)
		kind := startKind(err)
		return models.Failed(stageForStart(models.StageSource, kind), kind, p.exit, c.exit, "could not start producer")
	}
	p.exit.Started = true

	if err := c.cmd.Start(); err != nil {
		// The producer is already running: stop it and reap it before
		// reporting, so nothing outlives this call.
		data.close()
		pErr.w.Close()
		cErr.close()
		_ = p.cmd.Cancel()
		_ = o.join(p)
		kind := startKind(err)
		return models.Failed(stageForStart(models.StageTarget, kind), kind, p.exit, c.exit, "could not start consumer")
	}
	c.exit.Started = true

	// The children hold their own copies now. The parent must drop its ends
	// of the data pipe so EOF and broken-pipe propagate between them, and its
	// stderr write ends so the drains see EOF.
	data.close()
	pErr.w.Close()
	cErr.w.Close()

	if err := o.join(p, c); err != nil {
		o.logger.WarnContext(ctx, "stderr drain failed", "error", err)
	}
	return classifyExit(ctx, p, c)
}

// join drains stderr and waits for exit of every child concurrently and
// returns once all of them have exited. A grandchild that inherited stderr
// can keep a pipe open after its parent died; after drainGrace the read ends
// are closed to release the drains.
func (o *Orchestrator) join(children ...*child) error {
	var drains, waits errgroup.Group
	for _, ch := range children {
		drains.Go(ch.drain)
		waits.Go(func() error {
			ch.wait()
			return nil
		})
	}
	_ = waits.Wait()

	drained := make(chan error, 1)
	go func() { drained <- drains.Wait() }()

	var err error
	select {
	case err = <-drained:
	case <-time.After(o.drainGrace):
		for _, ch := range children {
			_ = ch.errR.Close()
		}
		err = <-drained
	}
	for _, ch := range children {
		_ = ch.errR.Close()
	}
	return err
}

// classifyExit attributes the outcome once both children have exited.
func classifyExit(ctx context.Context, p, c *child) models.MigrationOutcome {
	switch {
	case p.exit.Succeeded() && c.exit.Succeeded():
		return models.Succeeded(0, p.exit, c.exit)
	case ctx.Err() != nil:
		return models.Failed(models.StagePipe, classify.Classify(ctx.Err()), p.exit, c.exit, diagnostics(p, c))
	case !c.exit.Succeeded() && !p.exit.Succeeded() && producerLostReader(p, c):
		return models.Failed(models.StageTarget, dErrors.CodeProcess, p.exit, c.exit, c.diag.String())
	case p.exit.Abnormal || c.exit.Abnormal || (!p.exit.Succeeded() && !c.exit.Succeeded()):
		return models.Failed(models.StagePipe, dErrors.CodeProcess, p.exit, c.exit, diagnostics(p, c))
	case !p.exit.Succeeded():
		return models.Failed(models.StageSource, dErrors.CodeProcess, p.exit, c.exit, p.diag.String())
	default:
		return models.Failed(models.StageTarget, dErrors.CodeProcess, p.exit, c.exit, c.diag.String())
	}
}

// producerLostReader reports whether the producer failed only because the
// consumer had already gone: it died writing to a closed pipe, or it exited
// after the consumer did. pg_dump reports EPIPE as a plain exit 1.
func producerLostReader(p, c *child) bool {
	return p.brokenPipe || p.exitedAt.After(c.exitedAt)
}

// startKind classifies a failed Start. A binary that does not exist at a
// configured absolute path is as unavailable as one missing from PATH.
func startKind(err error) classify.Kind {
	if errors.Is(err, fs.ErrNotExist) {
		return dErrors.CodeConnectivity
	}
	return classify.Classify(err)
}

func stageForStart(stage models.Stage, kind classify.Kind) models.Stage {
	if kind == dErrors.CodeTimeout || kind == dErrors.CodeCanceled {
		return models.StagePipe
	}
	return stage
}

func diagnostics(children ...*child) string {
	var parts []string
	for _, ch := range children {
		if s := ch.diag.String(); s != "" {
			parts = append(parts, string(ch.stage)+": "+s)
		}
	}
	return strings.Join(parts, "\n")
}

func (o *Orchestrator) record(ctx context.Context, span trace.Span, req models.MigrationRequest, outcome models.MigrationOutcome) {
	if outcome.Success {
		span.SetStatus(codes.Ok, "")
		o.logger.InfoContext(ctx, "migration completed",
			"source", req.Source,
			"target", req.Target,
			"duration_ms", outcome.Duration.Milliseconds(),
		)
		if o.metrics != nil {
			o.metrics.ObserveMigration("success", "", outcome.Duration)
		}
		return
	}

	span.SetAttributes(
		attribute.String("db.migration.stage", string(outcome.Stage)),
		attribute.String("db.migration.kind", string(outcome.Kind)),
	)
	span.SetStatus(codes.Error, outcome.Summary())
	o.logger.ErrorContext(ctx, "migration failed",
		"source", req.Source,
		"target", req.Target,
		"stage", outcome.Stage,
		"kind", outcome.Kind,
		"producer", outcome.Producer.String(),
		"consumer", outcome.Consumer.String(),
		"diagnostics", outcome.Diagnostics,
		"duration_ms", outcome.Duration.Milliseconds(),
	)
	if o.metrics != nil {
		o.metrics.ObserveMigration("failure", string(outcome.Stage), outcome.Duration)
	}
}

type pipe struct {
	r, w *os.File
}

func (p pipe) close() {
	_ = p.r.Close()
	_ = p.w.Close()
}

func openPipes(n int) ([]pipe, error) {
	pipes := make([]pipe, 0, n)
	for range n {
		r, w, err := os.Pipe()
		if err != nil {
			closeAll(pipes)
			return nil, err
		}
		pipes = append(pipes, pipe{r: r, w: w})
	}
	return pipes, nil
}

func closeAll(pipes []pipe) {
	for _, p := range pipes {
		p.close()
	}
}
