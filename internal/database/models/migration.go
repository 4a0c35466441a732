package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/rpsinghcodes/pg-db-crud/pkg/domain"
	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
)

// Stage attributes a failed migration to one side of the pipeline.
type Stage string

const (
	// StageSource is the producer (dump) side.
	StageSource Stage = "source"
	// StageTarget is the consumer (restore) side.
	StageTarget Stage = "target"
	// StagePipe covers failures of both sides, abnormal termination,
	// timeouts and cancellation.
	StagePipe Stage = "pipe"
)

// MigrationRequest names the database to copy from and the one to copy into.
//
// Invariants:
//   - Source and Target are validated names
//   - Source != Target
//
// Existence of both databases is a precondition checked by the orchestrator
// against the live catalog, not an invariant of the value.
type MigrationRequest struct {
	Source domain.DatabaseName
	Target domain.DatabaseName
}

// NewMigrationRequest enforces the request invariants.
func NewMigrationRequest(source, target domain.DatabaseName) (MigrationRequest, error) {
	r := MigrationRequest{Source: source, Target: target}
	if err := r.Validate(); err != nil {
		return MigrationRequest{}, err
	}
	return r, nil
}

// Validate checks the invariants of a request built without NewMigrationRequest.
func (r MigrationRequest) Validate() error {
	if r.Source.IsNil() || r.Target.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "both source and target database names are required")
	}
	if r.Source == r.Target {
		return dErrors.New(dErrors.CodeValidation, "source and target databases must differ")
	}
	return nil
}

// ExitInfo describes how a child process ended.
type ExitInfo struct {
	Started  bool
	Code     int
	Abnormal bool   // terminated by a signal rather than exiting
	Status   string // e.g. "exit status 1" or "signal: killed"
}

// Succeeded reports a clean zero exit.
func (e ExitInfo) Succeeded() bool {
	return e.Started && !e.Abnormal && e.Code == 0
}

func (e ExitInfo) String() string {
	if !e.Started {
		return "not started"
	}
	return e.Status
}

// MigrationOutcome is the result of running the pipeline.
// Exactly one of the two shapes is populated:
//   - Succeeded: Success is true; Duration is set
//   - Failed: Stage and Kind are set; Diagnostics holds truncated stderr
type MigrationOutcome struct {
	Success     bool
	Duration    time.Duration
	Stage       Stage
	Kind        dErrors.Code
	Producer    ExitInfo
	Consumer    ExitInfo
	Diagnostics string
}

// Succeeded builds a successful outcome.
func Succeeded(d time.Duration, producer, consumer ExitInfo) MigrationOutcome {
	return MigrationOutcome{Success: true, Duration: d, Producer: producer, Consumer: consumer}
}

// Failed builds a failed outcome.
func Failed(stage Stage, kind dErrors.Code, producer, consumer ExitInfo, diagnostics string) MigrationOutcome {
	return MigrationOutcome{
		Stage:       stage,
		Kind:        kind,
		Producer:    producer,
		Consumer:    consumer,
		Diagnostics: diagnostics,
	}
}

// Summary is a one-line, credential-free description for logs and audit.
func (o MigrationOutcome) Summary() string {
	if o.Success {
		return fmt.Sprintf("succeeded in %s", o.Duration.Round(time.Millisecond))
	}
	return fmt.Sprintf("failed at %s stage (%s): producer %s, consumer %s", o.Stage, o.Kind, o.Producer, o.Consumer)
}

// Err returns nil for a successful outcome and a domain error wrapping a
// *ProcessError otherwise. Timeouts, cancellation and connectivity failures
// keep their own code; everything else is CodeProcess.
func (o MigrationOutcome) Err() error {
	if o.Success {
		return nil
	}
	pe := &ProcessError{
		Stage:       o.Stage,
		Kind:        o.Kind,
		Producer:    o.Producer,
		Consumer:    o.Consumer,
		Diagnostics: o.Diagnostics,
	}
	code := dErrors.CodeProcess
	switch o.Kind {
	case dErrors.CodeTimeout, dErrors.CodeCanceled, dErrors.CodeConnectivity:
		code = o.Kind
	}
	return dErrors.Wrap(pe, code, pe.userMessage())
}

// ProcessError is a migration pipeline failure. Diagnostics are bounded in
// size; command lines and credentials are never part of it.
type ProcessError struct {
	Stage       Stage
	Kind        dErrors.Code
	Producer    ExitInfo
	Consumer    ExitInfo
	Diagnostics string
}

func (e *ProcessError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "migration failed at %s stage (%s): producer %s, consumer %s", e.Stage, e.Kind, e.Producer, e.Consumer)
	if e.Diagnostics != "" {
		b.WriteString(": ")
		b.WriteString(e.Diagnostics)
	}
	return b.String()
}

func (e *ProcessError) userMessage() string {
	switch e.Kind {
	case dErrors.CodeTimeout:
		return "migration timed out"
	case dErrors.CodeCanceled:
		return "migration was canceled"
	}
	switch e.Stage {
	case StageSource:
		return "migration failed while reading the source database"
	case StageTarget:
		return "migration failed while writing the target database"
	default:
		return "migration pipeline failed"
	}
}
