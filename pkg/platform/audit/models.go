package audit

import (
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing per sink.
type EventCategory string

const (
	// CategoryLifecycle covers changes to the set or content of databases:
	// creation and migration. These are the events an operator must be able
	// to reconstruct after the fact.
	CategoryLifecycle EventCategory = "lifecycle"

	// CategorySecurity covers rejected credentials and other access failures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers request activity and failures useful for
	// debugging. These can be sampled or aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. It never carries
// credentials: request payloads are redacted before they reach it.
type Event struct {
	ID        string        `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`
	// Subject is the database acted upon; the source for migrations.
	Subject string `json:"subject,omitempty"`
	// Target is the destination database of a migration.
	Target   string `json:"target,omitempty"`
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	// Detail is the full error chain or the bounded process diagnostics of
	// a failure. Neither ever contains credentials.
	Detail string `json:"detail,omitempty"`

	RequestID  string         `json:"request_id,omitempty"`
	Method     string         `json:"method,omitempty"`
	Endpoint   string         `json:"endpoint,omitempty"`
	Status     int            `json:"status,omitempty"`
	ClientIP   string         `json:"ip,omitempty"`
	Client     string         `json:"client,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
}

type AuditEvent string

const (
	EventDatabaseCreated  AuditEvent = "database_created"
	EventDatabaseMigrated AuditEvent = "database_migrated"
	EventAuthFailed       AuditEvent = "auth_failed"
	EventActivity         AuditEvent = "activity"
	EventRequestFailed    AuditEvent = "request_failed"
)

// Decision values recorded on lifecycle events.
const (
	DecisionSuccess = "success"
	DecisionFailure = "failure"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDatabaseCreated:  CategoryLifecycle,
	EventDatabaseMigrated: CategoryLifecycle,
	EventAuthFailed:       CategorySecurity,
	EventActivity:         CategoryOperations,
	EventRequestFailed:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
