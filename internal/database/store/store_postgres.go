// Package store inspects and extends the catalog of databases on the server.
package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/rpsinghcodes/pg-db-crud/internal/database/classify"
	"github.com/rpsinghcodes/pg-db-crud/pkg/domain"
	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
)

const (
	listQuery = `SELECT datname FROM pg_database WHERE datistemplate = false`

	existsQuery = `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`

	// present returns the subset of $1 that exists, in one round trip.
	presentQuery = `SELECT datname FROM pg_database WHERE datname = ANY($1::text[])`
)

// PostgresCatalog reads pg_database and issues CREATE DATABASE through the
// shared pool. It holds no state of its own: every call queries the server.
type PostgresCatalog struct {
	db *sql.DB
}

// NewPostgres constructs a catalog over an open pool.
func NewPostgres(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

// List returns every non-template database. Order is not guaranteed.
func (s *PostgresCatalog) List(ctx context.Context) ([]domain.DatabaseName, error) {
	rows, err := s.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, classify.Error(err, "failed to list databases")
	}
	defer rows.Close()

	names := make([]domain.DatabaseName, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify.Error(err, "failed to list databases")
		}
		// Names created outside this service may not satisfy the identifier
		// grammar; they are still reported as they exist.
		names = append(names, domain.DatabaseName(name))
	}
	if err := rows.Err(); err != nil {
		return nil, classify.Error(err, "failed to list databases")
	}
	return names, nil
}

// Exists reports whether name is present in the catalog.
func (s *PostgresCatalog) Exists(ctx context.Context, name domain.DatabaseName) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, existsQuery, name.String()).Scan(&exists); err != nil {
		return false, classify.Error(err, "failed to check database existence")
	}
	return exists, nil
}

// Missing returns the names that are not present, preserving input order.
func (s *PostgresCatalog) Missing(ctx context.Context, names ...domain.DatabaseName) ([]domain.DatabaseName, error) {
	if len(names) == 0 {
		return nil, nil
	}
	wanted := make([]string, len(names))
	for i, n := range names {
		wanted[i] = n.String()
	}

	rows, err := s.db.QueryContext(ctx, presentQuery, wanted)
	if err != nil {
		return nil, classify.Error(err, "failed to check database existence")
	}
	defer rows.Close()

	present := make(map[string]struct{}, len(names))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify.Error(err, "failed to check database existence")
		}
		present[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, classify.Error(err, "failed to check database existence")
	}

	var missing []domain.DatabaseName
	for _, n := range names {
		if _, ok := present[n.String()]; !ok {
			missing = append(missing, n)
		}
	}
	return missing, nil
}

// Create issues CREATE DATABASE. The server's uniqueness check decides races
// between concurrent creators: exactly one succeeds and the rest get
// CodeConflict.
func (s *PostgresCatalog) Create(ctx context.Context, name domain.DatabaseName) error {
	if name.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "database name is required")
	}
	// CREATE DATABASE takes no bind parameters; the name is a validated
	// identifier and is quoted besides.
	stmt := "CREATE DATABASE " + pq.QuoteIdentifier(name.String())
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		if classify.Classify(err) == dErrors.CodeConflict {
			return dErrors.Wrap(err, dErrors.CodeConflict, "database already exists")
		}
		return classify.Error(err, "failed to create database")
	}
	return nil
}
