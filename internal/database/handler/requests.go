package handler

import (
	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
)

// CreateDatabaseRequest is the body of POST /api/databases and
// POST /api/databases/verify.
type CreateDatabaseRequest struct {
	DBName string `json:"dbName"`
}

// Validate only checks presence; the identifier grammar is enforced by the
// service.
func (r *CreateDatabaseRequest) Validate() error {
	if r.DBName == "" {
		return dErrors.New(dErrors.CodeValidation, "Database name is required.")
	}
	return nil
}

// MigrateDatabaseRequest is the body of POST /api/databases/migrate.
type MigrateDatabaseRequest struct {
	SourceDBName string `json:"sourceDbName"`
	TargetDBName string `json:"targetDbName"`
}

func (r *MigrateDatabaseRequest) Validate() error {
	if r.SourceDBName == "" || r.TargetDBName == "" {
		return dErrors.New(dErrors.CodeValidation, "Both source and target database names are required.")
	}
	return nil
}
