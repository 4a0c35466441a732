package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so the classifier can translate them into domain errors with the
// same taxonomy used for errors reported by PostgreSQL itself.
//
// - ErrNotFound: database does not exist in the catalog
// - ErrAlreadyExists: a database with the same name already exists
// - ErrUnavailable: the store cannot be reached
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnavailable   = errors.New("unavailable")
)
