// Package classify maps low-level failures from the store, the driver and the
// operating system into the domain error taxonomy. It is the single place
// where SQLSTATE codes are interpreted; callers never compare codes inline.
package classify

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"os/exec"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/sentinel"
)

// Kind is the stable classification of a failure.
type Kind = dErrors.Code

// sqlStateKinds is the mapping table from store-reported condition to Kind.
// Exact codes are checked first, then two-character class prefixes.
var sqlStateKinds = map[string]Kind{
	"42P04": dErrors.CodeConflict,     // duplicate_database
	"23505": dErrors.CodeConflict,     // unique_violation
	"42710": dErrors.CodeConflict,     // duplicate_object
	"42P07": dErrors.CodeConflict,     // duplicate_table
	"23503": dErrors.CodeReference,    // foreign_key_violation
	"23001": dErrors.CodeReference,    // restrict_violation
	"23514": dErrors.CodeValidation,   // check_violation
	"23502": dErrors.CodeValidation,   // not_null_violation
	"22023": dErrors.CodeValidation,   // invalid_parameter_value
	"3D000": dErrors.CodeNotFound,     // invalid_catalog_name
	"57P03": dErrors.CodeConnectivity, // cannot_connect_now
	"53300": dErrors.CodeConnectivity, // too_many_connections
	"57014": dErrors.CodeTimeout,      // query_canceled
}

var sqlStateClassKinds = map[string]Kind{
	"08": dErrors.CodeConnectivity, // connection_exception
	"28": dErrors.CodeConnectivity, // invalid_authorization_specification
}

// Classify returns the Kind of err. A nil error has no kind and returns "".
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	if de, ok := dErrors.As(err); ok {
		return de.Code
	}
	if state, ok := sqlState(err); ok {
		return kindForState(state)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.CodeTimeout
	case errors.Is(err, context.Canceled):
		return dErrors.CodeCanceled
	case errors.Is(err, sentinel.ErrAlreadyExists):
		return dErrors.CodeConflict
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.CodeNotFound
	case errors.Is(err, sentinel.ErrUnavailable),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, exec.ErrNotFound):
		return dErrors.CodeConnectivity
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return dErrors.CodeConnectivity
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return dErrors.CodeTimeout
		}
		return dErrors.CodeConnectivity
	}
	return dErrors.CodeInternal
}

// Error converts err into a domain error whose code is Classify(err).
// Errors that already carry a domain code are returned unchanged. The message
// is what clients see; err itself is only kept for logs and audit.
func Error(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, Classify(err), msg)
}

func kindForState(state string) Kind {
	if kind, ok := sqlStateKinds[state]; ok {
		return kind
	}
	if len(state) >= 2 {
		if kind, ok := sqlStateClassKinds[state[:2]]; ok {
			return kind
		}
	}
	return dErrors.CodeInternal
}

// sqlState extracts the SQLSTATE from either driver's error type.
func sqlState(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.ToUpper(pgErr.Code), true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return strings.ToUpper(string(pqErr.Code)), true
	}
	return "", false
}
