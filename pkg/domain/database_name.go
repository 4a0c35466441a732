package domain

import (
	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
)

// MaxDatabaseNameLength is PostgreSQL's identifier limit (NAMEDATALEN - 1).
const MaxDatabaseNameLength = 63

// DatabaseName is a validated database identifier.
// Invariant: matches ^[A-Za-z_][A-Za-z0-9_]*$ and is at most
// MaxDatabaseNameLength bytes long.
//
// Usage: construct via ParseDatabaseName at trust boundaries. This is the only
// injection boundary in the system; stores and process builders accept a
// DatabaseName and never re-validate it. Direct casting bypasses validation.
type DatabaseName string

// ParseDatabaseName constructs a DatabaseName from external input.
//
// Errors: returns CodeValidation when the value is empty, too long, or
// contains anything outside the identifier grammar (quotes, semicolons,
// slashes, whitespace, shell metacharacters, non-ASCII).
func ParseDatabaseName(s string) (DatabaseName, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "database name is required")
	}
	if len(s) > MaxDatabaseNameLength {
		return "", dErrors.New(dErrors.CodeValidation, "database name must be 63 characters or less")
	}
	if !isIdentifierStart(s[0]) {
		return "", dErrors.New(dErrors.CodeValidation, invalidNameMessage)
	}
	for i := 1; i < len(s); i++ {
		if !isIdentifierStart(s[i]) && !isDigit(s[i]) {
			return "", dErrors.New(dErrors.CodeValidation, invalidNameMessage)
		}
	}
	return DatabaseName(s), nil
}

const invalidNameMessage = "invalid database name: must start with a letter or underscore and contain only letters, digits and underscores"

// String returns the identifier as a plain string.
func (n DatabaseName) String() string {
	return string(n)
}

// IsNil reports whether the name is empty (zero value).
func (n DatabaseName) IsNil() bool {
	return n == ""
}

func isIdentifierStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
