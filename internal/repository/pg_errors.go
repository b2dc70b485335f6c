package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// isUniqueViolation reports a unique_violation on a constraint whose name
// contains constraint. An empty constraint matches any unique violation.
func isUniqueViolation(err error, constraint string) bool {
	return hasPgCode(err, pgUniqueViolation, constraint)
}

func isForeignKeyViolation(err error, constraint string) bool {
	return hasPgCode(err, pgForeignKeyViolation, constraint)
}

func hasPgCode(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	return constraint == "" || strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraint))
}
