package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/dbstream/internal/database"
)

// PostgreSQL SQLSTATE codes and classes that change the error kind.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnection       = "08"
	pgClassAuthorization    = "28"
	pgInsufficientPrivilege = "42501"
	pgQueryCanceled         = "57014"
)

type failure int

const (
	connectFailure failure = iota
	queryFailure
)

// mapError translates pgx / pgconn native errors. Server errors are
// classified by SQLSTATE; anything unrecognised falls back to the kind
// implied by where it happened.
func mapError(err error, where failure, msg string) error {
	if err == nil {
		return nil
	}

	if database.IsContextErr(err) || pgconn.Timeout(err) {
		return database.ErrTimeout(msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		full := fmt.Sprintf("%s: %s", msg, pgErr.Message)
		switch {
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == pgClassConnection:
			return database.ErrConnection(full, err)
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == pgClassAuthorization,
			pgErr.Code == pgInsufficientPrivilege:
			return database.ErrPermission(full, err)
		case pgErr.Code == pgQueryCanceled:
			return database.ErrTimeout(full, err)
		}
		if where == connectFailure {
			return database.ErrConnection(full, err)
		}
		return database.ErrQuery(full, err)
	}

	if where == connectFailure {
		return database.ErrConnection(msg, err)
	}
	return database.ErrQuery(msg, err)
}
