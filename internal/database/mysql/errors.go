package mysql

import (
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/dbstream/internal/database"
	"github.com/koustreak/dbstream/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDBAccessDenied    = 1044
	errAccessDenied      = 1045
	errUnknownDatabase   = 1049
	errTableAccessDenied = 1142
	errQueryInterrupted  = 1317
	errConnRefused       = 2003
	errServerGone        = 2006
	errServerLost        = 2013
	errMaxExecutionTime  = 3024
)

// mapError converts a MySQL driver error. Unclassified server errors take
// the fallback kind.
func mapError(err error, fallback errs.ErrKind, msg string) error {
	if errors.Is(err, gomysql.ErrInvalidConn) {
		return database.ErrConnection(msg, err)
	}

	var myErr *gomysql.MySQLError
	if !errors.As(err, &myErr) {
		return errs.Wrap(fallback, msg, err)
	}

	full := fmt.Sprintf("%s: %s", msg, myErr.Message)
	switch myErr.Number {
	case errAccessDenied, errDBAccessDenied, errTableAccessDenied:
		return database.ErrPermission(full, err)
	case errConnRefused, errUnknownDatabase, errServerGone, errServerLost:
		return database.ErrConnection(full, err)
	case errQueryInterrupted, errMaxExecutionTime:
		return database.ErrTimeout(full, err)
	}
	return errs.Wrap(fallback, full, err)
}
