package db

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
)

// ErrConnection matches every *ConnectionError via errors.Is.
var ErrConnection = errors.New("connection error")

// ErrSessionClosed is returned when a closed Session is used.
var ErrSessionClosed = &ConnectionError{Op: "use", Err: errors.New("session already closed")}

// ConnectionError reports an unreachable store, rejected credentials, or a dead session.
type ConnectionError struct {
	Op   string // dial | ping | acquire | use
	Addr string // host:port, never credentials
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("postgres %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("postgres %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// IsConnectionFailure reports whether err means the session itself is unusable,
// as opposed to a failing statement.
func IsConnectionFailure(err error) bool {
	return errors.Is(err, ErrConnection) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, driver.ErrBadConn)
}
