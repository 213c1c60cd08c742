package repository

import (
	"context"
	"database/sql"
)

// Querier is what every statement here runs on: a *db.Session, a *sqlx.Conn or a *sqlx.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}
