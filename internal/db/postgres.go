package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmehdipour/sqlperf-lab/internal/config"
	"github.com/jmoiron/sqlx"
)

// Dialer opens a handle for exactly one session. Tests swap it for go-sqlmock.
type Dialer func(ctx context.Context, dsn string) (*sqlx.DB, error)

// DialPostgres opens a pgx-backed handle capped at a single connection.
func DialPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty Postgres DSN")
	}
	pgCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	db := sqlx.NewDb(stdlib.OpenDB(*pgCfg), "pgx")

	// one session, one backend: SET commands must land on the connection that runs the query
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// Provider hands out short-lived sessions; nothing is pooled across calls.
type Provider struct {
	DSN         string
	Addr        string
	PingTimeout time.Duration
	Dialer      Dialer
}

// NewProvider builds a Provider from the postgres section of the config.
func NewProvider(cfg config.PostgresConfig) *Provider {
	return &Provider{
		DSN:         cfg.DSN(),
		Addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		PingTimeout: cfg.ConnectTimeout,
		Dialer:      DialPostgres,
	}
}

// Open dials, pins one connection and pings it. The caller owns Close.
func (p *Provider) Open(ctx context.Context) (*Session, error) {
	dial := p.Dialer
	if dial == nil {
		dial = DialPostgres
	}
	timeout := p.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	db, err := dial(ctx, p.DSN)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Addr: p.Addr, Err: err}
	}

	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := db.Connx(pctx)
	if err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Op: "acquire", Addr: p.Addr, Err: err}
	}
	if err := conn.PingContext(pctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, &ConnectionError{Op: "ping", Addr: p.Addr, Err: err}
	}

	return &Session{db: db, conn: conn}, nil
}

// With opens a session, runs fn and closes the session on every exit path.
func (p *Provider) With(ctx context.Context, fn func(*Session) error) (err error) {
	s, err := p.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

// Session is a single dedicated store connection.
type Session struct {
	mu     sync.Mutex
	db     *sqlx.DB
	conn   *sqlx.Conn
	closed bool
}

func (s *Session) live() (*sqlx.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.conn, nil
}

func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c, err := s.live()
	if err != nil {
		return nil, err
	}
	return c.ExecContext(ctx, query, args...)
}

func (s *Session) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	c, err := s.live()
	if err != nil {
		return err
	}
	return c.SelectContext(ctx, dest, query, args...)
}

func (s *Session) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	c, err := s.live()
	if err != nil {
		return err
	}
	return c.GetContext(ctx, dest, query, args...)
}

// Close releases the connection and its handle. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	cerr := s.conn.Close()
	derr := s.db.Close()
	if cerr != nil {
		return &ConnectionError{Op: "close", Err: cerr}
	}
	if derr != nil {
		return &ConnectionError{Op: "close", Err: derr}
	}
	return nil
}
