package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/jmoiron/sqlx"
)

// SeedRepository writes demo data for the seed command. It is the only writer in the tool.
type SeedRepository interface {
	Truncate(ctx context.Context, tx *sqlx.Tx) error
	InsertCustomers(ctx context.Context, tx *sqlx.Tx, customers []model.Customer) error
	InsertOrders(ctx context.Context, tx *sqlx.Tx, orders []model.Order) error
	SyncSequences(ctx context.Context, tx *sqlx.Tx) error
}

type seedRepo struct{}

func NewSeedRepository() SeedRepository { return &seedRepo{} }

func (r *seedRepo) Truncate(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, `TRUNCATE orders, customers RESTART IDENTITY`)
	return err
}

// batchRows keeps multi-row inserts well under the 65535 bind-parameter limit.
const batchRows = 1000

// InsertCustomers writes customers in named multi-row statements of at most batchRows rows.
func (r *seedRepo) InsertCustomers(ctx context.Context, tx *sqlx.Tx, customers []model.Customer) error {
	for start := 0; start < len(customers); start += batchRows {
		end := min(start+batchRows, len(customers))
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO customers (id, name) VALUES (:id, :name)`, customers[start:end],
		); err != nil {
			return fmt.Errorf("insert customers [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// InsertOrders writes orders in multi-row statements of at most batchRows rows.
func (r *seedRepo) InsertOrders(ctx context.Context, tx *sqlx.Tx, orders []model.Order) error {
	for start := 0; start < len(orders); start += batchRows {
		end := min(start+batchRows, len(orders))
		chunk := orders[start:end]

		var sb strings.Builder
		args := make([]any, 0, len(chunk)*3)
		sb.WriteString(`INSERT INTO orders (id, customer_id, total_amount) VALUES `)
		for i, o := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			n := i * 3
			fmt.Fprintf(&sb, "($%d, $%d, $%d)", n+1, n+2, n+3)
			args = append(args, o.ID, o.CustomerID, o.TotalAmount)
		}

		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert orders [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// SyncSequences moves both id sequences past the explicitly inserted ids.
func (r *seedRepo) SyncSequences(ctx context.Context, tx *sqlx.Tx) error {
	for _, table := range []string{"customers", "orders"} {
		q := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)`,
			table,
		)
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sync %s sequence: %w", table, err)
		}
	}
	return nil
}
