package repository

import (
	"context"

	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/jmoiron/sqlx"
)

const RunsTableDDL = `
CREATE TABLE IF NOT EXISTS sqlperf.runs
(
    run_id          String,
    source          LowCardinality(String),
    path            LowCardinality(String),
    disable_index   Bool,
    limit_n         UInt32,
    rows            UInt32,
    elapsed_seconds Float64,
    created_at      DateTime64(3)
)
ENGINE = MergeTree
ORDER BY (created_at, run_id)`

// CHRunsRepository appends run events to ClickHouse.
type CHRunsRepository interface {
	Insert(ctx context.Context, ev model.RunEvent) error
}

type chRunsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHRunsRepository(ch *sqlx.DB) CHRunsRepository {
	return &chRunsRepository{ch: ch}
}

func (r *chRunsRepository) Insert(ctx context.Context, ev model.RunEvent) error {
	const q = `
		INSERT INTO sqlperf.runs
		    (run_id, source, path, disable_index, limit_n, rows, elapsed_seconds, created_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.ch.ExecContext(ctx, q,
		ev.RunID, ev.Source, ev.Path.String(), ev.DisableIndex,
		uint32(ev.Limit), uint32(ev.Rows), ev.ElapsedSeconds, ev.CreatedAt,
	)
	return err
}
