package repository

import (
	"context"
	"fmt"

	"github.com/jmehdipour/sqlperf-lab/internal/model"
)

const rankingQuery = `
		SELECT c.id, c.name, SUM(o.total_amount) AS total_spent
		FROM customers c
		JOIN orders o ON c.id = o.customer_id
		GROUP BY c.id, c.name
		ORDER BY total_spent DESC
		LIMIT %d`

// RankingQuery renders the top-N spend query. The limit is inlined so the exact same text can
// be handed to EXPLAIN, which does not accept bind parameters.
func RankingQuery(limit int) string {
	return fmt.Sprintf(rankingQuery, limit)
}

type RankingRepository interface {
	TopCustomers(ctx context.Context, q Querier, limit int) ([]model.SpendRow, error)
}

type RankingRepositoryImpl struct{}

func NewRankingRepository() *RankingRepositoryImpl { return &RankingRepositoryImpl{} }

var _ RankingRepository = (*RankingRepositoryImpl)(nil)

// TopCustomers executes the spend query and fetches every row.
func (r *RankingRepositoryImpl) TopCustomers(ctx context.Context, q Querier, limit int) ([]model.SpendRow, error) {
	rows := []model.SpendRow{}
	if err := q.SelectContext(ctx, &rows, RankingQuery(limit)); err != nil {
		return nil, err
	}
	return rows, nil
}
