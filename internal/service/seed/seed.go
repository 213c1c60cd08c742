package seed

import (
	"context"
	"fmt"
	"math"
	mathrand "math/rand"
	"math/rand/v2"
	"sync"

	"github.com/go-faker/faker/v4"
	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/jmehdipour/sqlperf-lab/internal/repository"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Plan sizes a demo data set. The same Plan always yields the same rows.
type Plan struct {
	Customers         int
	OrdersPerCustomer int
	Seed              uint64
}

func (p Plan) Validate() error {
	if p.Customers <= 0 {
		return fmt.Errorf("customers must be positive, got %d", p.Customers)
	}
	if p.OrdersPerCustomer < 0 {
		return fmt.Errorf("orders per customer must not be negative, got %d", p.OrdersPerCustomer)
	}
	return nil
}

// faker draws from one package-level source.
var fakerMu sync.Mutex

// Generate builds customers 1..N and their orders. Names come from faker, amounts are in
// [1, 500] with cent precision; both streams are seeded from p.Seed.
func Generate(p Plan) ([]model.Customer, []model.Order) {
	fakerMu.Lock()
	defer fakerMu.Unlock()
	faker.SetRandomSource(faker.NewSafeSource(mathrand.NewSource(int64(p.Seed))))

	r := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))

	customers := make([]model.Customer, 0, p.Customers)
	orders := make([]model.Order, 0, p.Customers*p.OrdersPerCustomer)
	var orderID int64
	for i := 1; i <= p.Customers; i++ {
		customers = append(customers, model.Customer{
			ID:   int64(i),
			Name: faker.Name(),
		})
		for range p.OrdersPerCustomer {
			orderID++
			orders = append(orders, model.Order{
				ID:          orderID,
				CustomerID:  int64(i),
				TotalAmount: 1 + math.Round(r.Float64()*499*100)/100,
			})
		}
	}
	return customers, orders
}

// Seeder replaces the contents of customers and orders in one transaction.
type Seeder struct {
	DB   *sqlx.DB
	Repo repository.SeedRepository
	Log  *zap.Logger
}

func NewSeeder(db *sqlx.DB, log *zap.Logger) *Seeder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Seeder{DB: db, Repo: repository.NewSeedRepository(), Log: log}
}

func (s *Seeder) Run(ctx context.Context, p Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	customers, orders := Generate(p)

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.Repo.Truncate(ctx, tx); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	if err := s.Repo.InsertCustomers(ctx, tx, customers); err != nil {
		return err
	}
	if err := s.Repo.InsertOrders(ctx, tx, orders); err != nil {
		return err
	}
	if err := s.Repo.SyncSequences(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}

	s.Log.Info("seed completed",
		zap.Int("customers", len(customers)),
		zap.Int("orders", len(orders)),
	)
	return nil
}
