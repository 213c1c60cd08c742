package model

// Customer is a row of the customers table. The store owns it; this tool only reads.
type Customer struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Order references its owning customer; the store enforces the foreign key.
type Order struct {
	ID          int64   `db:"id"`
	CustomerID  int64   `db:"customer_id"`
	TotalAmount float64 `db:"total_amount"`
}
