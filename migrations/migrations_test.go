package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllCreatesIndexedSchema(t *testing.T) {
	ms, err := All()
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	assert.Equal(t, "001_init.sql", ms[0].Name)
	assert.Contains(t, ms[0].SQL, "CREATE TABLE customers")
	assert.Contains(t, ms[0].SQL, "REFERENCES customers (id)")
	assert.Contains(t, ms[0].SQL, "ON orders (customer_id)")
}
