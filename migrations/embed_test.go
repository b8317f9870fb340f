package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsAreOrdered(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{"0001_init.sql", "0002_shopping_list_default.sql"}, names)
}

func TestDefaultListIndexes(t *testing.T) {
	raw, err := fs.ReadFile(FS, "0002_shopping_list_default.sql")
	require.NoError(t, err)
	sql := string(raw)
	require.Contains(t, sql, "shopping_lists_customer_default_key\n    ON shopping_lists (customer_id) WHERE is_default")
	require.Contains(t, sql, "shopping_lists_employee_default_key\n    ON shopping_lists (employee_id) WHERE is_default")
}
