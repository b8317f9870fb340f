package lists

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDefaultSQLIgnoresRacingInsert(t *testing.T) {
	for _, col := range []string{"customer_id", "employee_id"} {
		sql := ensureDefaultSQL(col)
		require.Contains(t, sql, "INSERT INTO shopping_lists ("+col+", name, is_default, created_at)")
		require.Contains(t, sql, "ON CONFLICT ("+col+") WHERE is_default DO NOTHING")
	}
}
