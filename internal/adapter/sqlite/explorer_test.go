package sqlite_test

import (
	"context"
	"testing"

	"github.com/guillermoBallester/partscope/internal/adapter/sqlite"
	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplorer_ListTables(t *testing.T) {
	explorer := sqlite.NewExplorer(setupTestDB(t))

	tables, err := explorer.ListTables(context.Background())
	require.NoError(t, err)

	names := make([]string, len(tables))
	for i, tbl := range tables {
		names[i] = tbl.Name
	}
	assert.Equal(t, []string{
		"kyec_parts_all", "kyec_stats_weekly", "pat_parts_all", "pat_stats_weekly", "table_change_log",
	}, names)

	pat := tables[2]
	assert.Equal(t, "table", pat.Type)
	assert.Equal(t, int64(5), pat.RowCount)
	assert.Equal(t, 7, pat.ColumnCount)
}

func TestExplorer_DescribeTable(t *testing.T) {
	explorer := sqlite.NewExplorer(setupTestDB(t))

	detail, err := explorer.DescribeTable(context.Background(), "pat_parts_all")
	require.NoError(t, err)

	assert.Equal(t, "pat_parts_all", detail.Name)
	assert.Equal(t, int64(5), detail.RowCount)
	require.Len(t, detail.Columns, 7)

	id := detail.Columns[0]
	assert.Equal(t, "配件編號", id.Name)
	assert.Equal(t, "TEXT", id.DataType)
	assert.True(t, id.IsPrimaryKey)

	name := detail.Columns[1]
	assert.False(t, name.IsNullable)
	assert.True(t, detail.Columns[2].IsNullable)

	var found bool
	for _, idx := range detail.Indexes {
		if idx.Name == "idx_pat_status" {
			found = true
			assert.Equal(t, []string{"配件狀態"}, idx.Columns)
			assert.False(t, idx.IsUnique)
		}
	}
	assert.True(t, found, "idx_pat_status should be listed")
}

func TestExplorer_DescribeTable_NotFound(t *testing.T) {
	explorer := sqlite.NewExplorer(setupTestDB(t))

	_, err := explorer.DescribeTable(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExplorer_ProfileColumn(t *testing.T) {
	explorer := sqlite.NewExplorer(setupTestDB(t))

	p, err := explorer.ProfileColumn(context.Background(), "pat_parts_all", "客戶名稱")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.Rows)
	assert.Equal(t, int64(1), p.NullCount)
	assert.Equal(t, int64(3), p.DistinctCount)
	assert.InDelta(t, 0.2, p.NullFraction, 1e-9)
	assert.Equal(t, domain.CardinalityEnumLike, p.Cardinality)
}

func TestExplorer_ProfileColumn_UnknownColumn(t *testing.T) {
	explorer := sqlite.NewExplorer(setupTestDB(t))

	_, err := explorer.ProfileColumn(context.Background(), "pat_parts_all", `x" FROM sqlite_master --`)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExplorer_SchemaDDL(t *testing.T) {
	explorer := sqlite.NewExplorer(setupTestDB(t))

	ddl, err := explorer.SchemaDDL(context.Background())
	require.NoError(t, err)
	require.Len(t, ddl, 5)
	assert.Contains(t, ddl[0], "CREATE TABLE kyec_parts_all")
}
