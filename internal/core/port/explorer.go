package port

import (
	"context"

	"github.com/guillermoBallester/partscope/internal/core/domain"
)

type TableInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	RowCount    int64  `json:"row_count"`
	ColumnCount int    `json:"column_count"`
	Comment     string `json:"comment,omitempty"`
}

type ColumnInfo struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	IsNullable   bool   `json:"is_nullable"`
	DefaultValue string `json:"default_value,omitempty"`
	IsPrimaryKey bool   `json:"is_primary_key"`
	Comment      string `json:"comment,omitempty"`
}

type IndexInfo struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns,omitempty"`
	IsUnique bool     `json:"is_unique"`
}

type TableDetail struct {
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Comment  string       `json:"comment,omitempty"`
	RowCount int64        `json:"row_count"`
	Columns  []ColumnInfo `json:"columns"`
	Indexes  []IndexInfo  `json:"indexes,omitempty"`
}

// ColumnNames returns the table's column names in declaration order.
func (d *TableDetail) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// SchemaExplorer reads database metadata. Unknown tables or columns are
// reported with domain.ErrNotFound.
type SchemaExplorer interface {
	ListTables(ctx context.Context) ([]TableInfo, error)
	DescribeTable(ctx context.Context, table string) (*TableDetail, error)
	ProfileColumn(ctx context.Context, table, column string) (*domain.ColumnProfile, error)
	// SchemaDDL returns CREATE statements for the user tables, used as
	// context for SQL generation.
	SchemaDDL(ctx context.Context) ([]string, error)
}
