package sqlite

import (
	"zombiezen.com/go/sqlite"
)

// columnNames returns the statement's result columns in select-list order.
func columnNames(stmt *sqlite.Stmt) []string {
	n := stmt.ColumnCount()
	names := make([]string, n)
	for i := range n {
		names[i] = stmt.ColumnName(i)
	}
	return names
}

// rowToMap reads the current row keyed by column name. SQLite types are
// per value, not per column, so each cell is converted on its own.
func rowToMap(stmt *sqlite.Stmt, columns []string) map[string]any {
	row := make(map[string]any, len(columns))
	for i, name := range columns {
		row[name] = columnValue(stmt, i)
	}
	return row
}

func columnValue(stmt *sqlite.Stmt, i int) any {
	switch stmt.ColumnType(i) {
	case sqlite.TypeInteger:
		return stmt.ColumnInt64(i)
	case sqlite.TypeFloat:
		return stmt.ColumnFloat(i)
	case sqlite.TypeText:
		return stmt.ColumnText(i)
	case sqlite.TypeBlob:
		buf := make([]byte, stmt.ColumnLen(i))
		stmt.ColumnBytes(i, buf)
		return buf
	}
	return nil
}
