package sqlite

const queryListTables = `
	SELECT m.name, m.type,
		(SELECT COUNT(*) FROM pragma_table_info(m.name)) AS column_count
	FROM sqlite_master m
	WHERE m.type IN ('table', 'view')
		AND m.name NOT LIKE 'sqlite_%'
	ORDER BY m.name`

const queryTableMeta = `
	SELECT name, type FROM sqlite_master
	WHERE type IN ('table', 'view') AND name = @table`

const queryColumns = `
	SELECT name, type, "notnull", COALESCE(dflt_value, ''), pk
	FROM pragma_table_info(@table)
	ORDER BY cid`

const queryIndexes = `
	SELECT name, "unique"
	FROM pragma_index_list(@table)
	ORDER BY name`

const queryIndexColumns = `
	SELECT name FROM pragma_index_info(@index)
	ORDER BY seqno`

const querySchemaDDL = `
	SELECT sql FROM sqlite_master
	WHERE type IN ('table', 'view')
		AND name NOT LIKE 'sqlite_%'
		AND sql IS NOT NULL
	ORDER BY name`

// queryRowCount has one %s placeholder for the quoted table name.
const queryRowCount = `SELECT COUNT(*) FROM %s`

// queryColumnCounts has placeholders for the quoted column (twice) and table.
const queryColumnCounts = `SELECT COUNT(*), COUNT(%[1]s), COUNT(DISTINCT %[1]s) FROM %[2]s`
