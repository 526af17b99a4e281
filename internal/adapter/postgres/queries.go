package postgres

// queryListTables has one %s placeholder for the schema filter clause.
const queryListTables = `
	SELECT
		t.table_name,
		CASE t.table_type
			WHEN 'BASE TABLE' THEN 'table'
			WHEN 'VIEW' THEN 'view'
			ELSE lower(t.table_type)
		END AS type,
		COALESCE(s.n_live_tup, 0) AS row_estimate,
		(SELECT count(*)::int FROM information_schema.columns c
		 WHERE c.table_schema = t.table_schema AND c.table_name = t.table_name
		) AS column_count,
		COALESCE(pg_catalog.obj_description(
			(quote_ident(t.table_schema) || '.' || quote_ident(t.table_name))::regclass, 'pg_class'
		), '') AS comment
	FROM information_schema.tables t
	LEFT JOIN pg_stat_user_tables s
		ON s.schemaname = t.table_schema AND s.relname = t.table_name
	WHERE %s
		AND t.table_type IN ('BASE TABLE', 'VIEW')
	ORDER BY t.table_name`

// queryTableMeta has one %s placeholder for the schema filter clause.
// $1 is always table_name; schema filter params start at $2.
const queryTableMeta = `
	SELECT
		t.table_schema,
		CASE t.table_type WHEN 'VIEW' THEN 'view' ELSE 'table' END,
		COALESCE(pg_catalog.obj_description(
			(quote_ident(t.table_schema) || '.' || quote_ident(t.table_name))::regclass, 'pg_class'
		), '')
	FROM information_schema.tables t
	WHERE t.table_name = $1
		AND %s
	ORDER BY t.table_schema
	LIMIT 1`

const queryColumns = `
	SELECT
		c.column_name,
		c.data_type,
		c.is_nullable = 'YES',
		COALESCE(c.column_default, ''),
		COALESCE(pg_catalog.col_description(
			(quote_ident(c.table_schema) || '.' || quote_ident(c.table_name))::regclass,
			c.ordinal_position
		), '')
	FROM information_schema.columns c
	WHERE c.table_schema = $1 AND c.table_name = $2
	ORDER BY c.ordinal_position`

const queryPrimaryKeys = `
	SELECT a.attname
	FROM pg_index i
	JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
	WHERE i.indrelid = (quote_ident($1) || '.' || quote_ident($2))::regclass
		AND i.indisprimary`

const queryIndexes = `
	SELECT
		ic.relname,
		i.indisunique,
		ARRAY(
			SELECT a.attname
			FROM unnest(i.indkey) WITH ORDINALITY AS k(attnum, ord)
			JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = k.attnum
			ORDER BY k.ord
		)
	FROM pg_index i
	JOIN pg_class ic ON ic.oid = i.indexrelid
	WHERE i.indrelid = (quote_ident($1) || '.' || quote_ident($2))::regclass
	ORDER BY ic.relname`

// queryRowCount has one %s placeholder for the quoted, schema-qualified table.
const queryRowCount = `SELECT count(*) FROM %s`

// queryColumnCounts has placeholders for the quoted column (twice) and table.
const queryColumnCounts = `SELECT count(*), count(%[1]s), count(DISTINCT %[1]s) FROM %[2]s`

// querySchemaDDL rebuilds a CREATE TABLE outline per table; PostgreSQL keeps
// no DDL text. One %s placeholder for the schema filter clause.
const querySchemaDDL = `
	SELECT
		'CREATE TABLE ' || quote_ident(c.table_name) || ' (' ||
		string_agg(quote_ident(c.column_name) || ' ' || c.data_type, ', ' ORDER BY c.ordinal_position) ||
		')'
	FROM information_schema.columns c
	JOIN information_schema.tables t
		ON t.table_schema = c.table_schema AND t.table_name = c.table_name
	WHERE %s
		AND t.table_type IN ('BASE TABLE', 'VIEW')
	GROUP BY c.table_schema, c.table_name
	ORDER BY c.table_name`
