package service

// Dashboard statements. Table names are substituted from domain constants
// (never from input); values are bound as @named parameters. All of them
// still pass through the query validator.

const queryCountAllParts = `
	SELECT COUNT(*) AS count FROM (
		SELECT 配件編號 FROM pat_parts_all
		UNION ALL
		SELECT 配件編號 FROM kyec_parts_all
	) AS parts`

const queryCountPartsByStatus = `
	SELECT COUNT(*) AS count FROM (
		SELECT 配件編號 FROM pat_parts_all WHERE 配件狀態 IN (@pat_1, @pat_2)
		UNION ALL
		SELECT 配件編號 FROM kyec_parts_all WHERE 配件狀態 IN (@kyec_1, @kyec_2)
	) AS parts`

// queryStatusDistribution has one %s placeholder for the parts table.
const queryStatusDistribution = `
	SELECT 配件狀態, COUNT(*) AS 數量
	FROM %s
	GROUP BY 配件狀態
	ORDER BY 數量 DESC`

// queryTypeStatistics has one %s placeholder for the parts table.
const queryTypeStatistics = `
	SELECT
		配件種類,
		COUNT(*) AS 總數量,
		SUM(CASE WHEN 配件狀態 = @production THEN 1 ELSE 0 END) AS 正常生產,
		SUM(CASE WHEN 配件狀態 = @in_house_repair THEN 1 ELSE 0 END) AS 廠內維修,
		SUM(CASE WHEN 配件狀態 = @customer_repair THEN 1 ELSE 0 END) AS 客戶維修,
		SUM(CASE WHEN 配件狀態 = @borrowed THEN 1 ELSE 0 END) AS 客戶借出
	FROM %s
	GROUP BY 配件種類
	ORDER BY 總數量 DESC`

const queryCustomerStatistics = `
	SELECT
		客戶名稱,
		COUNT(*) AS 配件數量,
		SUM(CASE WHEN 配件狀態 IN (@pat_repair, @pat_out_repair, @kyec_repair, @kyec_out_repair) THEN 1 ELSE 0 END) AS 維修中配件,
		SUM(CASE WHEN 配件狀態 IN (@pat_borrow, @kyec_borrow) THEN 1 ELSE 0 END) AS 借出配件
	FROM (
		SELECT 客戶名稱, 配件狀態 FROM pat_parts_all WHERE 客戶名稱 IS NOT NULL
		UNION ALL
		SELECT 客戶名稱, 配件狀態 FROM kyec_parts_all WHERE 客戶名稱 IS NOT NULL
	) AS parts
	GROUP BY 客戶名稱
	ORDER BY 配件數量 DESC`

// queryStatusTrend has three %s placeholders, all the weekly statistics table.
const queryStatusTrend = `
	SELECT 每周狀態 AS 日期, '正常生產' AS 狀態, SUM(正常生產) AS 數量
	FROM %[1]s
	GROUP BY 每周狀態
	UNION ALL
	SELECT 每周狀態 AS 日期, '廠內維修' AS 狀態, SUM(廠內維修) AS 數量
	FROM %[1]s
	GROUP BY 每周狀態
	UNION ALL
	SELECT 每周狀態 AS 日期, '客戶維修' AS 狀態, SUM(客戶維修) AS 數量
	FROM %[1]s
	GROUP BY 每周狀態
	ORDER BY 日期`

const queryMaintenanceCycle = `
	SELECT
		配件編號, 配件名稱, 客戶名稱, 維修天數, 開始時間, 說明,
		CASE
			WHEN 維修天數 <= @short_max THEN @short
			WHEN 維修天數 <= @medium_max THEN @medium
			ELSE @long
		END AS 維修類型
	FROM pat_parts_all
	WHERE 維修天數 IS NOT NULL AND 維修天數 > 0
	ORDER BY 維修天數 DESC`

const queryMaintenanceSummary = `
	SELECT
		COUNT(*) AS 總維修配件數,
		AVG(維修天數) AS 平均維修天數,
		MIN(維修天數) AS 最短維修天數,
		MAX(維修天數) AS 最長維修天數,
		SUM(CASE WHEN 維修天數 <= @short_max THEN 1 ELSE 0 END) AS 短期維修數,
		SUM(CASE WHEN 維修天數 > @short_max AND 維修天數 <= @medium_max THEN 1 ELSE 0 END) AS 中期維修數,
		SUM(CASE WHEN 維修天數 > @medium_max THEN 1 ELSE 0 END) AS 長期維修數
	FROM pat_parts_all
	WHERE 維修天數 IS NOT NULL AND 維修天數 > 0`

// queryWeeklyTrend merges both weekly tables into one series. Weeks with no
// parts get NULL rates instead of a division by zero.
const queryWeeklyTrend = `
	SELECT
		每周狀態 AS 時間週期,
		SUM(總數量) AS 總配件數,
		SUM(正常生產) AS 正常生產數,
		SUM(廠內維修) AS 廠內維修數,
		SUM(客戶維修) AS 客戶維修數,
		SUM(客戶借出) AS 客戶借出數,
		ROUND(SUM(客戶維修) * 100.0 / NULLIF(SUM(總數量), 0), 2) AS 客戶維修率,
		ROUND(SUM(廠內維修) * 100.0 / NULLIF(SUM(總數量), 0), 2) AS 廠內維修率
	FROM (
		SELECT 每周狀態, 總數量, 正常生產, 廠內維修, 客戶維修, 客戶借出 FROM pat_stats_weekly
		UNION ALL
		SELECT 每周狀態, 總數量, 正常生產, 廠內維修, 客戶維修, 客戶借出 FROM kyec_stats_weekly
	) AS weekly
	GROUP BY 每周狀態
	ORDER BY 時間週期`

// The change-log analysis statements take one %s placeholder for the window
// condition built by windowCondition. The day is the first ten characters of
// the ISO-8601 timestamp on both backends.

const queryRecentChanges = `
	SELECT substr("timestamp", 1, 10) AS 變更日期, operation AS 操作類型, COUNT(*) AS 變更次數
	FROM table_change_log
	WHERE %s
	GROUP BY substr("timestamp", 1, 10), operation
	ORDER BY 變更日期 DESC, 變更次數 DESC`

const queryUserActivity = `
	SELECT
		"user" AS 操作人員,
		COUNT(*) AS 操作次數,
		COUNT(DISTINCT substr("timestamp", 1, 10)) AS 活躍天數,
		MIN("timestamp") AS 首次操作,
		MAX("timestamp") AS 最後操作
	FROM table_change_log
	WHERE %s AND "user" IS NOT NULL
	GROUP BY "user"
	ORDER BY 操作次數 DESC`

const queryChangeFrequency = `
	SELECT
		table_name AS 資料表,
		operation AS 操作類型,
		COUNT(*) AS 變更次數,
		COUNT(DISTINCT row_key) AS 影響配件數
	FROM table_change_log
	WHERE %s
	GROUP BY table_name, operation
	ORDER BY 變更次數 DESC`

// queryChangeLogBase is extended with AND clauses by changeLogStatement.
const queryChangeLogBase = `SELECT * FROM table_change_log WHERE 1=1`

const querySearchPAT = `
	SELECT 配件編號, 配件名稱, 客戶名稱, 配件狀態, 站點, 配件種類, 開始時間
	FROM pat_parts_all
	WHERE 配件編號 LIKE @pattern OR 配件名稱 LIKE @pattern OR 客戶名稱 LIKE @pattern
	ORDER BY 配件編號`

const querySearchKYEC = `
	SELECT 配件編號, 板全號, 客戶名稱, 配件狀態, 配件種類, 機台型號, 狀態開始時間
	FROM kyec_parts_all
	WHERE 配件編號 LIKE @pattern OR 板全號 LIKE @pattern OR 客戶名稱 LIKE @pattern
	ORDER BY 配件編號`

const querySearchAll = `
	SELECT 配件編號, 配件名稱, 客戶名稱, 配件狀態, 'PAT' AS 來源, 開始時間
	FROM pat_parts_all
	WHERE 配件編號 LIKE @pattern OR 配件名稱 LIKE @pattern OR 客戶名稱 LIKE @pattern
	UNION ALL
	SELECT 配件編號, 配件種類 AS 配件名稱, 客戶名稱, 配件狀態, 'KYEC' AS 來源, 狀態開始時間 AS 開始時間
	FROM kyec_parts_all
	WHERE 配件編號 LIKE @pattern OR 配件種類 LIKE @pattern OR 客戶名稱 LIKE @pattern
	ORDER BY 配件編號`

// queryPartByID has one %s placeholder for the parts table.
const queryPartByID = `SELECT * FROM %s WHERE 配件編號 = @id`

const queryPartHistory = `
	SELECT "timestamp", operation, column_name, old_value, new_value, "user", note
	FROM table_change_log
	WHERE row_key = @id
	ORDER BY "timestamp" DESC`
