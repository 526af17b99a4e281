package domain

// Cardinality describes how many distinct values a column holds relative to its rows.
type Cardinality string

const (
	CardinalityUnique     Cardinality = "unique"
	CardinalityNearUnique Cardinality = "near_unique"
	CardinalityHigh       Cardinality = "high_cardinality"
	CardinalityLow        Cardinality = "low_cardinality"
	CardinalityEnumLike   Cardinality = "enum_like"
)

const (
	nearUniqueRatio = 0.9
	enumLikeMax     = 20
	lowMax          = 200
)

// ColumnProfile summarises a column's values. Filled from COUNT(*),
// COUNT(col) and COUNT(DISTINCT col) so it works on any backend.
type ColumnProfile struct {
	Table         string      `json:"table"`
	Column        string      `json:"column"`
	Rows          int64       `json:"rows"`
	NullCount     int64       `json:"null_count"`
	NullFraction  float64     `json:"null_fraction"`
	DistinctCount int64       `json:"distinct_count"`
	Cardinality   Cardinality `json:"cardinality"`
}

// NewColumnProfile derives the null fraction and cardinality from raw counts.
func NewColumnProfile(table, column string, rows, nonNull, distinct int64) ColumnProfile {
	p := ColumnProfile{
		Table:         table,
		Column:        column,
		Rows:          rows,
		NullCount:     rows - nonNull,
		DistinctCount: distinct,
		Cardinality:   classify(distinct, nonNull),
	}
	if rows > 0 {
		p.NullFraction = float64(p.NullCount) / float64(rows)
	}
	return p
}

// classify compares distinct values against non-null rows.
func classify(distinct, nonNull int64) Cardinality {
	if nonNull > 0 {
		if distinct == nonNull {
			return CardinalityUnique
		}
		if float64(distinct)/float64(nonNull) >= nearUniqueRatio {
			return CardinalityNearUnique
		}
	}
	switch {
	case distinct <= enumLikeMax:
		return CardinalityEnumLike
	case distinct <= lowMax:
		return CardinalityLow
	}
	return CardinalityHigh
}
