package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// MaskType is how a sensitive column is hidden in query results.
type MaskType string

const (
	MaskRedact  MaskType = "redact"
	MaskHash    MaskType = "hash"
	MaskPartial MaskType = "partial"
	MaskNull    MaskType = "null"
)

const (
	redacted       = "***"
	partialVisible = 4
)

// Valid reports whether m is a known mask. The empty string means "unmasked".
func (m MaskType) Valid() bool {
	switch m {
	case "", MaskRedact, MaskHash, MaskPartial, MaskNull:
		return true
	}
	return false
}

// Apply hides v. NULLs stay NULL; masked values become strings except for MaskNull.
func (m MaskType) Apply(v any) any {
	if v == nil {
		return nil
	}
	switch m {
	case MaskRedact:
		return redacted
	case MaskHash:
		sum := sha256.Sum256([]byte(fmt.Sprint(v)))
		return hex.EncodeToString(sum[:])
	case MaskPartial:
		return keepTail(fmt.Sprint(v), partialVisible)
	case MaskNull:
		return nil
	}
	return v
}

// keepTail stars out everything but the last n runes. Short values are
// prefixed rather than fully revealed.
func keepTail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return redacted + s
	}
	return strings.Repeat("*", len(r)-n) + string(r[len(r)-n:])
}

// ColumnMasks maps a result column name to its mask. Matching is by bare
// column name, regardless of the table it came from.
type ColumnMasks map[string]MaskType

// ForQuery resolves the masks against the result set sql will produce. A
// masked column reaching the result under another name is masked under that
// name too. When sql names a masked column but cannot be resolved, every other
// result column is redacted.
func (cm ColumnMasks) ForQuery(sql string) QueryMasks {
	if len(cm) == 0 {
		return QueryMasks{}
	}
	byName := make(map[string]MaskType, len(cm))
	for col, m := range cm {
		byName[strings.ToLower(col)] = m
	}
	qm := QueryMasks{byName: byName}

	aliases, err := ExtractAliases(sql)
	if err != nil {
		if cm.mentionedIn(sql) {
			qm.fallback = MaskRedact
		}
		return qm
	}

	for changed := true; changed; {
		changed = false
		for _, a := range aliases {
			m, ok := byName[strings.ToLower(a.Column)]
			if !ok {
				continue
			}
			if a.Name == "" {
				qm.fallback = MaskRedact
				continue
			}
			name := strings.ToLower(a.Name)
			if _, done := byName[name]; !done {
				byName[name] = m
				changed = true
			}
		}
	}
	return qm
}

// mentionedIn reports whether any masked column name occurs as a word in sql,
// ignoring case and quoting.
func (cm ColumnMasks) mentionedIn(sql string) bool {
	for col := range cm {
		re := regexp.MustCompile(`(?i)(?:^|[^` + identChar + `])` + regexp.QuoteMeta(col) + `(?:$|[^` + identChar + `])`)
		if re.MatchString(sql) {
			return true
		}
	}
	return false
}

// Rows masks rows in place by bare column name.
func (cm ColumnMasks) Rows(rows []map[string]any) {
	QueryMasks{byName: cm.lower()}.Rows(rows)
}

func (cm ColumnMasks) lower() map[string]MaskType {
	out := make(map[string]MaskType, len(cm))
	for col, m := range cm {
		out[strings.ToLower(col)] = m
	}
	return out
}

// QueryMasks are the masks for one statement's result, matched by column
// name without regard to case.
type QueryMasks struct {
	byName map[string]MaskType
	// fallback, when set, applies to every column without its own mask.
	fallback MaskType
}

// For returns the mask for a result column, or "" if it is shown as is.
func (q QueryMasks) For(column string) MaskType {
	if m, ok := q.byName[strings.ToLower(column)]; ok {
		return m
	}
	return q.fallback
}

// Empty reports whether no column is masked.
func (q QueryMasks) Empty() bool {
	return len(q.byName) == 0 && q.fallback == ""
}

// Rows masks rows in place.
func (q QueryMasks) Rows(rows []map[string]any) {
	if q.Empty() {
		return
	}
	for _, row := range rows {
		for col, v := range row {
			if m := q.For(col); m != "" {
				row[col] = m.Apply(v)
			}
		}
	}
}
