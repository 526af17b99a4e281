package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrRejected is wrapped by every gate rejection.
	ErrRejected = errors.New("query is not permitted")

	ErrEmptyQuery     = fmt.Errorf("%w: empty query", ErrRejected)
	ErrNotSelect      = fmt.Errorf("%w: only SELECT queries are allowed", ErrRejected)
	ErrDeniedKeyword  = fmt.Errorf("%w: statement contains a forbidden keyword", ErrRejected)
	ErrCommentMarker  = fmt.Errorf("%w: inline comments are not allowed", ErrRejected)
	ErrMultiStatement = fmt.Errorf("%w: multiple statements are not allowed", ErrRejected)
	ErrUnionNotSelect = fmt.Errorf("%w: every UNION arm must be a SELECT", ErrRejected)
)

const statementTerminator = ";"

// deniedKeywords are matched as whole words against the upper-cased query.
var deniedKeywords = []string{
	"DROP", "DELETE", "INSERT", "UPDATE", "ALTER",
	"CREATE", "TRUNCATE", "EXEC", "EXECUTE",
}

// Word boundaries treat any Unicode letter, digit or underscore as part of an
// identifier, so column names like updated_at or 狀態UPDATE never match.
const identChar = `\p{L}\p{N}_`

var (
	deniedPatterns = compileDenied(deniedKeywords)
	unionSplit     = regexp.MustCompile(`(?:^|[^` + identChar + `])UNION\s+(?:ALL\s+)?`)
)

func compileDenied(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`(?:^|[^` + identChar + `])` + w + `(?:$|[^` + identChar + `])`)
	}
	return out
}

// candidate is a query under inspection. raw keeps the caller's text; trimmed
// drops surrounding whitespace and one trailing terminator; upper is trimmed
// upper-cased and used for keyword matching only.
type candidate struct {
	raw     string
	trimmed string
	upper   string
}

func newCandidate(sql string) candidate {
	trimmed := strings.TrimSpace(sql)
	trimmed = strings.TrimSuffix(trimmed, statementTerminator)
	return candidate{
		raw:     sql,
		trimmed: trimmed,
		upper:   strings.ToUpper(trimmed),
	}
}

// gateCheck is one step of the pipeline. allow returns false to reject with reason.
type gateCheck struct {
	name   string
	reason error
	allow  func(c candidate) bool
}

// selectPipeline runs in order; the first failing check decides the verdict.
var selectPipeline = []gateCheck{
	// Blocks "" and whitespace-only input.
	{name: "non_empty", reason: ErrEmptyQuery, allow: func(c candidate) bool {
		return c.trimmed != ""
	}},
	// Allow-list: anything not even shaped like a read query (PRAGMA, WITH ...
	// DELETE, ATTACH, DROP) stops here.
	{name: "leading_select", reason: ErrNotSelect, allow: func(c candidate) bool {
		return strings.HasPrefix(c.upper, "SELECT")
	}},
	// SELECT-shaped payloads smuggling mutations through sub-clauses,
	// e.g. "SELECT * FROM t WHERE x IN (DELETE ...)".
	{name: "denied_keywords", reason: ErrDeniedKeyword, allow: func(c candidate) bool {
		for _, re := range deniedPatterns {
			if re.MatchString(c.upper) {
				return false
			}
		}
		return true
	}},
	// Comment truncation, e.g. "SELECT * FROM t WHERE id = 1 -- AND owner = 'me'".
	{name: "comment_marker", reason: ErrCommentMarker, allow: func(c candidate) bool {
		return !strings.Contains(c.upper, "--")
	}},
	// Stacked statements, e.g. "SELECT 1; SELECT 2". Counted on the raw text.
	{name: "single_statement", reason: ErrMultiStatement, allow: func(c candidate) bool {
		n := 0
		for _, seg := range strings.Split(c.raw, statementTerminator) {
			if strings.TrimSpace(seg) != "" {
				n++
			}
		}
		return n <= 1
	}},
	// "SELECT a FROM t UNION <not a select>" compositions.
	{name: "union_arms", reason: ErrUnionNotSelect, allow: func(c candidate) bool {
		if !strings.Contains(c.upper, "UNION") {
			return true
		}
		for _, arm := range unionSplit.Split(c.upper, -1) {
			arm = strings.TrimSpace(arm)
			if arm != "" && !strings.HasPrefix(arm, "SELECT") {
				return false
			}
		}
		return true
	}},
}

// SelectGate admits only single, read-only SELECT statements, optionally
// combined with UNION [ALL] SELECT.
//
// The gate is keyword based and does not parse SQL. Constructs that mutate or
// escape the dataset without using a denied keyword are not caught (for
// example REPLACE, PRAGMA writes hidden in a function, or ATTACH in a
// non-leading position), and denied keywords inside string literals are
// rejected as if they were code. The executor's read-only connection is the
// second line of defence.
type SelectGate struct{}

func NewSelectGate() *SelectGate {
	return &SelectGate{}
}

// RejectionError is returned by the gate. Check names the pipeline step that
// refused the statement; Reason is the matching sentinel.
type RejectionError struct {
	Check  string
	Reason error
}

func (e RejectionError) Error() string { return e.Reason.Error() }

func (e RejectionError) Unwrap() error { return e.Reason }

// Validate returns nil when sql is accepted, or a RejectionError wrapping
// ErrRejected and the specific reason.
func (g *SelectGate) Validate(sql string) error {
	c := newCandidate(sql)
	for _, check := range selectPipeline {
		if !check.allow(c) {
			return RejectionError{Check: check.name, Reason: check.reason}
		}
	}
	return nil
}

// IsSafeSelect reports whether sql passes the gate.
func IsSafeSelect(sql string) bool {
	return (&SelectGate{}).Validate(sql) == nil
}

// RejectionReason names the pipeline step behind a gate rejection, or ""
// when err is not one.
func RejectionReason(err error) string {
	var re RejectionError
	if errors.As(err, &re) {
		return re.Check
	}
	return ""
}

// IsRejected reports whether err is a gate rejection.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}
