package domain

import (
	"fmt"
	"regexp"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Alias records that values of Column can appear in the result under Name.
// An empty Name means the output column derived from Column has a name that
// cannot be predicted, such as an unaliased expression.
type Alias struct {
	Column string
	Name   string
}

// output is one column a SELECT produces: its name and the columns it reads.
type output struct {
	name string
	cols []string
}

// ExtractAliases lists every way sql renames a column in its result: AS
// aliases, implicit aliases, expressions, UNION arms named by the first arm and
// FROM subqueries including their column lists. SQLite quoting and parameter
// styles are accepted. It returns an error when sql cannot be parsed.
func ExtractAliases(sql string) ([]Alias, error) {
	tree, err := pg_query.Parse(toPostgresDialect(sql))
	if err != nil {
		return nil, fmt.Errorf("parsing select: %w", err)
	}
	if len(tree.Stmts) == 0 || tree.Stmts[0].Stmt == nil {
		return nil, nil
	}
	sel := tree.Stmts[0].Stmt.GetSelectStmt()
	if sel == nil {
		return nil, nil
	}

	var aliases []Alias
	for _, o := range outputs(sel, &aliases) {
		aliases = appendRenames(aliases, o)
	}
	return aliases, nil
}

// outputs resolves stmt's result columns, appending the renames found in its
// FROM subqueries to into.
func outputs(stmt *pg_query.SelectStmt, into *[]Alias) []output {
	if stmt == nil {
		return nil
	}
	if stmt.Op != pg_query.SetOperation_SETOP_NONE {
		left := outputs(stmt.Larg, into)
		right := outputs(stmt.Rarg, into)
		// Later arms take the first arm's column names by position.
		for i := range left {
			if i < len(right) {
				left[i].cols = append(left[i].cols, right[i].cols...)
				if right[i].name != left[i].name {
					left[i].cols = append(left[i].cols, right[i].name)
				}
			}
		}
		return left
	}

	for _, from := range stmt.FromClause {
		fromItem(from, into)
	}

	var outs []output
	for _, target := range stmt.TargetList {
		rt := target.GetResTarget()
		if rt == nil || rt.Val == nil {
			continue
		}
		o := output{name: rt.Name, cols: columnRefs(rt.Val)}
		if o.name == "" {
			o.name = columnRefName(rt.Val)
		}
		outs = append(outs, o)
	}
	return outs
}

// fromItem records the renames of subqueries in a FROM clause entry.
func fromItem(n *pg_query.Node, into *[]Alias) {
	if j := n.GetJoinExpr(); j != nil {
		fromItem(j.Larg, into)
		fromItem(j.Rarg, into)
		return
	}
	sub := n.GetRangeSubselect()
	if sub == nil || sub.Subquery == nil {
		return
	}
	outs := outputs(sub.Subquery.GetSelectStmt(), into)
	if sub.Alias != nil {
		for i, cn := range sub.Alias.Colnames {
			if i < len(outs) {
				if outs[i].name != "" {
					outs[i].cols = append(outs[i].cols, outs[i].name)
				}
				outs[i].name = cn.GetString_().GetSval()
			}
		}
	}
	for _, o := range outs {
		*into = appendRenames(*into, o)
	}
}

func appendRenames(into []Alias, o output) []Alias {
	for _, col := range o.cols {
		if col != "" && col != o.name {
			into = append(into, Alias{Column: col, Name: o.name})
		}
	}
	return into
}

// columnRefName returns the last field of a plain column reference
// (c."Email" -> Email), or "" for anything else, stars included.
func columnRefName(n *pg_query.Node) string {
	cr := n.GetColumnRef()
	if cr == nil || len(cr.Fields) == 0 {
		return ""
	}
	return cr.Fields[len(cr.Fields)-1].GetString_().GetSval()
}

// columnRefs returns the names of every column referenced anywhere under n.
func columnRefs(n *pg_query.Node) []string {
	if n == nil {
		return nil
	}
	var cols []string
	walk(n, func(cr *pg_query.ColumnRef) {
		if len(cr.Fields) == 0 {
			return
		}
		if name := cr.Fields[len(cr.Fields)-1].GetString_().GetSval(); name != "" {
			cols = append(cols, name)
		}
	})
	return cols
}

func walk(m proto.Message, visit func(*pg_query.ColumnRef)) {
	if m == nil {
		return
	}
	if cr, ok := m.(*pg_query.ColumnRef); ok {
		visit(cr)
		return
	}
	m.ProtoReflect().Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		if fd.Kind() != protoreflect.MessageKind || fd.IsMap() {
			return true
		}
		if fd.IsList() {
			l := v.List()
			for i := 0; i < l.Len(); i++ {
				walk(l.Get(i).Message().Interface(), visit)
			}
			return true
		}
		walk(v.Message().Interface(), visit)
		return true
	})
}

var (
	bracketIdent  = regexp.MustCompile(`\[([^\[\]]+)\]`)
	backtickIdent = regexp.MustCompile("`([^`]+)`")
	namedParam    = regexp.MustCompile(`([^` + identChar + `:])[@:$][\p{L}_][` + identChar + `]*`)
	anonParam     = regexp.MustCompile(`\?\d*`)
)

// toPostgresDialect rewrites SQLite-only identifier quoting and parameter
// markers into forms the PostgreSQL parser accepts. The result is only used
// to resolve column names.
func toPostgresDialect(sql string) string {
	sql = bracketIdent.ReplaceAllString(sql, `"$1"`)
	sql = backtickIdent.ReplaceAllString(sql, `"$1"`)
	sql = namedParam.ReplaceAllString(sql, `${1}$$1`)
	return anonParam.ReplaceAllString(sql, `$$1`)
}
