package policy

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/port"
)

// PolicyExplorer decorates a SchemaExplorer with policy-based context enrichment.
type PolicyExplorer struct {
	inner  port.SchemaExplorer
	policy *Policy
}

func NewPolicyExplorer(inner port.SchemaExplorer, pol *Policy) *PolicyExplorer {
	return &PolicyExplorer{inner: inner, policy: pol}
}

func (p *PolicyExplorer) ListTables(ctx context.Context) ([]port.TableInfo, error) {
	tables, err := p.inner.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	MergeTableInfoList(tables, p.policy.Context)
	return tables, nil
}

func (p *PolicyExplorer) DescribeTable(ctx context.Context, tableName string) (*port.TableDetail, error) {
	detail, err := p.inner.DescribeTable(ctx, tableName)
	if err != nil {
		return nil, err
	}
	MergeTableDetail(detail, p.policy.Context)
	return detail, nil
}

func (p *PolicyExplorer) ProfileColumn(ctx context.Context, tableName, column string) (*domain.ColumnProfile, error) {
	return p.inner.ProfileColumn(ctx, tableName, column)
}

// SchemaDDL prefixes each table's DDL with its policy descriptions as SQL
// comments, which gives the translator the business vocabulary.
func (p *PolicyExplorer) SchemaDDL(ctx context.Context) ([]string, error) {
	ddl, err := p.inner.SchemaDDL(ctx)
	if err != nil {
		return nil, err
	}
	for i, stmt := range ddl {
		name := ddlTableName(stmt)
		tc, ok := p.policy.Context.Tables[name]
		if !ok {
			continue
		}
		ddl[i] = describe(name, tc) + stmt
	}
	return ddl, nil
}

func describe(name string, tc TableContext) string {
	var b strings.Builder
	if tc.Description != "" {
		b.WriteString("-- " + name + ": " + tc.Description + "\n")
	}
	cols := slices.Sorted(maps.Keys(tc.Columns))
	for _, col := range cols {
		if d := tc.Columns[col].Description; d != "" {
			b.WriteString("-- " + name + "." + col + ": " + d + "\n")
		}
	}
	return b.String()
}

// ddlTableName returns the object name of a CREATE TABLE or CREATE VIEW statement.
func ddlTableName(stmt string) string {
	fields := strings.Fields(stmt)
	for i := 0; i+1 < len(fields); i++ {
		switch strings.ToUpper(fields[i]) {
		case "TABLE", "VIEW":
			j := i + 1
			if strings.EqualFold(fields[j], "IF") && j+3 < len(fields) {
				j += 3 // IF NOT EXISTS
			}
			name, _, _ := strings.Cut(fields[j], "(")
			return strings.Trim(name, `"`)
		}
	}
	return ""
}
