package policy

import (
	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/port"
)

// MergeTableDetail enriches a TableDetail with business context from the policy.
// YAML descriptions only fill empty comments; database comments win.
func MergeTableDetail(detail *port.TableDetail, ctx ContextConfig) {
	if detail == nil {
		return
	}

	tc, ok := ctx.Tables[detail.Name]
	if !ok {
		return
	}

	if detail.Comment == "" && tc.Description != "" {
		detail.Comment = tc.Description
	}

	for i, col := range detail.Columns {
		if cc, ok := tc.Columns[col.Name]; ok && col.Comment == "" && cc.Description != "" {
			detail.Columns[i].Comment = cc.Description
		}
	}
}

// MergeTableInfoList enriches a list of TableInfo with business context.
func MergeTableInfoList(tables []port.TableInfo, ctx ContextConfig) {
	for i, t := range tables {
		if tc, ok := ctx.Tables[t.Name]; ok && t.Comment == "" && tc.Description != "" {
			tables[i].Comment = tc.Description
		}
	}
}

// Masks collects the masked columns of every table. Result rows carry bare
// column names, so a mask applies to that name in any table.
func (p *Policy) Masks() domain.ColumnMasks {
	if p == nil {
		return nil
	}
	masks := make(domain.ColumnMasks)
	for _, tc := range p.Context.Tables {
		for col, cc := range tc.Columns {
			if cc.Mask != "" {
				masks[col] = cc.Mask
			}
		}
	}
	return masks
}

// Required returns the tables the dashboard needs, defaulting to the
// built-in list when the policy names none.
func (p *Policy) Required() []string {
	if p == nil || len(p.RequiredTables) == 0 {
		return domain.RequiredTables
	}
	return p.RequiredTables
}
