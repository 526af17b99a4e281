package policy

import (
	"fmt"

	"github.com/guillermoBallester/partscope/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Policy holds operator-controlled configuration loaded from a YAML file:
// a data dictionary, column masks, the tables the dashboard needs and notes
// for the SQL translator.
type Policy struct {
	Context        ContextConfig `yaml:"context"`
	RequiredTables []string      `yaml:"required_tables,omitempty"`
	// TranslatorNotes are appended to the natural-language translator prompt.
	TranslatorNotes []string `yaml:"translator_notes,omitempty"`
}

// ContextConfig maps table names to business descriptions that are merged
// into explorer responses.
type ContextConfig struct {
	Tables map[string]TableContext `yaml:"tables"`
}

// TableContext provides business descriptions and masking rules for a table and its columns.
type TableContext struct {
	Description string                   `yaml:"description"`
	Columns     map[string]ColumnContext `yaml:"columns"`
}

// ColumnContext holds a column's business description and optional mask directive.
type ColumnContext struct {
	Description string          `yaml:"description"`
	Mask        domain.MaskType `yaml:"mask,omitempty"`
}

// UnmarshalYAML accepts either a plain description string or a mapping.
//
//	columns:
//	  配件名稱: "Part name"          # plain string
//	  客戶名稱:                       # mapping with optional mask
//	    description: "Customer"
//	    mask: "partial"
func (cc *ColumnContext) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		cc.Description = value.Value
		return nil
	}
	type alias ColumnContext
	var a alias
	if err := value.Decode(&a); err != nil {
		return fmt.Errorf("decoding column context: %w", err)
	}
	*cc = ColumnContext(a)
	return nil
}
