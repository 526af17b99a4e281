package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- LoadFromFile tests ---

func TestLoadFromFile(t *testing.T) {
	yaml := `
context:
  tables:
    pat_parts_all:
      description: "PAT tooling parts"
      columns:
        配件狀態: "PRODUCTION, REPAIR, OUT_REPAIR or BORROW"
        維修天數: "Days spent in repair"
    kyec_parts_all:
      description: "KYEC tooling parts"
required_tables: [pat_parts_all, kyec_parts_all]
translator_notes:
  - "KYEC statuses are stored in Chinese."
`
	path := writeTempFile(t, yaml)

	pol, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Len(t, pol.Context.Tables, 2)

	pat := pol.Context.Tables["pat_parts_all"]
	assert.Equal(t, "PAT tooling parts", pat.Description)
	assert.Equal(t, "Days spent in repair", pat.Columns["維修天數"].Description)
	assert.Empty(t, pat.Columns["維修天數"].Mask)
	assert.Equal(t, []string{"pat_parts_all", "kyec_parts_all"}, pol.Required())
	assert.Equal(t, []string{"KYEC statuses are stored in Chinese."}, pol.TranslatorNotes)
}

func TestLoadFromFile_WithMasks(t *testing.T) {
	yaml := `
context:
  tables:
    pat_parts_all:
      columns:
        客戶名稱:
          description: "Customer"
          mask: "partial"
        財產編號:
          mask: "hash"
        配件名稱:
          description: "Part name"
`
	path := writeTempFile(t, yaml)

	pol, err := LoadFromFile(path)
	require.NoError(t, err)

	pat := pol.Context.Tables["pat_parts_all"]
	assert.Equal(t, domain.MaskPartial, pat.Columns["客戶名稱"].Mask)
	assert.Equal(t, "Customer", pat.Columns["客戶名稱"].Description)
	assert.Equal(t, domain.MaskHash, pat.Columns["財產編號"].Mask)
	assert.Empty(t, pat.Columns["配件名稱"].Mask)
}

func TestLoadFromFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "invalid mask",
			yaml: `
context:
  tables:
    pat_parts_all:
      columns:
        客戶名稱:
          mask: "scramble"
`,
			wantErr: `invalid value "scramble"`,
		},
		{
			name:    "invalid yaml",
			yaml:    "context: [unclosed",
			wantErr: "parsing policy YAML",
		},
		{
			name: "empty table key",
			yaml: `
context:
  tables:
    "":
      description: "nothing"
`,
			wantErr: "empty key",
		},
		{
			name: "empty column key",
			yaml: `
context:
  tables:
    pat_parts_all:
      columns:
        "": "nothing"
`,
			wantErr: "columns contains an empty key",
		},
		{
			name: "conflicting masks",
			yaml: `
context:
  tables:
    pat_parts_all:
      columns:
        客戶名稱:
          mask: "redact"
    kyec_parts_all:
      columns:
        客戶名稱:
          mask: "hash"
`,
			wantErr: "conflicting masks",
		},
		{
			name:    "empty required table",
			yaml:    `required_tables: [pat_parts_all, ""]`,
			wantErr: "required_tables[1]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeTempFile(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_SameMaskNoConflict(t *testing.T) {
	yaml := `
context:
  tables:
    pat_parts_all:
      columns:
        客戶名稱:
          mask: "redact"
    kyec_parts_all:
      columns:
        客戶名稱:
          mask: "redact"
`
	pol, err := LoadFromFile(writeTempFile(t, yaml))
	require.NoError(t, err)
	assert.Equal(t, domain.ColumnMasks{"客戶名稱": domain.MaskRedact}, pol.Masks())
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/policy.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading policy file")
}

// --- merge tests ---

func TestMergeTableDetail(t *testing.T) {
	ctx := ContextConfig{Tables: map[string]TableContext{
		"pat_parts_all": {
			Description: "PAT parts",
			Columns: map[string]ColumnContext{
				"配件狀態": {Description: "Status"},
				"配件名稱": {Description: "Name"},
			},
		},
	}}

	detail := &port.TableDetail{
		Name: "pat_parts_all",
		Columns: []port.ColumnInfo{
			{Name: "配件狀態"},
			{Name: "配件名稱", Comment: "from the database"},
			{Name: "站點"},
		},
	}
	MergeTableDetail(detail, ctx)

	assert.Equal(t, "PAT parts", detail.Comment)
	assert.Equal(t, "Status", detail.Columns[0].Comment)
	assert.Equal(t, "from the database", detail.Columns[1].Comment, "database comments win")
	assert.Empty(t, detail.Columns[2].Comment)
}

func TestMergeTableDetail_NoMatchingTableOrNil(t *testing.T) {
	ctx := ContextConfig{Tables: map[string]TableContext{"other": {Description: "x"}}}

	detail := &port.TableDetail{Name: "pat_parts_all"}
	MergeTableDetail(detail, ctx)
	assert.Empty(t, detail.Comment)

	assert.NotPanics(t, func() { MergeTableDetail(nil, ctx) })
}

func TestMergeTableInfoList(t *testing.T) {
	ctx := ContextConfig{Tables: map[string]TableContext{
		"pat_parts_all":  {Description: "PAT parts"},
		"kyec_parts_all": {Description: "KYEC parts"},
	}}
	tables := []port.TableInfo{
		{Name: "pat_parts_all"},
		{Name: "kyec_parts_all", Comment: "existing"},
		{Name: "table_change_log"},
	}
	MergeTableInfoList(tables, ctx)

	assert.Equal(t, "PAT parts", tables[0].Comment)
	assert.Equal(t, "existing", tables[1].Comment)
	assert.Empty(t, tables[2].Comment)
}

func TestPolicy_MasksAndRequired_Nil(t *testing.T) {
	var pol *Policy
	assert.Nil(t, pol.Masks())
	assert.Equal(t, domain.RequiredTables, pol.Required())
	assert.Equal(t, domain.RequiredTables, (&Policy{}).Required())
}

// --- PolicyExplorer tests ---

type mockExplorer struct {
	tables  []port.TableInfo
	detail  *port.TableDetail
	profile *domain.ColumnProfile
	ddl     []string
}

func (m *mockExplorer) ListTables(context.Context) ([]port.TableInfo, error) {
	return m.tables, nil
}

func (m *mockExplorer) DescribeTable(context.Context, string) (*port.TableDetail, error) {
	return m.detail, nil
}

func (m *mockExplorer) ProfileColumn(context.Context, string, string) (*domain.ColumnProfile, error) {
	return m.profile, nil
}

func (m *mockExplorer) SchemaDDL(context.Context) ([]string, error) {
	return m.ddl, nil
}

func testPolicy() *Policy {
	return &Policy{Context: ContextConfig{Tables: map[string]TableContext{
		"pat_parts_all": {
			Description: "PAT parts",
			Columns: map[string]ColumnContext{
				"配件狀態": {Description: "Status"},
				"配件名稱": {Description: "Name"},
			},
		},
	}}}
}

func TestPolicyExplorer_ListTablesAndDescribe(t *testing.T) {
	inner := &mockExplorer{
		tables: []port.TableInfo{{Name: "pat_parts_all"}},
		detail: &port.TableDetail{Name: "pat_parts_all", Columns: []port.ColumnInfo{{Name: "配件狀態"}}},
	}
	exp := NewPolicyExplorer(inner, testPolicy())

	tables, err := exp.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PAT parts", tables[0].Comment)

	detail, err := exp.DescribeTable(context.Background(), "pat_parts_all")
	require.NoError(t, err)
	assert.Equal(t, "Status", detail.Columns[0].Comment)
}

func TestPolicyExplorer_ProfileColumnPassesThrough(t *testing.T) {
	p := domain.NewColumnProfile("pat_parts_all", "配件狀態", 10, 10, 4)
	exp := NewPolicyExplorer(&mockExplorer{profile: &p}, testPolicy())

	got, err := exp.ProfileColumn(context.Background(), "pat_parts_all", "配件狀態")
	require.NoError(t, err)
	assert.Same(t, &p, got)
}

func TestPolicyExplorer_SchemaDDL(t *testing.T) {
	inner := &mockExplorer{ddl: []string{
		"CREATE TABLE kyec_parts_all (配件編號 TEXT)",
		"CREATE TABLE pat_parts_all (配件編號 TEXT, 配件狀態 TEXT)",
	}}
	exp := NewPolicyExplorer(inner, testPolicy())

	ddl, err := exp.SchemaDDL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE kyec_parts_all (配件編號 TEXT)", ddl[0])
	assert.Equal(t,
		"-- pat_parts_all: PAT parts\n"+
			"-- pat_parts_all.配件名稱: Name\n"+
			"-- pat_parts_all.配件狀態: Status\n"+
			"CREATE TABLE pat_parts_all (配件編號 TEXT, 配件狀態 TEXT)",
		ddl[1])
}

func TestDDLTableName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"CREATE TABLE pat_parts_all (a TEXT)":           "pat_parts_all",
		`CREATE TABLE "table_change_log"(id INTEGER)`:   "table_change_log",
		"create table if not exists kyec_parts_all (a)": "kyec_parts_all",
		"CREATE VIEW weekly AS SELECT 1":                "weekly",
		"SELECT 1":                                      "",
	}
	for stmt, want := range tests {
		assert.Equal(t, want, ddlTableName(stmt), stmt)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}
