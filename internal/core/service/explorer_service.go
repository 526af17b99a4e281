package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/port"
)

// ExplorerService wraps SchemaExplorer for metadata lookups.
type ExplorerService struct {
	explorer port.SchemaExplorer
	required []string
}

// NewExplorerService checks for required tables, or domain.RequiredTables when none are given.
func NewExplorerService(explorer port.SchemaExplorer, required ...string) *ExplorerService {
	if len(required) == 0 {
		required = domain.RequiredTables
	}
	return &ExplorerService{explorer: explorer, required: required}
}

func (s *ExplorerService) ListTables(ctx context.Context) ([]port.TableInfo, error) {
	return s.explorer.ListTables(ctx)
}

func (s *ExplorerService) DescribeTable(ctx context.Context, table string) (*port.TableDetail, error) {
	return s.explorer.DescribeTable(ctx, table)
}

func (s *ExplorerService) ProfileColumn(ctx context.Context, table, column string) (*domain.ColumnProfile, error) {
	return s.explorer.ProfileColumn(ctx, table, column)
}

// MissingTables returns the required tables the database lacks.
func (s *ExplorerService) MissingTables(ctx context.Context) ([]string, error) {
	tables, err := s.explorer.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}

	var missing []string
	for _, req := range s.required {
		if !slices.Contains(names, req) {
			missing = append(missing, req)
		}
	}
	return missing, nil
}
