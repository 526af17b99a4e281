package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/port"
)

var (
	// ErrCouldNotRunQuery is returned when generated SQL is blank or rejected.
	// The generated statement is never run in that case.
	ErrCouldNotRunQuery = errors.New("could not run query")
	// ErrGeneratorUnavailable means no SQL translator is configured.
	ErrGeneratorUnavailable = errors.New("natural-language queries are not configured")
	ErrEmptyQuestion        = errors.New("question is required")
)

// AskResult is the answer to a natural-language question.
type AskResult struct {
	Question    string            `json:"question"`
	SQL         string            `json:"sql"`
	Result      *port.QueryResult `json:"result"`
	Explanation string            `json:"explanation"`
}

// AskService answers questions by running SQL from an external translator.
// The translator is untrusted: its SQL always goes through the query validator.
type AskService struct {
	generator port.SQLGenerator
	query     statementRunner
	logger    *slog.Logger
}

func NewAskService(generator port.SQLGenerator, query *QueryService, logger *slog.Logger) *AskService {
	return &AskService{generator: generator, query: query, logger: logger}
}

// Enabled reports whether a translator is configured.
func (s *AskService) Enabled() bool {
	return s != nil && s.generator != nil
}

func (s *AskService) Ask(ctx context.Context, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if !s.Enabled() {
		return nil, ErrGeneratorUnavailable
	}

	sql, err := s.generator.GenerateSQL(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("generating SQL: %w", err)
	}
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return nil, fmt.Errorf("%w: translator returned no SQL", ErrCouldNotRunQuery)
	}

	s.logger.DebugContext(ctx, "generated SQL", slog.String("db.statement", sql))

	res, err := s.query.Query(ctx, sql, port.ExecOptions{})
	if err != nil {
		if domain.IsRejected(err) {
			return nil, fmt.Errorf("%w: %w", ErrCouldNotRunQuery, err)
		}
		return nil, err
	}

	return &AskResult{
		Question:    question,
		SQL:         sql,
		Result:      res,
		Explanation: fmt.Sprintf("Ran a SQL query to answer %q; %d rows returned.", question, res.Len()),
	}, nil
}
