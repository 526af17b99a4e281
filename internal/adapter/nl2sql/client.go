// Package nl2sql turns questions into SQL with a hosted, OpenAI-compatible
// chat-completions model. The SQL it returns is untrusted.
package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	DefaultModel   = "gpt-3.5-turbo"
	DefaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of an upstream error body is kept.
	maxErrorBody = 4 << 10
)

// ErrNoCompletion is returned when the model answers with no choices.
var ErrNoCompletion = errors.New("model returned no completion")

// SchemaSource provides the CREATE statements sent as context.
type SchemaSource interface {
	SchemaDDL(ctx context.Context) ([]string, error)
}

type Config struct {
	Endpoint string // full chat-completions URL
	APIKey   string
	Model    string
	Timeout  time.Duration
	// Notes are appended to the system prompt, e.g. status vocabularies.
	Notes []string
}

// Client implements port.SQLGenerator. The schema is read on first use and
// cached once a read succeeds; a failed read is retried on the next call.
type Client struct {
	cfg    Config
	http   *http.Client
	schema SchemaSource
	logger *slog.Logger

	mu     sync.Mutex
	prompt string
	loaded bool
}

func NewClient(cfg Config, schema SchemaSource, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		schema: schema,
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) GenerateSQL(ctx context.Context, question string) (string, error) {
	prompt, err := c.systemPrompt(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: question},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling translator: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.DebugContext(ctx, "translator responded",
		slog.Int("http.status_code", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("translator returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoCompletion
	}
	return ExtractSQL(out.Choices[0].Message.Content), nil
}

func (c *Client) systemPrompt(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.prompt, nil
	}

	ddl, err := c.schema.SchemaDDL(ctx)
	if err != nil {
		return "", fmt.Errorf("loading schema for translator: %w", err)
	}
	c.prompt = buildPrompt(ddl, c.cfg.Notes)
	c.loaded = true
	return c.prompt, nil
}

func buildPrompt(ddl, notes []string) string {
	var b strings.Builder
	b.WriteString("You translate questions into a single read-only SQL SELECT statement for the database below. ")
	b.WriteString("Reply with the SQL only. Never modify data.\n\n")
	for _, d := range ddl {
		b.WriteString(strings.TrimSpace(d))
		b.WriteString(";\n\n")
	}
	for _, n := range notes {
		b.WriteString(n)
		b.WriteString("\n")
	}
	return b.String()
}

var fencedSQL = regexp.MustCompile("(?s)```(?:sql|SQL)?\\s*(.*?)```")

// ExtractSQL pulls the statement out of a model reply, preferring the first
// fenced code block. The result may be empty.
func ExtractSQL(reply string) string {
	if m := fencedSQL.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(reply)
}
