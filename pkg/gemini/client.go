// Package gemini is the Google Gemini backend for the chat oracle.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/chat"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// generator is the slice of *genai.Models the client uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements chat.Oracle on top of genai.
type Client struct {
	models generator
	model  string
	logger *slog.Logger
}

var _ chat.Oracle = (*Client)(nil)

// New creates a Gemini API client for apiKey.
func New(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newClient(client.Models, model, logger), nil
}

func newClient(models generator, model string, logger *slog.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{models: models, model: model, logger: logger}
}

// Complete asks for a JSON object matching schema.
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string, schema *chat.Schema) (json.RawMessage, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    toGenaiSchema(schema),
	}

	text, err := c.generate(ctx, userMessage, config)
	if err != nil {
		return nil, err
	}

	clean := cleanModelJSON(text)
	if !json.Valid([]byte(clean)) {
		c.logger.Warn("gemini returned invalid JSON", slog.Int("length", len(text)))
		return nil, chat.NewOracleError(chat.OracleInvalidOutput, fmt.Errorf("invalid JSON from model: %.120q", text))
	}
	return json.RawMessage(clean), nil
}

// Generate returns free text.
func (c *Client) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	return c.generate(ctx, prompt, config)
}

func (c *Client) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		oerr := classifyError(err)
		c.logger.Warn("gemini request failed",
			slog.String("model", c.model),
			slog.String("kind", oerr.Kind.String()),
			slog.Any("error", err),
		)
		return "", oerr
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", chat.NewOracleError(chat.OracleInvalidOutput, errors.New("empty response from model"))
	}
	return text, nil
}

// classifyError maps genai failures onto oracle error kinds. A 429 is a quota
// failure when the message mentions quota, otherwise a rate limit.
func classifyError(err error) *chat.OracleError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &chat.OracleError{Kind: chat.OracleTransport, Err: err}
	}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		return chat.NewOracleError(chat.OracleTransport, err)
	}

	if apiErr.Code == http.StatusTooManyRequests {
		detail := strings.ToLower(apiErr.Status + " " + apiErr.Message)
		if strings.Contains(detail, "quota") {
			return &chat.OracleError{Kind: chat.OracleQuotaExceeded, Err: err}
		}
		return &chat.OracleError{Kind: chat.OracleRateLimited, Err: err}
	}
	return chat.NewOracleError(chat.OracleTransport, err)
}

func toGenaiSchema(s *chat.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:     genaiType(s.Type),
		Required: s.Required,
		Enum:     s.Enum,
	}
	if s.Nullable {
		out.Nullable = genai.Ptr(true)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGenaiSchema(p)
		}
	}
	return out
}

func genaiType(t string) genai.Type {
	switch strings.ToLower(t) {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

// cleanModelJSON strips Markdown fences and any text around the outermost object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
