package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"lorecrafter/models"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

// Generator produces the raw fields of one new record of the given kind.
type Generator interface {
	Generate(ctx context.Context, kind models.Kind, worldPrompt string) (map[string]any, error)
}

type Config struct {
	APIKey     string
	BaseURL    string // OpenAI compatible endpoint, e.g. https://openrouter.ai/api/v1/
	Model      string
	HTTPClient *http.Client
}

// Client calls a chat-completions endpoint once per Generate call.
type Client struct {
	api   openai.Client
	model string
	log   *zap.Logger
}

var _ Generator = (*Client)(nil)

func NewClient(cfg Config, log *zap.Logger) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &Client{
		api:   openai.NewClient(opts...),
		model: cfg.Model,
		log:   log.Named("generation"),
	}
}

// Generate asks for a JSON object describing one record of kind set in the
// world described by worldPrompt, and checks it carries the kind's keys.
func (c *Client) Generate(ctx context.Context, kind models.Kind, worldPrompt string) (map[string]any, error) {
	var reply capturedReply
	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(kind)),
			openai.UserMessage(userPrompt(worldPrompt)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}, option.WithMiddleware(reply.capture))
	if err != nil {
		if reply.delivered(err) {
			c.log.Warn("Generation reply unreadable", zap.Stringer("kind", kind), zap.Error(err))
			return nil, &ParseError{Raw: string(reply.body), Err: err}
		}
		c.log.Warn("Generation request failed", zap.Stringer("kind", kind), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(completion.Choices) == 0 {
		return nil, &ParseError{Raw: completion.RawJSON(), Err: errors.New("reply has no choices")}
	}

	content := completion.Choices[0].Message.Content
	fields, err := ParseFields(kind, content)
	if err != nil {
		c.log.Warn("Generation reply rejected", zap.Stringer("kind", kind), zap.Error(err))
		return nil, err
	}
	c.log.Debug("Generated record", zap.Stringer("kind", kind), zap.Any("name", fields["name"]))
	return fields, nil
}

// capturedReply keeps the raw body of a successful reply so that a body
// the client cannot decode is still reported with its text.
type capturedReply struct {
	status int
	body   []byte
}

func (r *capturedReply) capture(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	resp, err := next(req)
	if err != nil || resp == nil {
		return resp, err
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	r.status = resp.StatusCode
	r.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// delivered reports whether err arose after a 2xx reply arrived, that is
// whether the reply itself is at fault rather than the transport or the
// upstream service.
func (r *capturedReply) delivered(err error) bool {
	if r.body == nil || r.status < 200 || r.status >= 300 {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// ParseFields decodes a reply and verifies every required key of kind is a
// non-empty string. List values (a model's habit for personality traits)
// are accepted and joined.
func ParseFields(kind models.Kind, content string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return nil, &ParseError{Raw: content, Err: err}
	}
	if fields == nil {
		return nil, &ParseError{Raw: content, Err: errors.New("reply is not a JSON object")}
	}
	for _, key := range requiredKeys(kind) {
		s, ok := stringValue(fields[key])
		if !ok || s == "" {
			return nil, &ParseError{Raw: content, Err: fmt.Errorf("missing required key %q", key)}
		}
		fields[key] = s
	}
	return fields, nil
}

func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return "", false
			}
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), true
	}
	return "", false
}

// Character builds a character from fields accepted by ParseFields.
func Character(fields map[string]any) models.Character {
	return models.Character{
		Name:                str(fields, "name"),
		Role:                str(fields, "role"),
		PhysicalDescription: str(fields, "physical_description"),
		PersonalityTraits:   str(fields, "personality_traits"),
		Backstory:           str(fields, "backstory"),
	}
}

// Location builds a location from fields accepted by ParseFields.
func Location(fields map[string]any) models.Location {
	return models.Location{
		Name:        str(fields, "name"),
		Description: str(fields, "description"),
	}
}

func str(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}
