// Package suggest asks a chat completion model for an article category and
// tags.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"go-portfolio-cms/internal/model"
)

// ErrUnavailable is returned when no API key is configured.
var ErrUnavailable = errors.New("suggestion service is not configured")

const (
	maxContentRunes = 4000
	maxTags         = 5
	systemPrompt    = "You classify blog articles. Reply with a JSON object " +
		`{"category": string, "tags": [string]} and nothing else. ` +
		"Use one short category and at most five lowercase tags."
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

type Client struct {
	client *openai.Client
	model  string
}

// New returns nil and ErrUnavailable when cfg has no API key, which callers
// surface as a clean error rather than a startup failure.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrUnavailable
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	slog.Info("initializing suggestion client", "model", modelName)
	return &Client{client: openai.NewClientWithConfig(clientCfg), model: modelName}, nil
}

func (c *Client) Suggest(ctx context.Context, title string, content string) (model.Suggestion, error) {
	if c == nil {
		return model.Suggestion{}, ErrUnavailable
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Title: " + title + "\n\n" + clip(content, maxContentRunes)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.2,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return model.Suggestion{}, fmt.Errorf("suggestion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.Suggestion{}, errors.New("suggestion response had no choices")
	}

	return parse(resp.Choices[0].Message.Content)
}

func parse(raw string) (model.Suggestion, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var s model.Suggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &s); err != nil {
		return model.Suggestion{}, fmt.Errorf("decode suggestion: %w", err)
	}

	s.Category = strings.TrimSpace(s.Category)
	if s.Category == "" {
		return model.Suggestion{}, errors.New("suggestion has no category")
	}

	tags := make([]string, 0, len(s.Tags))
	seen := map[string]struct{}{}
	for _, tag := range s.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	s.Tags = tags

	return s, nil
}

func clip(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
