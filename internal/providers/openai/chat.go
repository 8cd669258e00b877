package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"aris/internal/domain"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("OPENAI_API_KEY is not configured")

const DefaultModel = "gpt-4o"

// Config controls the chat completion client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// HTTPClient overrides the transport, e.g. for a SOCKS proxy.
	HTTPClient *http.Client
	MaxRetries int
}

// ChatModel implements ports.ChatModel with the chat completions API.
type ChatModel struct {
	client oai.Client
	model  string
}

func NewChatModel(cfg Config) (*ChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &ChatModel{
		client: oai.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

// Chat sends prompt, with image as a data URL part when present, and returns
// the first choice's text.
func (m *ChatModel) Chat(ctx context.Context, prompt string, image *domain.Image) (string, error) {
	parts := []oai.ChatCompletionContentPartUnionParam{
		oai.TextContentPart(prompt),
	}
	if image != nil {
		parts = append(parts, oai.ImageContentPart(oai.ChatCompletionContentPartImageImageURLParam{
			URL: image.DataURL(),
		}))
	}

	resp, err := m.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(parts),
		},
		Model: oai.ChatModel(m.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty message content")
	}

	slog.Debug("chat completion received", "model", resp.Model, "chars", len(content))
	return content, nil
}
