package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"aris/internal/domain"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("GEMINI_API_KEY is not configured")

const DefaultModel = "gemini-1.5-flash"

type Config struct {
	APIKey string
	Model  string
}

// ChatModel implements ports.ChatModel with Gemini content generation.
type ChatModel struct {
	client    *genai.Client
	modelName string
}

func NewChatModel(ctx context.Context, cfg Config) (*ChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &ChatModel{client: client, modelName: cfg.Model}, nil
}

// Chat sends prompt and, when present, the image bytes inline.
func (m *ChatModel) Chat(ctx context.Context, prompt string, image *domain.Image) (string, error) {
	model := m.client.GenerativeModel(m.modelName)

	res, err := model.GenerateContent(ctx, requestParts(prompt, image)...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return responseText(res)
}

func (m *ChatModel) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

func requestParts(prompt string, image *domain.Image) []genai.Part {
	parts := []genai.Part{genai.Text(prompt)}
	if image != nil && len(image.Data) > 0 {
		mime := image.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, genai.Blob{MIMEType: mime, Data: image.Data})
	}
	return parts
}

// responseText joins the text parts of the first candidate.
func responseText(res *genai.GenerateContentResponse) (string, error) {
	if res == nil || len(res.Candidates) == 0 {
		return "", errors.New("no response from Gemini API")
	}
	candidate := res.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("no content in Gemini response")
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("unexpected response format from Gemini API")
	}
	return text, nil
}
