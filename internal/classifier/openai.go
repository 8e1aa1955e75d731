package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"intake-service/internal/prompt"
)

// Well-known OpenAI-compatible endpoints.
const (
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAICompat is a Generator speaking the OpenAI chat-completions dialect,
// which Groq and OpenRouter both serve. These endpoints have no response
// schema enforcement, so the output contract rests on json_object mode plus
// downstream validation.
type OpenAICompat struct {
	apiKey     string
	baseURL    string
	modelName  string
	httpClient *http.Client
	logger     *zap.Logger
}

// OpenAICompatConfig for an OpenAI-compatible provider.
type OpenAICompatConfig struct {
	APIKey    string
	BaseURL   string // e.g. GroqBaseURL
	ModelName string
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Stream         bool          `json:"stream"`
	Temperature    float32       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewOpenAICompat creates an OpenAI-compatible generator.
func NewOpenAICompat(cfg OpenAICompatConfig, logger *zap.Logger) (*OpenAICompat, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}

	logger.Info("OpenAI-compatible provider initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.ModelName))

	return &OpenAICompat{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		modelName:  cfg.ModelName,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

// Close releases nothing; the shared transport is managed by net/http.
func (c *OpenAICompat) Close() error { return nil }

// Generate performs one chat-completions call and returns the raw content.
func (c *OpenAICompat) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	reqBody := chatRequest{
		Model: c.modelName,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.UserContent()},
		},
		Stream:         false,
		Temperature:    0,
		ResponseFormat: &respFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Kind: KindInvalidRequest, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &ProviderError{Kind: KindInvalidRequest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ProviderError{Kind: kindOfTransport(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &ProviderError{Kind: KindTransport, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{
			Kind: kindOfStatus(resp.StatusCode),
			Err:  fmt.Errorf("provider returned status %d: %s", resp.StatusCode, body),
		}
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return "", &ProviderError{Kind: KindSchemaRejected, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return "", &ProviderError{Kind: KindEmptyResponse, Err: fmt.Errorf("empty completion")}
	}

	c.logger.Debug("completion received",
		zap.String("model", c.modelName),
		zap.Int("total_tokens", chat.Usage.TotalTokens),
		zap.String("finish_reason", chat.Choices[0].FinishReason))

	return chat.Choices[0].Message.Content, nil
}

func kindOfStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindInvalidRequest
	}
	return KindUnknown
}

func kindOfTransport(ctx context.Context, err error) ErrorKind {
	if ctx.Err() == context.DeadlineExceeded {
		return KindTimeout
	}
	if k := KindOf(err); k != KindUnknown {
		return k
	}
	return KindTransport
}
