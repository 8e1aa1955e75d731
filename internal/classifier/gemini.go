package classifier

import (
	"context"
	"fmt"
	"strings"

	"intake-service/internal/prompt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Generator produces raw model text for a prompt. The retrying Client wraps
// a Generator; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, p prompt.Prompt) (string, error)
}

// GeminiConfig configures the Gemini-backed Generator.
type GeminiConfig struct {
	APIKey    string
	ModelName string // Default: "gemini-2.0-flash-exp"
	Streaming bool   // Prefer the streaming call path
}

// Gemini invokes the Gemini API with the classification response schema
// enforced at the provider layer.
type Gemini struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	call      callStrategy
	logger    *zap.Logger
	modelName string
}

// NewGemini creates a Gemini generator.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash-exp"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompt.SystemInstruction)},
	}
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = responseSchema()
	model.GenerationConfig.Temperature = genai.Ptr[float32](0)
	model.GenerationConfig.MaxOutputTokens = genai.Ptr[int32](500)

	// Streaming is preferred when the capability flag allows it; the
	// single-shot path is always kept as the fallback.
	var call callStrategy = singleShotCall{}
	if cfg.Streaming {
		call = streamingCall{fallback: singleShotCall{}, logger: logger}
	}

	logger.Info("Gemini client initialized",
		zap.String("model", cfg.ModelName),
		zap.Bool("streaming", cfg.Streaming))

	return &Gemini{
		client:    client,
		model:     model,
		call:      call,
		logger:    logger,
		modelName: cfg.ModelName,
	}, nil
}

// Close closes the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Generate invokes the model and returns the raw response text. An empty or
// "{}" response is a provider failure, not a usable result.
func (g *Gemini) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	text, err := g.call.invoke(ctx, g.model, genai.Text(p.UserContent()))
	if err != nil {
		return "", err
	}
	if trimmed := strings.TrimSpace(text); trimmed == "" || trimmed == "{}" {
		return "", &ProviderError{Kind: KindEmptyResponse, Err: fmt.Errorf("model returned no content")}
	}
	return text, nil
}

// callStrategy abstracts the two invocation shapes so the choice is a
// capability flag, not a code fork on model name.
type callStrategy interface {
	invoke(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (string, error)
}

type singleShotCall struct{}

func (singleShotCall) invoke(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (string, error) {
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	return collectText(resp), nil
}

type streamingCall struct {
	fallback singleShotCall
	logger   *zap.Logger
}

func (s streamingCall) invoke(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (string, error) {
	iter := model.GenerateContentStream(ctx, parts...)

	var b strings.Builder
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			// The provider rejected streaming or dropped mid-stream; a
			// single-shot call may still serve the request.
			s.logger.Warn("streaming call failed, falling back to single-shot", zap.Error(err))
			return s.fallback.invoke(ctx, model, parts...)
		}
		b.WriteString(collectText(resp))
	}

	if b.Len() == 0 {
		s.logger.Warn("streaming call yielded no text, falling back to single-shot")
		return s.fallback.invoke(ctx, model, parts...)
	}
	return b.String(), nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
