package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwebster45206/dilemma-engine/internal/observability"
	"github.com/jwebster45206/dilemma-engine/pkg/chat"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	DefaultAnthropicTemperature = 0.7
	DefaultAnthropicMaxTokens   = 2048
)

// AnthropicService implements the text half of LLMService on the Anthropic
// Messages API. Images and speech return ErrUnsupported.
type AnthropicService struct {
	apiKey     string
	baseURL    string
	models     Models
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *slog.Logger
}

type AnthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []chat.ChatMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
}

type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicChatResponse struct {
	ID         string                  `json:"id"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicService(apiKey string, models Models, tracer trace.Tracer, logger *slog.Logger) *AnthropicService {
	return &AnthropicService{
		apiKey:  apiKey,
		baseURL: anthropicBaseURL,
		models:  Models{Text: models.Text, Light: models.Light},
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		tracer: tracer,
		logger: logger,
	}
}

func (a *AnthropicService) Name() string   { return "anthropic" }
func (a *AnthropicService) Models() Models { return a.models }

// Ping looks up the configured text model.
func (a *AnthropicService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models/"+a.models.Text, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	a.setHeaders(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic ping: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("anthropic ping: status %d", resp.StatusCode)
	}
	return nil
}

func (a *AnthropicService) CompleteText(ctx context.Context, req TextRequest) (string, error) {
	return a.chatCompletion(ctx, "llm.complete_text", req, false)
}

// CompleteJSON has no native JSON mode here, so the reply is primed with an
// opening brace and the brace is put back on the result.
func (a *AnthropicService) CompleteJSON(ctx context.Context, req TextRequest) (string, error) {
	return a.chatCompletion(ctx, "llm.complete_json", req, true)
}

func (a *AnthropicService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return nil, fmt.Errorf("anthropic image generation: %w", ErrUnsupported)
}

func (a *AnthropicService) Speak(ctx context.Context, req SpeechRequest) (*Audio, error) {
	return nil, fmt.Errorf("anthropic speech: %w", ErrUnsupported)
}

func (a *AnthropicService) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")
}

func (a *AnthropicService) chatCompletion(ctx context.Context, spanName string, req TextRequest, jsonMode bool) (string, error) {
	modelName := req.model(a.models)
	ctx, span := a.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.GenAIAttributes("chat", a.Name(), modelName, 0, 0)...),
	)
	defer span.End()

	systemPrompt, conversation := chat.Split(req.Messages)
	if jsonMode {
		conversation = append(conversation, chat.ChatMessage{Role: chat.ChatRoleAgent, Content: "{"})
	}

	temperature := DefaultAnthropicTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := DefaultAnthropicMaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	anthropicReq := AnthropicChatRequest{
		Model:       modelName,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		Messages:    conversation,
		System:      systemPrompt,
	}

	reqBody, err := json.Marshal(anthropicReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	a.setHeaders(httpReq)

	fail := func(err error) (string, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		a.logger.Error("Anthropic completion failed", "model", modelName, "error", err)
		return "", err
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fail(fmt.Errorf("failed to make request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("failed to read response body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var anthropicResp AnthropicChatResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return fail(fmt.Errorf("failed to parse response: %w", err))
	}
	if anthropicResp.Error != nil {
		return fail(fmt.Errorf("API error: %s", anthropicResp.Error.Message))
	}

	span.SetAttributes(
		attribute.Int("gen_ai.usage.input_tokens", anthropicResp.Usage.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", anthropicResp.Usage.OutputTokens),
	)

	var b strings.Builder
	for _, content := range anthropicResp.Content {
		if content.Type == "text" {
			b.WriteString(content.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyReply
	}
	if jsonMode && !strings.HasPrefix(text, "{") {
		text = "{" + text
	}
	return text, nil
}
