package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"

	"github.com/jwebster45206/dilemma-engine/internal/observability"
	"github.com/jwebster45206/dilemma-engine/pkg/chat"
)

// GeminiService implements the text half of LLMService on Gemini. Images and
// speech return ErrUnsupported.
type GeminiService struct {
	client *genai.Client
	models Models
	tracer trace.Tracer
	logger *slog.Logger
}

// NewGeminiService creates a Gemini client. Call Close when done.
func NewGeminiService(ctx context.Context, apiKey string, models Models, tracer trace.Tracer, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{
		client: client,
		models: Models{Text: models.Text, Light: models.Light},
		tracer: tracer,
		logger: logger,
	}, nil
}

func (s *GeminiService) Name() string   { return "gemini" }
func (s *GeminiService) Models() Models { return s.models }

func (s *GeminiService) Close() error {
	return s.client.Close()
}

func (s *GeminiService) Ping(ctx context.Context) error {
	if _, err := s.client.GenerativeModel(s.models.Text).Info(ctx); err != nil {
		return fmt.Errorf("gemini model lookup failed: %w", err)
	}
	return nil
}

func (s *GeminiService) CompleteText(ctx context.Context, req TextRequest) (string, error) {
	return s.complete(ctx, "llm.complete_text", req, false)
}

func (s *GeminiService) CompleteJSON(ctx context.Context, req TextRequest) (string, error) {
	return s.complete(ctx, "llm.complete_json", req, true)
}

func (s *GeminiService) complete(ctx context.Context, spanName string, req TextRequest, jsonMode bool) (string, error) {
	name := req.model(s.models)
	ctx, span := s.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.GenAIAttributes("chat", s.Name(), name, 0, 0)...),
	)
	defer span.End()

	system, history, last := toGeminiContents(req.Messages)
	if last == "" {
		return "", fmt.Errorf("gemini completion: no user message")
	}

	model := s.client.GenerativeModel(name)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if jsonMode {
		model.ResponseMIMEType = "application/json"
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature != nil {
		model.SetTemperature(float32(*req.Temperature))
	}

	cs := model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		s.logger.Error("Gemini completion failed", "model", name, "error", err)
		return "", fmt.Errorf("gemini completion: %w", err)
	}

	if resp.UsageMetadata != nil {
		span.SetAttributes(
			attribute.Int("gen_ai.usage.input_tokens", int(resp.UsageMetadata.PromptTokenCount)),
			attribute.Int("gen_ai.usage.output_tokens", int(resp.UsageMetadata.CandidatesTokenCount)),
		)
	}

	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func (s *GeminiService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return nil, fmt.Errorf("gemini image generation: %w", ErrUnsupported)
}

func (s *GeminiService) Speak(ctx context.Context, req SpeechRequest) (*Audio, error) {
	return nil, fmt.Errorf("gemini speech: %w", ErrUnsupported)
}

// toGeminiContents splits messages into the system instruction, the prior
// turns, and the final user turn that is sent.
func toGeminiContents(messages []chat.ChatMessage) (string, []*genai.Content, string) {
	system, turns := chat.Split(messages)
	if len(turns) == 0 {
		return system, nil, ""
	}

	lastIdx := len(turns) - 1
	if turns[lastIdx].Role != chat.ChatRoleUser {
		// Gemini expects the sent turn to be the user's.
		return system, convertTurns(turns), "Continue."
	}
	return system, convertTurns(turns[:lastIdx]), turns[lastIdx].Content
}

func convertTurns(turns []chat.ChatMessage) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := "user"
		if m.Role == chat.ChatRoleAgent {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return history
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}
	return b.String()
}
