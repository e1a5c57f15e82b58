package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwebster45206/dilemma-engine/internal/observability"
	"github.com/jwebster45206/dilemma-engine/pkg/chat"
	"github.com/jwebster45206/dilemma-engine/pkg/roles"
)

const imageSize = "1024x1024"

// OpenAIService implements LLMService on the OpenAI API.
type OpenAIService struct {
	client *openai.Client
	models Models
	voice  string
	tracer trace.Tracer
	logger *slog.Logger
}

// NewOpenAIService creates the service. Extra request options are applied to
// every call, which lets tests point the client at a local server.
func NewOpenAIService(apiKey string, models Models, voice string, tracer trace.Tracer, logger *slog.Logger, opts ...option.RequestOption) *OpenAIService {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIService{
		client: &client,
		models: models,
		voice:  roles.NormalizeVoice(voice, roles.DefaultVoice),
		tracer: tracer,
		logger: logger,
	}
}

func (s *OpenAIService) Name() string   { return "openai" }
func (s *OpenAIService) Models() Models { return s.models }

// Ping looks up the text model, which fails fast on a bad key.
func (s *OpenAIService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.Get(ctx, s.models.Text); err != nil {
		return fmt.Errorf("openai model lookup failed: %w", err)
	}
	return nil
}

func (s *OpenAIService) CompleteText(ctx context.Context, req TextRequest) (string, error) {
	return s.complete(ctx, "llm.complete_text", req, false)
}

func (s *OpenAIService) CompleteJSON(ctx context.Context, req TextRequest) (string, error) {
	return s.complete(ctx, "llm.complete_json", req, true)
}

func (s *OpenAIService) complete(ctx context.Context, spanName string, req TextRequest, jsonMode bool) (string, error) {
	model := req.model(s.models)
	ctx, span := s.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.GenAIAttributes("chat", s.Name(), model, 0, 0)...),
	)
	defer span.End()

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if jsonMode {
		p := shared.NewResponseFormatJSONObjectParam()
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &p}
	}

	start := time.Now()
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		s.logger.Error("OpenAI completion failed", "model", model, "error", err)
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		span.RecordError(ErrEmptyReply)
		return "", ErrEmptyReply
	}

	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.String("gen_ai.response.finish_reason", resp.Choices[0].FinishReason),
	)
	s.logger.Debug("OpenAI completion finished",
		"model", model,
		"json", jsonMode,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
		"duration_ms", time.Since(start).Milliseconds())

	return resp.Choices[0].Message.Content, nil
}

func (s *OpenAIService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "llm.generate_image",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.GenAIAttributes("image_generation", s.Name(), s.models.Image, 0, 0)...),
	)
	defer span.End()

	resp, err := s.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(s.models.Image),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(imageSize),
		ResponseFormat: openai.ImageGenerateParamsResponseFormat("b64_json"),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "image generation failed")
		return nil, fmt.Errorf("openai image generation: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrEmptyReply
	}

	img, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return img, nil
}

func (s *OpenAIService) Speak(ctx context.Context, req SpeechRequest) (*Audio, error) {
	voice := roles.NormalizeVoice(req.Voice, s.voice)
	format, contentType := roles.NormalizeAudioFormat(req.Format)

	ctx, span := s.tracer.Start(ctx, "llm.speak",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.GenAIAttributes("speech", s.Name(), s.models.TTS, 0, 0)...),
		trace.WithAttributes(attribute.String("tts.voice", voice), attribute.Int("tts.chars", len(req.Text))),
	)
	defer span.End()

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          req.Text,
		Model:          openai.SpeechModel(s.models.TTS),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat(format),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "speech failed")
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai speech: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech body: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyReply
	}
	return &Audio{Data: data, ContentType: contentType}, nil
}

func toOpenAIMessages(messages []chat.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case chat.ChatRoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case chat.ChatRoleAgent:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
