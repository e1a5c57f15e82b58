package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwebster45206/dilemma-engine/pkg/chat"
	"github.com/jwebster45206/dilemma-engine/pkg/prompts"
)

var (
	// ErrUnsupported is returned when a provider cannot serve a capability.
	ErrUnsupported = errors.New("capability not supported by provider")

	// ErrEmptyReply is returned when the model produced no content.
	ErrEmptyReply = errors.New("model returned an empty reply")

	// ErrMalformedReply is returned when a JSON reply cannot be decoded.
	ErrMalformedReply = errors.New("model returned malformed JSON")
)

// Models names the model used for each capability.
type Models struct {
	Text  string `json:"text"`
	Light string `json:"light"`
	Image string `json:"image"`
	TTS   string `json:"tts"`
}

// TextRequest is one text completion.
type TextRequest struct {
	Messages []chat.ChatMessage

	// Light selects the cheaper model for short utility prompts.
	Light       bool
	MaxTokens   int
	Temperature *float64
}

// SpeechRequest is one text-to-speech call.
type SpeechRequest struct {
	Text   string
	Voice  string
	Format string
}

// Audio is synthesized speech.
type Audio struct {
	Data        []byte
	ContentType string
}

// LLMService defines the interface for the model provider behind the API.
type LLMService interface {
	// Name returns the provider name, e.g. "openai".
	Name() string

	// Models returns the configured model names.
	Models() Models

	// Ping checks that the provider is reachable with the configured key.
	Ping(ctx context.Context) error

	// CompleteText returns the reply as plain text.
	CompleteText(ctx context.Context, req TextRequest) (string, error)

	// CompleteJSON asks for a JSON object and returns the raw reply.
	CompleteJSON(ctx context.Context, req TextRequest) (string, error)

	// GenerateImage returns PNG bytes for the prompt.
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)

	// Speak synthesizes speech.
	Speak(ctx context.Context, req SpeechRequest) (*Audio, error)
}

// CompleteJSONInto runs a JSON completion and decodes it into out.
// Callers substitute their own fallback when this returns an error.
func CompleteJSONInto(ctx context.Context, svc LLMService, req TextRequest, out any) error {
	raw, err := svc.CompleteJSON(ctx, req)
	if err != nil {
		return err
	}
	body := prompts.StripCodeFence(raw)
	if body == "" {
		return ErrEmptyReply
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return nil
}

func (r TextRequest) model(m Models) string {
	if r.Light && m.Light != "" {
		return m.Light
	}
	return m.Text
}
