package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jwebster45206/dilemma-engine/pkg/chat"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	models := Models{Text: "gpt-4o", Light: "gpt-4o-mini", Image: "dall-e-3", TTS: "tts-1"}
	return NewOpenAIService("sk-test", models, "nova", noop.NewTracerProvider().Tracer("test"), logger,
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
}

func TestOpenAIService_CompleteJSON(t *testing.T) {
	var got map[string]any
	svc := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "cmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"valid\":true}"}}],
			"usage": {"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10}
		}`)
	})

	out, err := svc.CompleteJSON(context.Background(), TextRequest{
		Messages:  []chat.ChatMessage{chat.System("judge"), chat.User("a mayor")},
		Light:     true,
		MaxTokens: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"valid":true}`, out)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestOpenAIService_CompleteText_UpstreamError(t *testing.T) {
	svc := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":{"message":"bad gateway","type":"server_error"}}`)
	})

	_, err := svc.CompleteText(context.Background(), TextRequest{Messages: []chat.ChatMessage{chat.User("hi")}})
	assert.Error(t, err)
}

func TestOpenAIService_GenerateImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	svc := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"created": 1,
			"data":    []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
		})
	})

	img, err := svc.GenerateImage(context.Background(), "portrait of a consul")
	require.NoError(t, err)
	assert.Equal(t, png, img)
}

func TestOpenAIService_Speak(t *testing.T) {
	var body map[string]any
	svc := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3audio"))
	})

	audio, err := svc.Speak(context.Background(), SpeechRequest{Text: "Citizens!", Voice: "robot", Format: "wav"})
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3audio"), audio.Data)
	assert.Equal(t, "audio/wav", audio.ContentType)

	// Unknown voices fall back to the configured one.
	assert.Equal(t, "nova", body["voice"])
	assert.Equal(t, "wav", body["response_format"])
}
