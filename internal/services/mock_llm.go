package services

import (
	"context"
	"sync"
)

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	PingFunc          func(ctx context.Context) error
	CompleteTextFunc  func(ctx context.Context, req TextRequest) (string, error)
	CompleteJSONFunc  func(ctx context.Context, req TextRequest) (string, error)
	GenerateImageFunc func(ctx context.Context, prompt string) ([]byte, error)
	SpeakFunc         func(ctx context.Context, req SpeechRequest) (*Audio, error)

	// Track calls for testing
	CompleteTextCalls  []TextRequest
	CompleteJSONCalls  []TextRequest
	GenerateImageCalls []string
	SpeakCalls         []SpeechRequest

	mu sync.Mutex // protects all fields above
}

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{}
}

func (m *MockLLMAPI) Name() string { return "mock" }

func (m *MockLLMAPI) Models() Models {
	return Models{Text: "mock-text", Light: "mock-light", Image: "mock-image", TTS: "mock-tts"}
}

func (m *MockLLMAPI) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockLLMAPI) CompleteText(ctx context.Context, req TextRequest) (string, error) {
	m.mu.Lock()
	m.CompleteTextCalls = append(m.CompleteTextCalls, req)
	fn := m.CompleteTextFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return "Mock response", nil
}

func (m *MockLLMAPI) CompleteJSON(ctx context.Context, req TextRequest) (string, error) {
	m.mu.Lock()
	m.CompleteJSONCalls = append(m.CompleteJSONCalls, req)
	fn := m.CompleteJSONFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return "{}", nil
}

func (m *MockLLMAPI) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	m.mu.Lock()
	m.GenerateImageCalls = append(m.GenerateImageCalls, prompt)
	fn := m.GenerateImageFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	// PNG signature is enough for callers that only wrap the bytes.
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

func (m *MockLLMAPI) Speak(ctx context.Context, req SpeechRequest) (*Audio, error) {
	m.mu.Lock()
	m.SpeakCalls = append(m.SpeakCalls, req)
	fn := m.SpeakFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &Audio{Data: []byte("ID3"), ContentType: "audio/mpeg"}, nil
}

// SetJSONResponse makes every JSON completion return body.
func (m *MockLLMAPI) SetJSONResponse(body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteJSONFunc = func(ctx context.Context, req TextRequest) (string, error) {
		return body, nil
	}
}

// SetError makes every model call fail with err.
func (m *MockLLMAPI) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteTextFunc = func(ctx context.Context, req TextRequest) (string, error) { return "", err }
	m.CompleteJSONFunc = func(ctx context.Context, req TextRequest) (string, error) { return "", err }
	m.GenerateImageFunc = func(ctx context.Context, prompt string) ([]byte, error) { return nil, err }
	m.SpeakFunc = func(ctx context.Context, req SpeechRequest) (*Audio, error) { return nil, err }
}

// SetPingError makes Ping fail with err.
func (m *MockLLMAPI) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingFunc = func(ctx context.Context) error { return err }
}

// GetCalls returns copies of the recorded text and JSON requests.
func (m *MockLLMAPI) GetCalls() ([]TextRequest, []TextRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()

	text := make([]TextRequest, len(m.CompleteTextCalls))
	copy(text, m.CompleteTextCalls)
	js := make([]TextRequest, len(m.CompleteJSONCalls))
	copy(js, m.CompleteJSONCalls)
	return text, js
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteTextCalls = nil
	m.CompleteJSONCalls = nil
	m.GenerateImageCalls = nil
	m.SpeakCalls = nil
}
