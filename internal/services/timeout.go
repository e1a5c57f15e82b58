package services

import (
	"context"
	"time"
)

// timeoutService bounds every call of the wrapped provider.
type timeoutService struct {
	LLMService
	timeout time.Duration
}

// WithTimeout returns svc with each call limited to d. A non-positive d
// returns svc unchanged.
func WithTimeout(svc LLMService, d time.Duration) LLMService {
	if d <= 0 {
		return svc
	}
	return &timeoutService{LLMService: svc, timeout: d}
}

func (s *timeoutService) CompleteText(ctx context.Context, req TextRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.LLMService.CompleteText(ctx, req)
}

func (s *timeoutService) CompleteJSON(ctx context.Context, req TextRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.LLMService.CompleteJSON(ctx, req)
}

func (s *timeoutService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.LLMService.GenerateImage(ctx, prompt)
}

func (s *timeoutService) Speak(ctx context.Context, req SpeechRequest) (*Audio, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.LLMService.Speak(ctx, req)
}
