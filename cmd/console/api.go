package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jwebster45206/dilemma-engine/internal/handlers"
	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
	"github.com/jwebster45206/dilemma-engine/pkg/prompts"
	"github.com/jwebster45206/dilemma-engine/pkg/roles"
	"github.com/jwebster45206/dilemma-engine/pkg/run"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// apiClient talks to the content and leaderboard endpoints. Run state is
// kept locally in a run.Store, the same way the web client does it.
type apiClient struct {
	baseURL string
	client  *http.Client
	tone    string
	lang    string
}

func newAPIClient(cfg *ConsoleConfig, client *http.Client) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		client:  client,
		tone:    cfg.Tone,
		lang:    cfg.Language,
	}
}

func (c *apiClient) testConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s %s failed: %s", method, path, errorResp.Error)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}

func (c *apiClient) validateRole(ctx context.Context, role string) (*handlers.ValidateRoleResponse, error) {
	var out handlers.ValidateRoleResponse
	if err := c.do(ctx, http.MethodPost, "/api/validate-role", handlers.ValidateRoleRequest{Text: role}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) analyzeRole(ctx context.Context, role string) (*handlers.AnalyzeRoleResponse, error) {
	var out handlers.AnalyzeRoleResponse
	if err := c.do(ctx, http.MethodPost, "/api/analyze-role", handlers.AnalyzeRoleRequest{Role: role}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) suggestNames(ctx context.Context, role string) (*roles.NameSuggestions, error) {
	var out roles.NameSuggestions
	if err := c.do(ctx, http.MethodPost, "/api/name-suggestions", handlers.RoleRequest{Role: role}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) intro(ctx context.Context, role, gender string) (string, error) {
	var out handlers.IntroResponse
	if err := c.do(ctx, http.MethodPost, "/api/intro-paragraph", handlers.IntroRequest{Role: role, Gender: gender}, &out); err != nil {
		return "", err
	}
	return out.Paragraph, nil
}

// dilemma requests the content for s.Day. The run travels inline because the
// console never stores runs on the server.
func (c *apiClient) dilemma(ctx context.Context, s run.GameRunState, previousChoice string) (*prompts.DilemmaReply, error) {
	var out prompts.DilemmaReply
	req := handlers.DilemmaRequest{
		Run:            &s,
		Tone:           c.tone,
		Language:       c.lang,
		PreviousChoice: previousChoice,
	}
	if err := c.do(ctx, http.MethodPost, "/api/dilemma", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) highscores(ctx context.Context, limit int) ([]highscore.Entry, error) {
	var out handlers.HighscoresResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/highscores?limit=%d", limit), nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}
