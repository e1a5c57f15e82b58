package highscore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SubmitRequest is the body of POST /api/highscores/submit.
type SubmitRequest struct {
	UserID    string `json:"userId"`
	GameID    string `json:"gameId"`
	SessionID string `json:"sessionId,omitempty"`
	Entry
}

// SubmitResponse is the reply of the highscore service.
type SubmitResponse struct {
	Success        bool `json:"success"`
	GlobalRank     int  `json:"globalRank"`
	UserRank       int  `json:"userRank"`
	IsPersonalBest bool `json:"isPersonalBest"`
}

// Submitter hands a finished entry to a remote leaderboard.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)
}

// Client submits entries to the highscore endpoint over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL. A nil http client gets
// a default with a short timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Submit posts the entry and decodes the ranking reply.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/highscores/submit", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
			return nil, fmt.Errorf("highscore API returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("highscore submit failed: %s", errResp.Error)
	}

	var out SubmitResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse submit response: %w", err)
	}
	return &out, nil
}
