package handlers

import (
	"bytes"
	"net/http"
	"testing"
)

func TestShareURL(t *testing.T) {
	tests := []struct {
		base, gameID, expected string
	}{
		{"https://dilemma.example", "abc", "https://dilemma.example/share/abc"},
		{"https://dilemma.example/", "abc", "https://dilemma.example/share/abc"},
		{"http://localhost:8080", "a b/c", "http://localhost:8080/share/a%20b%2Fc"},
	}
	for _, tt := range tests {
		if got := ShareURL(tt.base, tt.gameID); got != tt.expected {
			t.Errorf("ShareURL(%q, %q) = %q, want %q", tt.base, tt.gameID, got, tt.expected)
		}
	}
}

func TestShareHandler(t *testing.T) {
	handler := NewShareHandler("https://dilemma.example", testLogger())

	rr := serve(handler, http.MethodGet, "/api/share/qr?gameId=game-1&size=5000", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Response body: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("Expected a PNG body")
	}

	tests := []struct {
		name           string
		method         string
		target         string
		expectedStatus int
	}{
		{"missing game ID", http.MethodGet, "/api/share/qr", http.StatusBadRequest},
		{"bad size", http.MethodGet, "/api/share/qr?gameId=g&size=big", http.StatusBadRequest},
		{"wrong method", http.MethodPost, "/api/share/qr?gameId=g", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := serve(handler, tt.method, tt.target, ""); rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
		})
	}
}
