package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteJSONInto(t *testing.T) {
	type reply struct {
		Valid  bool   `json:"valid"`
		Reason string `json:"reason"`
	}

	tests := []struct {
		name    string
		body    string
		err     error
		want    reply
		wantErr error
	}{
		{name: "plain", body: `{"valid":true,"reason":"ok"}`, want: reply{Valid: true, Reason: "ok"}},
		{name: "fenced", body: "```json\n{\"valid\":false,\"reason\":\"no\"}\n```", want: reply{Reason: "no"}},
		{name: "malformed", body: `{"valid":`, wantErr: ErrMalformedReply},
		{name: "blank", body: "  ", wantErr: ErrEmptyReply},
		{name: "upstream", err: errors.New("502"), wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockLLMAPI()
			mock.CompleteJSONFunc = func(ctx context.Context, req TextRequest) (string, error) {
				return tt.body, tt.err
			}

			var got reply
			err := CompleteJSONInto(context.Background(), mock, TextRequest{}, &got)
			switch {
			case tt.err != nil:
				assert.ErrorIs(t, err, tt.err)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTextRequest_Model(t *testing.T) {
	m := Models{Text: "big", Light: "small"}
	assert.Equal(t, "big", TextRequest{}.model(m))
	assert.Equal(t, "small", TextRequest{Light: true}.model(m))
	assert.Equal(t, "big", TextRequest{Light: true}.model(Models{Text: "big"}))
}

func TestWithTimeout(t *testing.T) {
	mock := NewMockLLMAPI()
	mock.CompleteJSONFunc = func(ctx context.Context, req TextRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	svc := WithTimeout(mock, 10*time.Millisecond)
	_, err := svc.CompleteJSON(context.Background(), TextRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "mock", svc.Name())

	assert.Same(t, mock, WithTimeout(mock, 0))
}
