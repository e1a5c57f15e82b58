package chat

import (
	"testing"
)

func TestChatMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     ChatMessage
		wantErr bool
	}{
		{"user message", User("Raise the grain tax"), false},
		{"system message", System("You are an advisor."), false},
		{"assistant message", ChatMessage{Role: ChatRoleAgent, Content: "{}"}, false},
		{"empty content", User("   "), true},
		{"unknown role", ChatMessage{Role: "narrator", Content: "hi"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	system, rest := Split([]ChatMessage{
		System("one"),
		User("hello"),
		System("two"),
	})
	if system != "one\n\ntwo" {
		t.Errorf("unexpected system prompt %q", system)
	}
	if len(rest) != 1 || rest[0].Content != "hello" {
		t.Errorf("unexpected remaining messages %+v", rest)
	}
}
