package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"logi-match/internal/llm"
)

func TestAskService_Ask(t *testing.T) {
	client := &llm.MockClient{Response: " Use a 5-ton wing body. ", ModelName: "gemini-2.0-flash"}
	svc := NewAskService(nil, client)

	answer, err := svc.Ask(context.Background(), " Which truck for pallets? ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if answer.Answer != "Use a 5-ton wing body." || answer.Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected answer: %+v", answer)
	}
	if answer.Timestamp.IsZero() {
		t.Fatalf("expected timestamp")
	}
	if len(client.Prompts) != 1 || !strings.Contains(client.Prompts[0], "Question: Which truck for pallets?") {
		t.Fatalf("unexpected prompt: %+v", client.Prompts)
	}
}

func TestAskService_Errors(t *testing.T) {
	svc := NewAskService(nil, &llm.MockClient{})
	if _, err := svc.Ask(context.Background(), "   "); !errors.Is(err, ErrQuestionEmpty) {
		t.Fatalf("expected ErrQuestionEmpty, got %v", err)
	}

	boom := errors.New("quota exceeded")
	svc = NewAskService(nil, &llm.MockClient{Err: boom})
	if _, err := svc.Ask(context.Background(), "q"); !errors.Is(err, boom) {
		t.Fatalf("expected llm error, got %v", err)
	}

	var nilSvc *AskService
	if _, err := nilSvc.Ask(context.Background(), "q"); !errors.Is(err, ErrAskServiceNotConfigured) {
		t.Fatalf("expected ErrAskServiceNotConfigured, got %v", err)
	}
}
