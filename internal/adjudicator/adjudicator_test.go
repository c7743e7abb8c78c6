package adjudicator

import (
	"context"
	"testing"
	"time"

	"github.com/snitchlab/snitchbot/internal/adapters/llm"
	"github.com/snitchlab/snitchbot/internal/db"
)

type cannedLLM struct {
	content string
	err     error
}

func (c *cannedLLM) ChatCompletion(_ context.Context, _ []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error) {
	if c.err != nil {
		return llm.ChatCompletionResponse{}, c.err
	}
	return llm.ChatCompletionResponse{
		Choices: []llm.ChatCompletionChoice{{Message: llm.ChatCompletionMessage{Content: c.content}}},
	}, nil
}

func someEvents() []db.LogEvent {
	return []db.LogEvent{
		{UserID: 1, Username: "vasya", Text: "опять всё плохо", SentAt: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)},
	}
}

func TestClassifyDecodesVerdict(t *testing.T) {
	t.Parallel()

	client := New(&cannedLLM{content: `{
		"offenders": [{"user_id": 1, "username": "vasya", "category": "whining", "points": 10, "reason": "ныл"}],
		"new_agreements": [{"text": "бросить ныть", "users": [1], "type": "promise"}]
	}`})

	verdict, err := client.Classify(context.Background(), someEvents(), nil, "2026-08-28")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if verdict == nil {
		t.Fatal("expected verdict, got nil")
	}
	if len(verdict.Offenders) != 1 || verdict.Offenders[0].Points != 10 {
		t.Fatalf("unexpected offenders: %+v", verdict.Offenders)
	}
	if len(verdict.NewAgreements) != 1 || verdict.NewAgreements[0].Text != "бросить ныть" {
		t.Fatalf("unexpected agreements: %+v", verdict.NewAgreements)
	}
}

func TestClassifyNoneMeansApplyNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"bare none", "none"},
		{"upper none", "NONE"},
		{"empty", ""},
		{"null", "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := New(&cannedLLM{content: tt.content})
			verdict, err := client.Classify(context.Background(), someEvents(), nil, "2026-08-28")
			if err != nil {
				t.Fatalf("none must not be an error, got %v", err)
			}
			if verdict != nil {
				t.Fatalf("expected nil verdict, got %+v", verdict)
			}
		})
	}
}

func TestClassifyStripsCodeFence(t *testing.T) {
	t.Parallel()

	client := New(&cannedLLM{content: "```json\n{\"offenders\": []}\n```"})
	verdict, err := client.Classify(context.Background(), someEvents(), nil, "2026-08-28")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if verdict == nil || len(verdict.Offenders) != 0 {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
}

func TestClassifyGarbageIsError(t *testing.T) {
	t.Parallel()

	client := New(&cannedLLM{content: "сегодня без вердикта, сорян"})
	if _, err := client.Classify(context.Background(), someEvents(), nil, "2026-08-28"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestJudgeReport(t *testing.T) {
	t.Parallel()

	client := New(&cannedLLM{content: `{"accepted": false, "reason": "донос высосан из пальца"}`})
	verdict, err := client.JudgeReport(context.Background(), someEvents(), someEvents()[0])
	if err != nil {
		t.Fatalf("judge report: %v", err)
	}
	if verdict.Accepted {
		t.Fatal("expected rejection")
	}
}
