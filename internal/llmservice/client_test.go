package llmservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"ragbot/internal/config"
)

type stubModel struct {
	reply    string
	err      error
	noChoice bool
	prompts  []string
}

func (s *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				s.prompts = append(s.prompts, text.Text)
			}
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.noChoice {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: s.reply}}}, nil
}

func (s *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func TestGenerateReturnsFirstChoice(t *testing.T) {
	model := &stubModel{reply: "Forty-two."}
	client := NewClientWithModel(model, "stub")

	out, err := client.Generate(context.Background(), "What is the answer?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Forty-two." {
		t.Fatalf("unexpected output %q", out)
	}
	if len(model.prompts) != 1 || !strings.Contains(model.prompts[0], "What is the answer?") {
		t.Fatalf("prompt not forwarded: %v", model.prompts)
	}
}

func TestGenerateErrors(t *testing.T) {
	upstream := errors.New("rate limited")
	if _, err := NewClientWithModel(&stubModel{err: upstream}, "stub").Generate(context.Background(), "q"); !errors.Is(err, upstream) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
	if _, err := NewClientWithModel(&stubModel{noChoice: true}, "stub").Generate(context.Background(), "q"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestNewClientUnknownProvider(t *testing.T) {
	if _, err := NewClient(&config.LLMConfig{Provider: "telepathy"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
