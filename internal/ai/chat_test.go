package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type fakeRuntime struct {
	got  GenerateRequest
	resp *GenerateResponse
	err  error
}

func (f *fakeRuntime) Generate(_ context.Context, req GenerateRequest) (*GenerateResponse, error) {
	f.got = req
	return f.resp, f.err
}

func reply(s string) *GenerateResponse {
	return &GenerateResponse{Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: s}}}}
}

func TestChatAssemblesMessagesInOrder(t *testing.T) {
	rt := &fakeRuntime{resp: reply("  answer with spaces \n")}
	c := NewChatClient(rt, "", -1, 0)

	history := []Message{
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
	}
	out, err := c.Chat(context.Background(), "q2", ChatOptions{System: "sys", History: history})
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if out != "  answer with spaces \n" {
		t.Fatalf("content must be returned verbatim, got %q", out)
	}
	want := []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "q2"},
	}
	if len(rt.got.Messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(rt.got.Messages))
	}
	for i := range want {
		if rt.got.Messages[i] != want[i] {
			t.Fatalf("message %d: expected %+v, got %+v", i, want[i], rt.got.Messages[i])
		}
	}
	if rt.got.Model != DefaultModel {
		t.Fatalf("expected default model, got %q", rt.got.Model)
	}
	if rt.got.Temperature == nil || *rt.got.Temperature != 0.7 || rt.got.MaxTokens != 2048 {
		t.Fatalf("unexpected defaults: temp=%v max=%d", rt.got.Temperature, rt.got.MaxTokens)
	}
}

func TestChatSendsZeroTemperature(t *testing.T) {
	rt := &fakeRuntime{resp: reply("ok")}
	c := NewChatClient(rt, "m", 0, 0)
	if _, err := c.Chat(context.Background(), "hi", ChatOptions{}); err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if rt.got.Temperature == nil || *rt.got.Temperature != 0 {
		t.Fatalf("configured zero temperature must be sent, got %v", rt.got.Temperature)
	}
	b, err := json.Marshal(rt.got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"temperature":0`) {
		t.Fatalf("temperature dropped from payload: %s", b)
	}
}

func TestChatOmitsEmptySystemAndHonorsOverrides(t *testing.T) {
	rt := &fakeRuntime{resp: reply("{}")}
	c := NewChatClient(rt, "llama-3.1-8b-instant", 0.5, 100)
	if _, err := c.Chat(context.Background(), "hi", ChatOptions{Temperature: 0.3, MaxTokens: 500}); err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if len(rt.got.Messages) != 1 || rt.got.Messages[0].Role != RoleUser {
		t.Fatalf("expected a single user message, got %+v", rt.got.Messages)
	}
	if rt.got.Temperature == nil || *rt.got.Temperature != 0.3 || rt.got.MaxTokens != 500 {
		t.Fatalf("overrides not applied: temp=%v max=%d", rt.got.Temperature, rt.got.MaxTokens)
	}
	if rt.got.Model != "llama-3.1-8b-instant" {
		t.Fatalf("unexpected model %q", rt.got.Model)
	}
}

func TestChatWrapsErrors(t *testing.T) {
	cause := &AuthError{APIError: &APIError{StatusCode: 401}}
	c := NewChatClient(&fakeRuntime{err: cause}, "m", 0, 0)
	_, err := c.Chat(context.Background(), "hi", ChatOptions{})
	if err == nil || !strings.HasPrefix(err.Error(), "chat completion: ") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError in chain, got %T", err)
	}

	c = NewChatClient(&fakeRuntime{resp: &GenerateResponse{}}, "m", 0, 0)
	_, err = c.Chat(context.Background(), "hi", ChatOptions{})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestNewRuntimeRegistry(t *testing.T) {
	for _, p := range []string{ProviderGroq, ProviderOpenRouter, ProviderOllama} {
		rt, err := NewRuntime(p, RuntimeConfig{APIKey: "k"})
		if err != nil || rt == nil {
			t.Fatalf("NewRuntime(%q): %v", p, err)
		}
	}
	if _, err := NewRuntime("nope", RuntimeConfig{}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	if RequiresAPIKey(ProviderOllama) || !RequiresAPIKey(ProviderGroq) {
		t.Fatalf("unexpected RequiresAPIKey results")
	}
	if c, ok := mustClient(t, ProviderOpenRouter).(*Client); !ok || c.baseURL != OpenRouterBaseURL {
		t.Fatalf("openrouter runtime should target %s", OpenRouterBaseURL)
	}
	if c, ok := mustClient(t, ProviderGroq).(*Client); !ok || c.baseURL != GroqBaseURL {
		t.Fatalf("groq runtime should target %s", GroqBaseURL)
	}
}

func mustClient(t *testing.T, provider string) Runtime {
	t.Helper()
	rt, err := NewRuntime(provider, RuntimeConfig{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	return rt
}

func TestCatalogLookup(t *testing.T) {
	mi, ok := LookupModel(DefaultModel)
	if !ok || mi.Provider != ProviderGroq || mi.ContextTokens <= 0 {
		t.Fatalf("default model missing from catalog: %+v", mi)
	}
	cat := Catalog()
	for i := 1; i < len(cat); i++ {
		a, b := cat[i-1], cat[i]
		if a.Provider > b.Provider || (a.Provider == b.Provider && a.Name > b.Name) {
			t.Fatalf("catalog not sorted at %d: %s/%s then %s/%s", i, a.Provider, a.Name, b.Provider, b.Name)
		}
	}
}
