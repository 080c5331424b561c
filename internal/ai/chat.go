package ai

import (
	"context"
	"errors"
	"fmt"
)

// Chat defaults.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// ErrEmptyResponse is returned when a provider answers with no choices.
var ErrEmptyResponse = errors.New("empty response: no choices returned")

// ChatOptions shapes one completion. Zero values fall back to the client
// defaults; a positive Temperature overrides the client's.
type ChatOptions struct {
	System      string
	History     []Message
	Temperature float64
	MaxTokens   int
}

// ChatClient binds a Runtime to a model and its sampling defaults.
type ChatClient struct {
	runtime     Runtime
	model       string
	temperature float64
	maxTokens   int
}

// NewChatClient wraps rt. An empty model selects DefaultModel. A negative
// temperature or non-positive maxTokens select the package defaults; a zero
// temperature is sent as is.
func NewChatClient(rt Runtime, model string, temperature float64, maxTokens int) *ChatClient {
	if model == "" {
		model = DefaultModel
	}
	if temperature < 0 {
		temperature = DefaultTemperature
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &ChatClient{runtime: rt, model: model, temperature: temperature, maxTokens: maxTokens}
}

// Model returns the model name requests are sent with.
func (c *ChatClient) Model() string { return c.model }

// Chat sends system, history and the user turn, in that order, and returns
// the first choice's content verbatim.
func (c *ChatClient) Chat(ctx context.Context, userMessage string, opts ChatOptions) (string, error) {
	msgs := make([]Message, 0, len(opts.History)+2)
	if opts.System != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: opts.System})
	}
	msgs = append(msgs, opts.History...)
	msgs = append(msgs, Message{Role: RoleUser, Content: userMessage})

	temp := c.temperature
	if opts.Temperature > 0 {
		temp = opts.Temperature
	}
	req := GenerateRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: &temp,
		MaxTokens:   c.maxTokens,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	resp, err := c.runtime.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: %w", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
