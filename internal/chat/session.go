// Package chat keeps a question-and-answer conversation about one dataset.
package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/KaramelBytes/datalens-cli/internal/ai"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
)

const systemPromptTemplate = `You are a helpful data analytics assistant. You have access to information about a dataset that the user has uploaded. Use this information to answer their questions accurately and helpfully.

When answering questions:
1. Base your answers on the actual data provided in the summary
2. If you're not sure about something, say so
3. Provide specific numbers and statistics when relevant
4. Suggest additional analyses the user might find useful
5. Be concise but thorough

Here is the information about the current dataset:

`

// ErrEmptyQuestion is returned by Ask for blank input.
var ErrEmptyQuestion = errors.New("question cannot be empty")

// Completer is the slice of ai.ChatClient a Session needs.
type Completer interface {
	Chat(ctx context.Context, userMessage string, opts ai.ChatOptions) (string, error)
}

// Session is safe for concurrent use; Ask calls are serialized.
type Session struct {
	mu      sync.Mutex
	c       Completer
	summary string
	system  string
	history []ai.Message
	logger  *slog.Logger

	// contextTokens is the model window used for the size warning; 0 disables it.
	contextTokens int
}

// NewSession binds c to a dataset summary. A nil logger discards output.
func NewSession(c Completer, summaryText string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{
		c:       c,
		summary: summaryText,
		system:  systemPromptTemplate + summaryText + "\n",
		logger:  logger,
	}
	if m, ok := c.(interface{ Model() string }); ok {
		if mi, found := ai.LookupModel(m.Model()); found {
			s.contextTokens = mi.ContextTokens
		}
	}
	return s
}

type askConfig struct {
	withHistory bool
}

// AskOption tweaks a single Ask call.
type AskOption func(*askConfig)

// WithoutHistory sends only the system prompt and the question.
func WithoutHistory() AskOption {
	return func(c *askConfig) { c.withHistory = false }
}

// Ask sends question with the dataset context and, on success, records the
// exchange. A failed call leaves the history unchanged.
func (s *Session) Ask(ctx context.Context, question string, opts ...AskOption) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}
	cfg := askConfig{withHistory: true}
	for _, o := range opts {
		o(&cfg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var history []ai.Message
	if cfg.withHistory {
		history = s.history
	}
	s.warnIfLarge(question, history)

	answer, err := s.c.Chat(ctx, question, ai.ChatOptions{System: s.system, History: history})
	if err != nil {
		return "", err
	}
	s.history = append(s.history,
		ai.Message{Role: ai.RoleUser, Content: question},
		ai.Message{Role: ai.RoleAssistant, Content: answer},
	)
	return answer, nil
}

func (s *Session) warnIfLarge(question string, history []ai.Message) {
	if s.contextTokens <= 0 {
		return
	}
	var hist strings.Builder
	for _, m := range history {
		hist.WriteString(m.Content)
	}
	parts := utils.TokenBreakdown(map[string]string{
		"system":   s.system,
		"history":  hist.String(),
		"question": question,
	})
	n := parts["system"] + parts["history"] + parts["question"]
	if n > s.contextTokens {
		s.logger.Warn("prompt may exceed model context window",
			"estimated_tokens", n, "context_tokens", s.contextTokens,
			"system_tokens", parts["system"], "history_tokens", parts["history"])
	}
}

// ClearHistory drops the conversation. The dataset summary is kept.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// History returns a copy of the conversation so far.
func (s *Session) History() []ai.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ai.Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) SystemPrompt() string { return s.system }

func (s *Session) SummaryText() string { return s.summary }
