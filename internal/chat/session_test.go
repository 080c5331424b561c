package chat

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datalens-cli/internal/ai"
)

type call struct {
	user string
	opts ai.ChatOptions
}

type fakeCompleter struct {
	mu      sync.Mutex
	calls   []call
	answers []string
	err     error
	model   string
}

func (f *fakeCompleter) Chat(_ context.Context, user string, opts ai.ChatOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opts.History = append([]ai.Message(nil), opts.History...)
	f.calls = append(f.calls, call{user: user, opts: opts})
	if f.err != nil {
		return "", f.err
	}
	if len(f.answers) == 0 {
		return "ok", nil
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a, nil
}

func (f *fakeCompleter) Model() string { return f.model }

const summary = "=== DATASET SUMMARY ===\nTotal Rows: 3"

func TestSystemPromptEmbedsSummary(t *testing.T) {
	s := NewSession(&fakeCompleter{}, summary, nil)
	p := s.SystemPrompt()
	assert.True(t, strings.HasPrefix(p, "You are a helpful data analytics assistant."))
	assert.True(t, strings.HasSuffix(p, "Here is the information about the current dataset:\n\n"+summary+"\n"))
	assert.Contains(t, p, "5. Be concise but thorough")
}

func TestAskRecordsHistory(t *testing.T) {
	fc := &fakeCompleter{answers: []string{"first", "second"}}
	s := NewSession(fc, summary, nil)

	a, err := s.Ask(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, "first", a)
	_, err = s.Ask(context.Background(), "q2")
	require.NoError(t, err)

	require.Len(t, fc.calls, 2)
	assert.Empty(t, fc.calls[0].opts.History)
	assert.Equal(t, []ai.Message{
		{Role: ai.RoleUser, Content: "q1"},
		{Role: ai.RoleAssistant, Content: "first"},
	}, fc.calls[1].opts.History)
	assert.Equal(t, s.SystemPrompt(), fc.calls[1].opts.System)
	assert.Len(t, s.History(), 4)
}

func TestAskWithoutHistory(t *testing.T) {
	fc := &fakeCompleter{}
	s := NewSession(fc, summary, nil)
	_, err := s.Ask(context.Background(), "q1")
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "q2", WithoutHistory())
	require.NoError(t, err)

	assert.Empty(t, fc.calls[1].opts.History)
	assert.Len(t, s.History(), 4, "the exchange is still recorded")
}

func TestAskFailureLeavesHistoryUnchanged(t *testing.T) {
	fc := &fakeCompleter{}
	s := NewSession(fc, summary, nil)
	_, err := s.Ask(context.Background(), "q1")
	require.NoError(t, err)

	fc.err = errors.New("chat completion: boom")
	_, err = s.Ask(context.Background(), "q2")
	require.Error(t, err)
	assert.Len(t, s.History(), 2)
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	fc := &fakeCompleter{}
	s := NewSession(fc, summary, nil)
	_, err := s.Ask(context.Background(), "  \n\t")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Empty(t, fc.calls)
}

func TestAskThenClear(t *testing.T) {
	s := NewSession(&fakeCompleter{}, summary, nil)
	before := s.SystemPrompt()
	_, err := s.Ask(context.Background(), "q")
	require.NoError(t, err)

	s.ClearHistory()
	assert.Empty(t, s.History())
	assert.Equal(t, summary, s.SummaryText())
	assert.Equal(t, before, s.SystemPrompt())
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := NewSession(&fakeCompleter{}, summary, nil)
	_, err := s.Ask(context.Background(), "q")
	require.NoError(t, err)
	h := s.History()
	h[0].Content = "changed"
	assert.Equal(t, "q", s.History()[0].Content)
}

func TestConcurrentAsksAreSerialized(t *testing.T) {
	s := NewSession(&fakeCompleter{}, summary, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Ask(context.Background(), "q")
		}()
	}
	wg.Wait()
	h := s.History()
	require.Len(t, h, 16)
	for i := 0; i < len(h); i += 2 {
		assert.Equal(t, ai.RoleUser, h[i].Role)
		assert.Equal(t, ai.RoleAssistant, h[i+1].Role)
	}
}

func TestLargePromptLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	// phi3:mini-4k-instruct has a 4096-token window.
	s := NewSession(&fakeCompleter{model: "phi3:mini-4k-instruct"}, strings.Repeat("x", 20000), logger)
	_, err := s.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "prompt may exceed model context window")
}
