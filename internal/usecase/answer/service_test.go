package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/sai-aakash/ragserve/internal/domain"
	"github.com/sai-aakash/ragserve/internal/repository/history"
)

type mockEmbedder struct {
	embedding []float32
	err       error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.embedding}, nil
}

type mockRetriever struct {
	chunks []domain.ScoredChunk
	gotK   int
	err    error
}

func (m *mockRetriever) Search(_ context.Context, _ []float32, k int) ([]domain.ScoredChunk, error) {
	m.gotK = k
	if m.err != nil {
		return nil, m.err
	}
	return m.chunks, nil
}

type mockChat struct {
	answer    string
	gotPrompt string
	err       error
}

func (m *mockChat) Complete(_ context.Context, prompt string) (string, error) {
	m.gotPrompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func scoredChunk(text, source string, page int) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			Text:     text,
			Metadata: domain.Metadata{Source: source, Page: page},
		},
		Score: 0.9,
	}
}

func newTestService(r Retriever, e Embedder, c domain.ChatModel) *Service {
	return New(r, e, c, history.NewMemoryStore(5), 3, zap.NewNop())
}

func TestAnswer_NotReady(t *testing.T) {
	svc := New(nil, nil, nil, nil, 3, zap.NewNop())

	res, err := svc.Answer(context.Background(), "who is Aakash?", "")
	if !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("Answer() error = %v, want ErrNotReady", err)
	}
	if res.Answer != NotReadyAnswer {
		t.Errorf("answer = %q, want %q", res.Answer, NotReadyAnswer)
	}
	if res.SessionID != DefaultSessionID {
		t.Errorf("session id = %q, want %q", res.SessionID, DefaultSessionID)
	}
	if svc.Ready() {
		t.Error("Ready() = true for empty service")
	}
}

func TestAnswer_PromptContainsContextAndQuestion(t *testing.T) {
	retriever := &mockRetriever{chunks: []domain.ScoredChunk{
		scoredChunk("Aakash builds RAG systems.", "resume.pdf", 1),
		scoredChunk("He works with Python and Go.", "resume.pdf", 2),
	}}
	chat := &mockChat{answer: "He builds RAG systems."}
	svc := newTestService(retriever, &mockEmbedder{embedding: []float32{1}}, chat)

	res, err := svc.Answer(context.Background(), "What does Aakash do?", "s1")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if retriever.gotK != 3 {
		t.Errorf("retriever k = %d, want 3", retriever.gotK)
	}
	if !strings.Contains(chat.gotPrompt, "Aakash builds RAG systems.") {
		t.Errorf("prompt missing first chunk: %q", chat.gotPrompt)
	}
	if !strings.Contains(chat.gotPrompt, "He works with Python and Go.") {
		t.Errorf("prompt missing second chunk: %q", chat.gotPrompt)
	}
	if !strings.Contains(chat.gotPrompt, "What does Aakash do?") {
		t.Errorf("prompt missing question: %q", chat.gotPrompt)
	}
	if res.Answer != "He builds RAG systems." {
		t.Errorf("answer = %q", res.Answer)
	}
}

func TestAnswer_SourcesAreDeduplicated(t *testing.T) {
	retriever := &mockRetriever{chunks: []domain.ScoredChunk{
		scoredChunk("a", "resume.pdf", 1),
		scoredChunk("b", "projects.pdf", 1),
		scoredChunk("c", "resume.pdf", 3),
	}}
	svc := newTestService(retriever, &mockEmbedder{embedding: []float32{1}}, &mockChat{answer: "ok"})

	res, err := svc.Answer(context.Background(), "q", "s1")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(res.Sources) != 2 {
		t.Fatalf("sources = %v, want 2 entries", res.Sources)
	}
	if res.Sources[0] != "resume.pdf" || res.Sources[1] != "projects.pdf" {
		t.Errorf("sources = %v, want [resume.pdf projects.pdf]", res.Sources)
	}
}

func TestAnswer_ProviderErrorYieldsApology(t *testing.T) {
	retriever := &mockRetriever{chunks: []domain.ScoredChunk{scoredChunk("a", "resume.pdf", 1)}}
	chat := &mockChat{err: errors.New("rate limited")}
	svc := newTestService(retriever, &mockEmbedder{embedding: []float32{1}}, chat)

	res, err := svc.Answer(context.Background(), "q", "s1")
	if err != nil {
		t.Fatalf("Answer() error = %v, want nil", err)
	}
	if !strings.HasPrefix(res.Answer, "Sorry, I encountered an error processing your question:") {
		t.Errorf("answer = %q, want apology prefix", res.Answer)
	}
	if !strings.Contains(res.Answer, "rate limited") {
		t.Errorf("answer = %q, want underlying cause", res.Answer)
	}
}

func TestAnswer_EmbedderErrorYieldsApology(t *testing.T) {
	retriever := &mockRetriever{}
	svc := newTestService(retriever, &mockEmbedder{err: errors.New("provider down")}, &mockChat{answer: "ok"})

	res, err := svc.Answer(context.Background(), "q", "s1")
	if err != nil {
		t.Fatalf("Answer() error = %v, want nil", err)
	}
	if !strings.HasPrefix(res.Answer, "Sorry, I encountered an error processing your question:") {
		t.Errorf("answer = %q, want apology prefix", res.Answer)
	}
}

func TestAnswer_HistoryFlowsIntoPrompt(t *testing.T) {
	retriever := &mockRetriever{chunks: []domain.ScoredChunk{scoredChunk("ctx", "resume.pdf", 1)}}
	chat := &mockChat{answer: "second answer"}
	hist := history.NewMemoryStore(5)
	svc := New(retriever, &mockEmbedder{embedding: []float32{1}}, chat, hist, 3, zap.NewNop())

	if _, err := svc.Answer(context.Background(), "first question", "s1"); err != nil {
		t.Fatalf("first Answer() error = %v", err)
	}
	if _, err := svc.Answer(context.Background(), "second question", "s1"); err != nil {
		t.Fatalf("second Answer() error = %v", err)
	}

	if !strings.Contains(chat.gotPrompt, "Previous conversation:") {
		t.Errorf("second prompt missing history block: %q", chat.gotPrompt)
	}
	if !strings.Contains(chat.gotPrompt, "first question") {
		t.Errorf("second prompt missing prior question: %q", chat.gotPrompt)
	}

	window, err := hist.Window(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Window() error = %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("window len = %d, want 2", len(window))
	}
	if window[1].Answer != "second answer" {
		t.Errorf("latest answer = %q, want %q", window[1].Answer, "second answer")
	}
}

func TestAnswer_SessionsKeepSeparateHistory(t *testing.T) {
	retriever := &mockRetriever{chunks: []domain.ScoredChunk{scoredChunk("ctx", "resume.pdf", 1)}}
	chat := &mockChat{answer: "ok"}
	hist := history.NewMemoryStore(5)
	svc := New(retriever, &mockEmbedder{embedding: []float32{1}}, chat, hist, 3, zap.NewNop())

	if _, err := svc.Answer(context.Background(), "q-one", "alpha"); err != nil {
		t.Fatalf("Answer(alpha) error = %v", err)
	}
	if _, err := svc.Answer(context.Background(), "q-two", "beta"); err != nil {
		t.Fatalf("Answer(beta) error = %v", err)
	}

	if strings.Contains(chat.gotPrompt, "q-one") {
		t.Errorf("history leaked across sessions: %q", chat.gotPrompt)
	}
}

func TestRenderPrompt_NoHistory(t *testing.T) {
	chunks := []domain.ScoredChunk{scoredChunk("fact one", "a.pdf", 1)}
	prompt := renderPrompt(chunks, nil, "my question")

	if strings.Contains(prompt, "Previous conversation:") {
		t.Errorf("prompt has history block without history: %q", prompt)
	}
	if !strings.Contains(prompt, "Question: my question") {
		t.Errorf("prompt missing question line: %q", prompt)
	}
	if !strings.Contains(prompt, `respond with "I don't know"`) {
		t.Errorf("prompt missing refusal instruction: %q", prompt)
	}
}
