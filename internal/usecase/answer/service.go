package answer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sai-aakash/ragserve/internal/domain"
	"github.com/sai-aakash/ragserve/internal/logger"
)

// DefaultSessionID is used when the client does not supply a session.
const DefaultSessionID = "default_session"

// NotReadyAnswer is returned while the pipeline is missing a component
// (vector store, embedding provider, or chat model).
const NotReadyAnswer = "RAG system not initialized properly. Please check your configuration."

// Result is the outcome of answering one question.
type Result struct {
	Answer    string
	Sources   []string
	SessionID string
}

// Service answers questions by retrieving relevant chunks and prompting a
// chat model with them. Any of the collaborators may be nil at construction
// time; the service then reports itself not ready instead of failing at
// startup.
type Service struct {
	retriever Retriever
	embedder  Embedder
	chat      domain.ChatModel
	history   History
	topK      int
	logger    *zap.Logger
}

// New creates an answer service. retriever, embedder, and chat may each be
// nil when the corresponding component could not be constructed.
func New(
	retriever Retriever,
	embedder Embedder,
	chat domain.ChatModel,
	history History,
	topK int,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		retriever: retriever,
		embedder:  embedder,
		chat:      chat,
		history:   history,
		topK:      topK,
		logger:    log,
	}
}

// Ready reports whether every pipeline component is available.
func (s *Service) Ready() bool {
	return s.retriever != nil && s.embedder != nil && s.chat != nil
}

// ModelLoaded reports whether a chat model was constructed.
func (s *Service) ModelLoaded() bool { return s.chat != nil }

// VectorStoreLoaded reports whether a retriever was constructed.
func (s *Service) VectorStoreLoaded() bool { return s.retriever != nil }

// Answer runs the retrieval pipeline for one question. Provider failures do
// not surface as errors: the caller gets an apologetic answer and the
// failure is logged. Only domain.ErrNotReady is returned as an error, so
// the transport can map it to 503.
func (s *Service) Answer(ctx context.Context, question, sessionID string) (Result, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	if !s.Ready() {
		return Result{Answer: NotReadyAnswer, SessionID: sessionID}, domain.ErrNotReady
	}

	log := logger.FromContext(ctx)

	answer, sources, err := s.answer(ctx, question, sessionID)
	if err != nil {
		log.Error("Failed to answer question",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return Result{
			Answer:    fmt.Sprintf("Sorry, I encountered an error processing your question: %v", err),
			SessionID: sessionID,
		}, nil
	}

	if s.history != nil {
		ex := domain.Exchange{Question: question, Answer: answer}
		if err := s.history.Append(ctx, sessionID, ex); err != nil {
			log.Warn("Failed to record conversation exchange",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}

	return Result{Answer: answer, Sources: sources, SessionID: sessionID}, nil
}

func (s *Service) answer(ctx context.Context, question, sessionID string) (string, []string, error) {
	embResult, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return "", nil, fmt.Errorf("vectorize question: %w", err)
	}

	scored, err := s.retriever.Search(ctx, embResult.Embedding, s.topK)
	if err != nil {
		return "", nil, fmt.Errorf("search index: %w", err)
	}

	var window []domain.Exchange
	if s.history != nil {
		window, err = s.history.Window(ctx, sessionID)
		if err != nil {
			logger.FromContext(ctx).Warn("Failed to load conversation window",
				zap.String("session_id", sessionID),
				zap.Error(err))
			window = nil
		}
	}

	prompt := renderPrompt(scored, window, question)

	answer, err := s.chat.Complete(ctx, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("generate answer: %w", err)
	}

	return answer, sourcesOf(scored), nil
}

// sourcesOf lists the distinct source files behind the retrieved chunks,
// in retrieval order.
func sourcesOf(scored []domain.ScoredChunk) []string {
	var sources []string
	seen := make(map[string]struct{})
	for _, sc := range scored {
		src := sc.Chunk.Metadata.Source
		if src == "" {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	return sources
}
