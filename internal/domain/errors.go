package domain

import "errors"

var (
	// ErrNotReady signals that the answering pipeline is missing a
	// component (index, embedder, or chat model).
	ErrNotReady = errors.New("rag components not initialized")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrChatProviderError signals a chat-completion provider failure.
	ErrChatProviderError = errors.New("chat provider error")
	// ErrNoDocuments signals that ingestion found nothing to index.
	ErrNoDocuments = errors.New("no documents to index")
	// ErrIndexCorrupt signals an index that exists on disk but cannot be loaded.
	ErrIndexCorrupt = errors.New("vector index corrupt")
)
