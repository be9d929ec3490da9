package openai

import (
	"errors"
	"strings"
)

// OpenAI-compatible chat endpoints of the supported hosted providers.
const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	groqBaseURL   = "https://api.groq.com/openai/v1"
)

// Placeholder keys from .env templates must not count as configured.
var placeholderKeys = map[string]struct{}{
	"your_gemini_api_key_here": {},
	"your_groq_api_key_here":   {},
}

// ErrNoChatProvider signals that no usable chat API key is configured.
var ErrNoChatProvider = errors.New("no valid chat API key configured")

// ChatProvider is a resolved chat backend.
type ChatProvider struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
}

// ResolveChatProvider picks the chat backend: the first present,
// non-placeholder key wins, Gemini preferred over Groq.
func ResolveChatProvider(geminiKey, geminiModel, groqKey, groqModel string) (ChatProvider, error) {
	if keyUsable(geminiKey) {
		return ChatProvider{
			Name:    "gemini",
			BaseURL: geminiBaseURL,
			APIKey:  geminiKey,
			Model:   geminiModel,
		}, nil
	}
	if keyUsable(groqKey) {
		return ChatProvider{
			Name:    "groq",
			BaseURL: groqBaseURL,
			APIKey:  groqKey,
			Model:   groqModel,
		}, nil
	}
	return ChatProvider{}, ErrNoChatProvider
}

func keyUsable(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	_, placeholder := placeholderKeys[key]
	return !placeholder
}
