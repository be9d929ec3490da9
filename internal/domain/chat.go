package domain

import "context"

// ChatModel is the hosted chat-completion contract. Implementations send the
// fully rendered prompt and return the model's text output verbatim.
type ChatModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Exchange is one question/answer pair in a conversation window.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
