package answer

import (
	"strings"

	"github.com/sai-aakash/ragserve/internal/domain"
)

const promptTemplate = `You are a helpful assistant. Answer the question based on the context provided below.
If the question is not related to the context, respond with "I don't know".
Context: {context}
Question: {question}
Answer:`

// renderPrompt fills the answer template with retrieved context, the
// conversation window, and the user's question. Chunks are joined with blank
// lines; prior exchanges precede the current question so the model can
// resolve follow-ups.
func renderPrompt(chunks []domain.ScoredChunk, window []domain.Exchange, question string) string {
	var contextParts []string
	for _, sc := range chunks {
		contextParts = append(contextParts, sc.Chunk.Text)
	}
	contextText := strings.Join(contextParts, "\n\n")

	if len(window) > 0 {
		var b strings.Builder
		b.WriteString("Previous conversation:\n")
		for _, ex := range window {
			b.WriteString("Q: ")
			b.WriteString(ex.Question)
			b.WriteString("\nA: ")
			b.WriteString(ex.Answer)
			b.WriteString("\n")
		}
		b.WriteString("\nCurrent question: ")
		b.WriteString(question)
		question = b.String()
	}

	prompt := strings.ReplaceAll(promptTemplate, "{context}", contextText)
	prompt = strings.ReplaceAll(prompt, "{question}", question)
	return prompt
}
