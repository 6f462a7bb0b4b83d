package rag

import (
	"fmt"
	"strings"
)

// negativeAnswers are the phrases the model is instructed to return when the
// context does not contain the answer. Matching is case-insensitive.
var negativeAnswers = map[string]struct{}{
	"not found.":       {},
	"not found":        {},
	"no answer found.": {},
	"no answer found":  {},
}

const notFoundReply = "Not found."

// composePrompt builds the extraction prompt from one or more context chunks,
// joined by blank lines in retrieval order.
func composePrompt(contexts []string, query string) string {
	return fmt.Sprintf(`You are a helpful assistant. If the answer to the user's question is present in the context below, extract it exactly and return only the answer (not the whole chunk, not a summary). If the answer is not present, reply: '%s'

Context:
%s

Question: %s

Answer:`, notFoundReply, strings.Join(contexts, "\n\n"), query)
}

// cleanAnswer strips surrounding whitespace and leading "Answer:" boilerplate
// the model sometimes echoes back.
func cleanAnswer(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "Answer:", "")
	cleaned = strings.ReplaceAll(cleaned, "answer:", "")
	return strings.TrimSpace(cleaned)
}

// isNegativeAnswer reports whether a cleaned answer is one of the fixed
// not-found phrases.
func isNegativeAnswer(answer string) bool {
	_, ok := negativeAnswers[strings.ToLower(answer)]
	return ok
}
