// Package llm defines the chat-completion contract the agent's LLM
// collaborators (intent extraction, preference and objective reranking)
// speak, plus helpers for digging JSON out of model output.
package llm

import "context"

// ChatClient is a single-shot chat completion. Implementations live in the
// ollama, bedrock, and mock subpackages.
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ExtractJSON strips markdown fences and surrounding prose from model output,
// returning the span from the first '{' to the last '}'. Models wrap JSON in
// ```json fences or chatty preambles often enough that every consumer of
// model JSON goes through this.
func ExtractJSON(content string) string {
	start := -1
	end := -1
	for i, r := range content {
		if r == '{' {
			start = i
			break
		}
	}
	for i := len(content) - 1; i >= 0; i-- {
		if content[i] == '}' {
			end = i
			break
		}
	}
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return content[start : end+1]
}
