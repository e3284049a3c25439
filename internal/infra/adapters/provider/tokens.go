package provider

import (
	"ai-content-orchestrator/internal/domain/ports/adapter"

	"github.com/pkoukk/tiktoken-go"
)

// estimateTokens counts tokens for text with the model's encoding,
// falling back to cl100k_base and then a crude bytes/4 guess. Used when a
// provider reports no usage so failed attempts still get accounted.
func estimateTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil || enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// fillUsage completes a usage record from token counts when the provider
// response carried none.
func fillUsage(u adapter.Usage, model, prompt, completion string) adapter.Usage {
	if u.TotalTokens > 0 {
		return u
	}
	u.PromptTokens = estimateTokens(model, prompt)
	u.CompletionTokens = estimateTokens(model, completion)
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	return u
}
