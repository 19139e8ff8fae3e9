package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ChatCompleter is the narrow slice of internal/llm.Client this package
// depends on, kept local to avoid annotate importing llm (which would
// create an import cycle once llm needs splitter output for anything).
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMSplitter is the semantic splitter (component D): it asks the chat
// model to split one long sentence into meaning-preserving pieces, each
// under maxLen characters. Ported from
// original_source/backend/nlp.py's split_text_by_meaning.
type LLMSplitter struct {
	chat ChatCompleter
}

// NewLLMSplitter wraps a chat-completion client as a SemanticSplitter.
func NewLLMSplitter(chat ChatCompleter) *LLMSplitter {
	return &LLMSplitter{chat: chat}
}

const semanticSplitSystemPrompt = "You split long sentences into shorter pieces for subtitles. " +
	"Preserve every word and the original meaning and order. " +
	"Respond with a JSON array of strings only, no commentary, no markdown fences."

// SplitByMeaning asks the model for a JSON array of parts. A failed chat
// request is returned as an error; an unparseable or empty reply yields a
// nil result with no error. Either outcome triggers the caller's rule-based
// fallback, mirroring the source's try/except around the LLM call and its
// JSON decode.
func (s *LLMSplitter) SplitByMeaning(ctx context.Context, text, language string, maxLen int) ([]string, error) {
	userPrompt := fmt.Sprintf(
		"Language: %s\nMax piece length: %d characters\nSentence:\n%s",
		language, maxLen, text,
	)

	raw, err := s.chat.ChatCompletion(ctx, semanticSplitSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	parts, ok := parseJSONStringArray(raw)
	if !ok || len(parts) == 0 {
		return nil, nil
	}
	return parts, nil
}

// parseJSONStringArray strips an optional ```json ... ``` fence and decodes
// a JSON array of strings, the response shape split_text_by_meaning expects
// from the model.
func parseJSONStringArray(raw string) ([]string, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parts []string
	if err := json.Unmarshal([]byte(cleaned), &parts); err != nil {
		return nil, false
	}
	return parts, true
}
