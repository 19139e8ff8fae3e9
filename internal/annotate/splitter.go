package annotate

import (
	"context"
	"strings"
)

var cliticTokens = map[string]bool{
	"'s": true, "'re": true, "'ve": true, "'ll": true, "'d": true,
}

var germanConnectors = map[string]bool{
	"dass": true, "welche": true, "wo": true, "wann": true,
	"weil": true, "aber": true, "und": true, "oder": true,
}

// RuleBasedSplit runs the four-pass linguistic splitter (P0-P3, component C):
// sentence boundaries, then comma split, connector split, and DP root split
// — each later pass applied only to pieces still exceeding maxLen. Ported
// from original_source/backend/nlp.py's split_sentences rule-based branch.
func RuleBasedSplit(ctx context.Context, a Annotator, text, language string, maxLen int) ([]string, error) {
	doc, err := a.Annotate(ctx, text, language)
	if err != nil {
		return nil, err
	}

	parts := sentenceParts(doc, language)

	parts, err = refinePass(parts, maxLen, func(part string) ([]string, error) {
		return splitByCommaText(ctx, a, part, language)
	})
	if err != nil {
		return nil, err
	}

	parts, err = refinePass(parts, maxLen, func(part string) ([]string, error) {
		return splitByConnectors(ctx, a, part, language, 5)
	})
	if err != nil {
		return nil, err
	}

	parts, err = refinePass(parts, maxLen, func(part string) ([]string, error) {
		return splitLongSentence(ctx, a, part, language)
	})
	if err != nil {
		return nil, err
	}

	return parts, nil
}

// refinePass re-splits only the pieces exceeding maxLen, preserving order —
// the "if len(part) > max_len: new_parts.extend(...)" shape repeated for
// each of P1/P2/P3.
func refinePass(parts []string, maxLen int, split func(string) ([]string, error)) ([]string, error) {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if len(part) <= maxLen {
			out = append(out, part)
			continue
		}
		sub, err := split(part)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// P0 — trust the annotator's sentence boundaries.
func sentenceParts(doc *Doc, language string) []string {
	joiner := Joiner(language)
	if len(doc.Sentences) == 0 {
		return []string{strings.TrimSpace(doc.Text)}
	}
	parts := make([]string, 0, len(doc.Sentences))
	for _, s := range doc.Sentences {
		text := strings.TrimSpace(joinTokensText(doc.Tokens[s.Start:s.End], joiner))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return parts
}

// joinTokensText reconstructs text from tokens, omitting the joiner before
// punctuation tokens so "word ." doesn't pick up a spurious space.
func joinTokensText(tokens []Token, joiner string) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && !t.IsPunct {
			b.WriteString(joiner)
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

// --- P1: comma split ---

func splitByCommaText(ctx context.Context, a Annotator, text, language string) ([]string, error) {
	doc, err := a.Annotate(ctx, text, language)
	if err != nil {
		return nil, err
	}
	return splitByComma(doc.Tokens, Joiner(language)), nil
}

func splitByComma(tokens []Token, joiner string) []string {
	var sentences []string
	start := 0

	for i, tok := range tokens {
		if tok.Text != "," && tok.Text != "" {
			continue
		}
		if analyzeComma(tokens, start, i) {
			sentences = append(sentences, strings.TrimSpace(joinTokensText(tokens[start:i], joiner)))
			start = i + 1
		}
	}
	sentences = append(sentences, strings.TrimSpace(joinTokensText(tokens[start:], joiner)))

	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func analyzeComma(tokens []Token, start, commaIdx int) bool {
	leftStart := max(start, commaIdx-9)
	leftPhrase := tokens[leftStart:commaIdx]

	rightEnd := min(len(tokens), commaIdx+10)
	rightPhrase := tokens[commaIdx+1 : rightEnd]

	suitable := isValidPhrase(rightPhrase)

	leftWords := 0
	for _, t := range leftPhrase {
		if !t.IsPunct {
			leftWords++
		}
	}

	rightWords := 0
	for _, t := range rightPhrase {
		if t.IsPunct {
			break
		}
		rightWords++
	}

	if leftWords <= 3 || rightWords <= 3 {
		suitable = false
	}
	return suitable
}

func isValidPhrase(phrase []Token) bool {
	hasSubject := false
	hasVerb := false
	for _, t := range phrase {
		if t.Dep == "nsubj" || t.Dep == "nsubjpass" || t.POS == "PRON" {
			hasSubject = true
		}
		if t.POS == "VERB" || t.POS == "AUX" {
			hasVerb = true
		}
	}
	return hasSubject && hasVerb
}

// --- P2: connector split ---

const maxConnectorIterations = 100

func splitByConnectors(ctx context.Context, a Annotator, text, language string, contextWords int) ([]string, error) {
	sentences := []string{text}

	for iteration := 0; iteration < maxConnectorIterations; iteration++ {
		splitOccurred := false
		var newSentences []string

		for _, sent := range sentences {
			doc, err := a.Annotate(ctx, sent, language)
			if err != nil {
				return nil, err
			}
			tokens := doc.Tokens
			start := 0

			for i := range tokens {
				splitBefore := analyzeConnector(language, tokens, i)

				if i+1 < len(tokens) && cliticTokens[tokens[i+1].Text] {
					continue
				}

				leftWords := countNonPunct(tokens[max(0, i-contextWords):i])
				rightEnd := min(len(tokens), i+contextWords+1)
				rightWords := countNonPunct(tokens[i+1 : rightEnd])

				if leftWords >= contextWords && rightWords >= contextWords && splitBefore {
					newSentences = append(newSentences, strings.TrimSpace(joinTokensText(tokens[start:i], Joiner(language))))
					start = i
					splitOccurred = true
					break
				}
			}

			if start < len(tokens) {
				newSentences = append(newSentences, strings.TrimSpace(joinTokensText(tokens[start:], Joiner(language))))
			}
		}

		if !splitOccurred {
			break
		}
		sentences = newSentences
	}

	return sentences, nil
}

func analyzeConnector(language string, tokens []Token, i int) bool {
	if language != "de" {
		return false
	}
	tok := tokens[i]
	if !germanConnectors[strings.ToLower(tok.Text)] {
		return false
	}
	if (tok.Dep == "det" || tok.Dep == "pron") && headIsNoun(tokens, tok.Head) {
		return false
	}
	return true
}

func headIsNoun(tokens []Token, headIdx int) bool {
	if headIdx < 0 || headIdx >= len(tokens) {
		return false
	}
	pos := tokens[headIdx].POS
	return pos == "NOUN" || pos == "PROPN"
}

func countNonPunct(tokens []Token) int {
	n := 0
	for _, t := range tokens {
		if !t.IsPunct {
			n++
		}
	}
	return n
}

// --- P3: DP root split (last resort) ---

const (
	rootSplitLookback = 100
	rootSplitMinPiece = 30
)

func splitLongSentence(ctx context.Context, a Annotator, text, language string) ([]string, error) {
	doc, err := a.Annotate(ctx, text, language)
	if err != nil {
		return nil, err
	}
	tokens := doc.Tokens
	n := len(tokens)

	const inf = 1 << 30
	dp := make([]int, n+1)
	prev := make([]int, n+1)
	for i := 1; i <= n; i++ {
		dp[i] = inf
	}

	for i := 1; i <= n; i++ {
		for j := max(0, i-rootSplitLookback); j < i; j++ {
			if i-j < rootSplitMinPiece {
				continue
			}
			tok := tokens[i-1]
			eligible := j == 0 || tok.IsSentEnd || tok.POS == "VERB" || tok.POS == "AUX" || tok.Dep == "ROOT"
			if !eligible {
				continue
			}
			if dp[j]+1 < dp[i] {
				dp[i] = dp[j] + 1
				prev[i] = j
			}
		}
	}

	joiner := Joiner(language)
	var pieces []string
	i := n
	for i > 0 {
		j := prev[i]
		var texts []string
		for _, t := range tokens[j:i] {
			texts = append(texts, t.Text)
		}
		pieces = append(pieces, strings.TrimSpace(strings.Join(texts, joiner)))
		i = j
	}

	// reverse
	for l, r := 0, len(pieces)-1; l < r; l, r = l+1, r-1 {
		pieces[l], pieces[r] = pieces[r], pieces[l]
	}
	return pieces, nil
}
