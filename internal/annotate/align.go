package annotate

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dechogo/hearing-gateway/internal/asr"
	"github.com/dechogo/hearing-gateway/internal/segment"
)

// TimedPart is one re-split piece of text with its recovered [Start,End]
// timing, produced either by token alignment or by the character-proportional
// fallback.
type TimedPart struct {
	Text  string
	Start float64
	End   float64
}

// tokenTiming is a token's recovered [start,end] window, derived from the
// recognizer's end-time stream the same way original_source/backend/nlp.py's
// align_segments_with_tokens derives it before the substring search: the
// first token starts 0.5s before its end (clamped to 0); later tokens start
// where the previous one ended, unless the gap to the previous end exceeds
// 1.0s, in which case they get the same 0.5s lookback, clamped forward.
type tokenTiming struct {
	start float64
	end   float64
}

func tokenTimings(tokens []asr.Token) []tokenTiming {
	out := make([]tokenTiming, len(tokens))
	prevEnd := 0.0
	for i, t := range tokens {
		var start float64
		if i == 0 {
			start = maxF(0, t.EndTime-0.5)
		} else if t.EndTime-prevEnd > 1.0 {
			start = maxF(prevEnd, t.EndTime-0.5)
		} else {
			start = prevEnd
		}
		if start < prevEnd {
			start = prevEnd
		}
		end := t.EndTime
		if end < start {
			end = start
		}
		out[i] = tokenTiming{start: start, end: end}
		prevEnd = end
	}
	return out
}

// AlignSegmentsWithTokens locates each re-split part inside the token stream
// by normalized (alphanumeric-lowercase) substring search, recovering its
// timing from the tokens it overlaps. Returns (nil, false) whenever alignment
// isn't viable — no tokens, empty joined text — so the caller falls back to
// character-proportional timing, exactly mirroring
// align_segments_with_tokens' early-return-to-empty-list cases. The token
// joiner is language-aware (Joiner), matching get_joiner in
// original_source/backend/nlp.py, rather than a hardcoded space — languages
// like Chinese that join tokens with no separator would otherwise corrupt
// the normalized-text offsets the substring search relies on.
func AlignSegmentsWithTokens(parts []string, tokens []asr.Token, language string) ([]TimedPart, bool) {
	if len(tokens) == 0 {
		return nil, false
	}

	timings := tokenTimings(tokens)
	joiner := Joiner(language)

	var fullText strings.Builder
	var charToToken []int
	for i, t := range tokens {
		for range len(t.Text) {
			charToToken = append(charToToken, i)
		}
		fullText.WriteString(t.Text)
		if i != len(tokens)-1 {
			for range len(joiner) {
				charToToken = append(charToToken, i)
			}
			fullText.WriteString(joiner)
		}
	}
	full := fullText.String()
	if full == "" {
		return nil, false
	}

	normText, normToOrig := normalizeWithMap(full)

	results := make([]TimedPart, 0, len(parts))
	searchPos := 0
	prevEnd := 0.0

	for _, part := range parts {
		partNorm, _ := normalizeWithMap(part)
		if partNorm == "" {
			continue
		}

		matchStart := indexFrom(normText, partNorm, searchPos)
		if matchStart < 0 {
			matchStart = indexFrom(normText, partNorm, 0)
		}
		matchEnd := matchStart + len(partNorm)

		if matchStart < 0 || matchEnd == 0 {
			start := prevEnd
			end := prevEnd + 0.1
			results = append(results, TimedPart{Text: part, Start: start, End: end})
			prevEnd = end
			continue
		}

		origStart := normToOrig[matchStart]
		origEnd := normToOrig[matchEnd-1]

		startTok := charToToken[origStart]
		endTok := charToToken[origEnd]

		start := timings[startTok].start
		end := timings[endTok].end
		if end < start {
			end = start
		}

		results = append(results, TimedPart{Text: part, Start: start, End: end})
		prevEnd = end
		searchPos = matchEnd
	}

	return results, true
}

func normalizeWithMap(s string) (string, []int) {
	var b strings.Builder
	var origIdx []int
	for i, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			lr := unicode.ToLower(r)
			b.WriteRune(lr)
			for range utf8.RuneLen(lr) {
				origIdx = append(origIdx, i)
			}
		}
	}
	return b.String(), origIdx
}

func indexFrom(haystack, needle string, from int) int {
	if from > len(haystack) {
		from = len(haystack)
	}
	idx := strings.Index(haystack[from:], needle)
	if idx < 0 {
		return -1
	}
	return from + idx
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// SemanticSplitter is the optional LLM-based splitter (component D).
type SemanticSplitter interface {
	SplitByMeaning(ctx context.Context, text, language string, maxLen int) ([]string, error)
}

// SplitConfig configures the top-level per-task splitter/aligner driver.
type SplitConfig struct {
	SourceLanguage string
	MaxLength      int
	UseLLM         bool
}

// SplitSegment refines one silence-pre-split segment into one or more
// subtitle pieces: it tries the semantic splitter first when enabled,
// falling back to the rule-based P0-P3 cascade on error or empty result,
// then times each piece via token alignment when the segment still carries
// its recognizer tokens, or proportionally by character count otherwise.
func SplitSegment(ctx context.Context, a Annotator, llm SemanticSplitter, seg segment.Segment, cfg SplitConfig) ([]segment.Segment, error) {
	var parts []string

	if cfg.UseLLM && llm != nil {
		p, err := llm.SplitByMeaning(ctx, seg.Text, cfg.SourceLanguage, cfg.MaxLength)
		if err == nil && len(p) > 0 {
			parts = p
		} else {
			slog.Warn("semantic split unavailable, falling back to rule-based split", "error", err)
		}
	}

	if len(parts) == 0 {
		p, err := RuleBasedSplit(ctx, a, seg.Text, cfg.SourceLanguage, cfg.MaxLength)
		if err != nil {
			return nil, err
		}
		parts = p
	}

	if len(parts) == 0 {
		return nil, nil
	}

	if seg.HasTokens {
		if timed, ok := AlignSegmentsWithTokens(parts, seg.Tokens, cfg.SourceLanguage); ok && len(timed) > 0 {
			out := make([]segment.Segment, len(timed))
			for i, t := range timed {
				out[i] = segment.Segment{Text: t.Text, Start: t.Start, End: t.End}
			}
			return out, nil
		}
	}

	return splitProportional(parts, seg), nil
}

// splitProportional allocates duration to each part in proportion to its
// character count, walking forward from seg.Start — the fallback path used
// whenever the segment carries no tokens or alignment yields no timed parts.
// A single part that alignment cannot locate is not timed here; it gets the
// aligner's prevEnd+0.1s placeholder instead.
func splitProportional(parts []string, seg segment.Segment) []segment.Segment {
	totalChars := 0
	for _, p := range parts {
		totalChars += len(p)
	}
	if totalChars == 0 {
		return nil
	}

	duration := seg.Duration()
	out := make([]segment.Segment, 0, len(parts))
	currentStart := seg.Start

	for _, p := range parts {
		partDuration := (float64(len(p)) / float64(totalChars)) * duration
		end := currentStart + partDuration
		out = append(out, segment.Segment{Text: p, Start: currentStart, End: end})
		currentStart = end
	}
	return out
}

// tailExtension is the single end-of-pipeline extension applied once across
// every refined segment for a task, not per-segment inline — mirroring
// split_sentences' final loop that adds 0.15s to every segment's end only
// after all input segments have been fully processed.
const tailExtension = 0.15

// SplitAll refines every silence-pre-split segment of a task's transcript
// and applies the single global tail-extension pass afterward.
func SplitAll(ctx context.Context, a Annotator, llm SemanticSplitter, segments []segment.Segment, cfg SplitConfig) ([]segment.Segment, error) {
	var refined []segment.Segment

	for _, seg := range segments {
		pieces, err := SplitSegment(ctx, a, llm, seg, cfg)
		if err != nil {
			return nil, err
		}
		refined = append(refined, pieces...)
	}

	for i := range refined {
		refined[i].End += tailExtension
	}

	return refined, nil
}
